package nn

// matMul multiplies a [aRows x aCols] by b [aCols x bCols], both row-major.
func matMul(a, b []float64, aRows, aCols, bCols int) []float64 {
	out := make([]float64, aRows*bCols)
	for r := 0; r < aRows; r++ {
		for k := 0; k < aCols; k++ {
			av := a[r*aCols+k]
			if av == 0 {
				continue
			}
			for c := 0; c < bCols; c++ {
				out[r*bCols+c] += av * b[k*bCols+c]
			}
		}
	}
	return out
}

// Jacobian computes ∂outputs/∂inputs for a single input row as a
// [outputs x inputs] row-major matrix, by chaining each layer's local
// Jacobian. Recurrent layers have sequence-valued outputs and are not
// supported here; they report ErrDimensionMismatch.
func (n *Network) Jacobian(input []float64) ([]float64, error) {
	if len(input) != n.InputsNumber() {
		return nil, dimensionMismatch("jacobian: input length %d, want %d", len(input), n.InputsNumber())
	}

	var jac []float64 // [currentWidth x inputs]
	width := len(input)
	data := append([]float64(nil), input...)

	for _, layer := range n.Layers {
		var local []float64 // [out x in] for this layer at the current point
		var err error
		switch l := layer.(type) {
		case *ScalingLayer:
			local = make([]float64, width*width)
			for j, d := range l.Descriptives {
				local[j*width+j] = l.slope(d)
			}
			data, err = l.Outputs(data, 1)
		case *UnscalingLayer:
			local = make([]float64, width*width)
			for j, d := range l.Descriptives {
				local[j*width+j] = l.slopeAt(d, data[j])
			}
			data, err = l.Outputs(data, 1)
		case *DenseLayer:
			var cache *DenseForwardCache
			data, cache, err = l.Forward(data, 1)
			if err == nil {
				// d out_n / d in_i = a'(z_n) * w[i,n]
				local = make([]float64, l.Neurons*l.Inputs)
				for nIdx := 0; nIdx < l.Neurons; nIdx++ {
					der := cache.Derivatives[nIdx]
					for i := 0; i < l.Inputs; i++ {
						local[nIdx*l.Inputs+i] = der * l.Weights[i*l.Neurons+nIdx]
					}
				}
			}
		case *ProbabilisticLayer:
			data, err = l.Outputs(data, 1)
			if err == nil {
				local = make([]float64, width*width)
				for i := 0; i < width; i++ {
					for j := 0; j < width; j++ {
						kronecker := 0.0
						if i == j {
							kronecker = 1.0
						}
						local[i*width+j] = data[i] * (kronecker - data[j])
					}
				}
			}
		default:
			err = dimensionMismatch("jacobian: unsupported layer kind %s", layer.Kind())
		}
		if err != nil {
			return nil, err
		}

		outWidth := layer.OutputsNumber()
		if jac == nil {
			jac = local
		} else {
			jac = matMul(local, jac, outWidth, width, len(input))
		}
		width = outWidth
	}

	return jac, nil
}

// GaussNewtonHessian approximates the Hessian of a half-squared-error on the
// network outputs with respect to the inputs: H ≈ Jᵀ·J, a
// [inputs x inputs] row-major matrix evaluated at one input row.
func (n *Network) GaussNewtonHessian(input []float64) ([]float64, error) {
	jac, err := n.Jacobian(input)
	if err != nil {
		return nil, err
	}
	inputs := len(input)
	outputs := n.OutputsNumber()

	hessian := make([]float64, inputs*inputs)
	for i := 0; i < inputs; i++ {
		for j := i; j < inputs; j++ {
			var sum float64
			for o := 0; o < outputs; o++ {
				sum += jac[o*inputs+i] * jac[o*inputs+j]
			}
			hessian[i*inputs+j] = sum
			hessian[j*inputs+i] = sum
		}
	}
	return hessian, nil
}

// ParameterJacobian computes ∂outputs/∂parameters for one input row by
// central finite differences over the flattened parameter vector, as a
// [outputs x parameters] row-major matrix. It restores the parameters
// before returning.
func (n *Network) ParameterJacobian(input []float64, step float64) ([]float64, error) {
	if step <= 0 {
		step = 1e-6
	}
	params := n.Parameters()

	// Networks with a recurrent layer emit one row per timestep; size the
	// matrix from an actual pass instead of the last layer's width.
	baseline, err := n.Outputs(input, 1)
	if err != nil {
		return nil, err
	}
	outputs := len(baseline)
	jac := make([]float64, outputs*len(params))

	for p := range params {
		saved := params[p]

		params[p] = saved + step
		if err := n.SetParameters(params); err != nil {
			return nil, err
		}
		plus, err := n.Outputs(input, 1)
		if err != nil {
			return nil, err
		}

		params[p] = saved - step
		if err := n.SetParameters(params); err != nil {
			return nil, err
		}
		minus, err := n.Outputs(input, 1)
		if err != nil {
			return nil, err
		}

		params[p] = saved
		for o := 0; o < outputs; o++ {
			jac[o*len(params)+p] = (plus[o] - minus[o]) / (2 * step)
		}
	}
	if err := n.SetParameters(params); err != nil {
		return nil, err
	}
	return jac, nil
}

// GaussNewtonParameterHessian approximates the loss Hessian with respect to
// the parameters as Jᵀ·J from the parameter Jacobian.
func (n *Network) GaussNewtonParameterHessian(input []float64, step float64) ([]float64, error) {
	jac, err := n.ParameterJacobian(input, step)
	if err != nil {
		return nil, err
	}
	params := n.ParametersNumber()
	outputs := len(jac) / params

	hessian := make([]float64, params*params)
	for i := 0; i < params; i++ {
		for j := i; j < params; j++ {
			var sum float64
			for o := 0; o < outputs; o++ {
				sum += jac[o*params+i] * jac[o*params+j]
			}
			hessian[i*params+j] = sum
			hessian[j*params+i] = sum
		}
	}
	return hessian, nil
}
