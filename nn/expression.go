package nn

import (
	"fmt"
	"strconv"
	"strings"
)

// activationExpression renders the fixed textual template of an activation
// applied to an argument expression.
func activationExpression(a ActivationFunction, x string) string {
	switch a {
	case ActivationThreshold:
		return fmt.Sprintf("(%s >= 0 ? 1 : 0)", x)
	case ActivationSymmetricThreshold:
		return fmt.Sprintf("(%s >= 0 ? 1 : -1)", x)
	case ActivationLogistic:
		return fmt.Sprintf("1/(1+exp(-%s))", x)
	case ActivationHyperbolicTangent:
		return fmt.Sprintf("tanh(%s)", x)
	case ActivationLinear:
		return x
	case ActivationRectifiedLinear:
		return fmt.Sprintf("max(0, %s)", x)
	case ActivationExponentialLinear:
		return fmt.Sprintf("(%s > 0 ? %s : exp(%s)-1)", x, x, x)
	case ActivationScaledExponentialLinear:
		return fmt.Sprintf("(%s > 0 ? 1.0507*%s : 1.0507*1.67326*(exp(%s)-1))", x, x, x)
	case ActivationSoftPlus:
		return fmt.Sprintf("log(1+exp(%s))", x)
	case ActivationSoftSign:
		return fmt.Sprintf("%s/(1+abs(%s))", x, x)
	case ActivationHardSigmoid:
		return fmt.Sprintf("min(1, max(0, 0.2*%s+0.5))", x)
	default:
		return x
	}
}

func formatCoefficient(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// combinationExpression renders bias + Σ w_i·x_i for one neuron column of a
// [len(names) x neurons] weight matrix.
func combinationExpression(bias float64, weights []float64, neurons, column int, names []string) string {
	var b strings.Builder
	b.WriteString(formatCoefficient(bias))
	for i, name := range names {
		fmt.Fprintf(&b, " + (%s)*%s", formatCoefficient(weights[i*neurons+column]), name)
	}
	return b.String()
}

// WriteExpression renders the dense layer's computation with the given
// input and output variable names.
func (l *DenseLayer) WriteExpression(inputNames, outputNames []string) (string, error) {
	if len(inputNames) != l.Inputs || len(outputNames) != l.Neurons {
		return "", dimensionMismatch("dense expression: %d input names and %d output names for [%d x %d]",
			len(inputNames), len(outputNames), l.Inputs, l.Neurons)
	}
	var b strings.Builder
	for n := 0; n < l.Neurons; n++ {
		comb := combinationExpression(l.Biases[n], l.Weights, l.Neurons, n, inputNames)
		fmt.Fprintf(&b, "%s = %s;\n", outputNames[n], activationExpression(l.Activation, "("+comb+")"))
	}
	return b.String(), nil
}

// WriteExpression renders one timestep of the recurrent computation: the
// four gate combinations, the cell-state update and the hidden state, using
// (t-1)-suffixed names for the recurrent inputs.
func (l *LSTMLayer) WriteExpression(inputNames, outputNames []string) (string, error) {
	if len(inputNames) != l.Inputs || len(outputNames) != l.Neurons {
		return "", dimensionMismatch("lstm expression: %d input names and %d output names for [%d x %d]",
			len(inputNames), len(outputNames), l.Inputs, l.Neurons)
	}

	prevHidden := make([]string, l.Neurons)
	for n := range prevHidden {
		prevHidden[n] = fmt.Sprintf("hidden_state_%d(t-1)", n)
	}

	gate := func(name string, w, u, b []float64, act ActivationFunction, n int) string {
		comb := combinationExpression(b[n], w, l.Neurons, n, inputNames)
		for p, h := range prevHidden {
			comb += fmt.Sprintf(" + (%s)*%s", formatCoefficient(u[p*l.Neurons+n]), h)
		}
		return fmt.Sprintf("%s_%d = %s;\n", name, n, activationExpression(act, "("+comb+")"))
	}

	var out strings.Builder
	for n := 0; n < l.Neurons; n++ {
		out.WriteString(gate("forget_gate", l.ForgetWeights, l.ForgetRecurrentWeights, l.ForgetBiases, l.RecurrentActivation, n))
		out.WriteString(gate("input_gate", l.InputWeights, l.InputRecurrentWeights, l.InputBiases, l.RecurrentActivation, n))
		out.WriteString(gate("state_activation", l.StateWeights, l.StateRecurrentWeights, l.StateBiases, l.Activation, n))
		out.WriteString(gate("output_gate", l.OutputWeights, l.OutputRecurrentWeights, l.OutputBiases, l.RecurrentActivation, n))
		fmt.Fprintf(&out, "cell_state_%d = forget_gate_%d*cell_state_%d(t-1) + input_gate_%d*state_activation_%d;\n",
			n, n, n, n, n)
		fmt.Fprintf(&out, "%s = output_gate_%d*%s;\n",
			outputNames[n], n, activationExpression(l.Activation, fmt.Sprintf("cell_state_%d", n)))
	}
	return out.String(), nil
}

// WriteExpression renders the scaling transform per variable.
func (l *ScalingLayer) WriteExpression(inputNames, outputNames []string) (string, error) {
	if len(inputNames) != len(l.Descriptives) || len(outputNames) != len(l.Descriptives) {
		return "", dimensionMismatch("scaling expression: %d input and %d output names for %d variables",
			len(inputNames), len(outputNames), len(l.Descriptives))
	}
	var b strings.Builder
	for j, d := range l.Descriptives {
		switch {
		case l.Method == ScalingNone || d.unbounded():
			fmt.Fprintf(&b, "%s = %s;\n", outputNames[j], inputNames[j])
		case l.Method == ScalingMinimumMaximum:
			fmt.Fprintf(&b, "%s = 2*(%s-(%s))/((%s)-(%s))-1;\n", outputNames[j], inputNames[j],
				formatCoefficient(d.Minimum), formatCoefficient(d.Maximum), formatCoefficient(d.Minimum))
		case l.Method == ScalingMeanStandardDeviation:
			fmt.Fprintf(&b, "%s = (%s-(%s))/(%s);\n", outputNames[j], inputNames[j],
				formatCoefficient(d.Mean), formatCoefficient(d.StandardDeviation))
		}
	}
	return b.String(), nil
}

// WriteExpression renders the unscaling transform per variable; the
// minimum-maximum template is y = 0.5*(x+1)*(max-min)+min.
func (l *UnscalingLayer) WriteExpression(inputNames, outputNames []string) (string, error) {
	if len(inputNames) != len(l.Descriptives) || len(outputNames) != len(l.Descriptives) {
		return "", dimensionMismatch("unscaling expression: %d input and %d output names for %d variables",
			len(inputNames), len(outputNames), len(l.Descriptives))
	}
	var b strings.Builder
	for j, d := range l.Descriptives {
		switch {
		case l.Method == UnscalingNone || d.unbounded():
			fmt.Fprintf(&b, "%s = %s;\n", outputNames[j], inputNames[j])
		case l.Method == UnscalingMinimumMaximum:
			fmt.Fprintf(&b, "%s = 0.5*(%s+1)*((%s)-(%s))+(%s);\n", outputNames[j], inputNames[j],
				formatCoefficient(d.Maximum), formatCoefficient(d.Minimum), formatCoefficient(d.Minimum))
		case l.Method == UnscalingMeanStandardDeviation:
			fmt.Fprintf(&b, "%s = %s*(%s)+(%s);\n", outputNames[j], inputNames[j],
				formatCoefficient(d.StandardDeviation), formatCoefficient(d.Mean))
		case l.Method == UnscalingLogarithmic:
			fmt.Fprintf(&b, "%s = 0.5*(exp(%s)+1)*((%s)-(%s))+(%s);\n", outputNames[j], inputNames[j],
				formatCoefficient(d.Maximum), formatCoefficient(d.Minimum), formatCoefficient(d.Minimum))
		}
	}
	return b.String(), nil
}

// WriteExpression chains the per-layer expressions, naming each hidden
// output layer_<i>_output_<n>.
func (n *Network) WriteExpression(inputNames, outputNames []string) (string, error) {
	if len(inputNames) != n.InputsNumber() || len(outputNames) != n.OutputsNumber() {
		return "", dimensionMismatch("network expression: %d input and %d output names for [%d in, %d out]",
			len(inputNames), len(outputNames), n.InputsNumber(), n.OutputsNumber())
	}

	var b strings.Builder
	names := inputNames
	for i, layer := range n.Layers {
		var next []string
		if i == len(n.Layers)-1 {
			next = outputNames
		} else {
			next = make([]string, layer.OutputsNumber())
			for j := range next {
				next[j] = fmt.Sprintf("layer_%d_output_%d", i, j)
			}
		}

		var expr string
		var err error
		switch l := layer.(type) {
		case *ScalingLayer:
			expr, err = l.WriteExpression(names, next)
		case *DenseLayer:
			expr, err = l.WriteExpression(names, next)
		case *LSTMLayer:
			expr, err = l.WriteExpression(names, next)
		case *UnscalingLayer:
			expr, err = l.WriteExpression(names, next)
		case *ProbabilisticLayer:
			terms := make([]string, len(names))
			for j, name := range names {
				terms[j] = fmt.Sprintf("exp(%s)", name)
			}
			var row strings.Builder
			fmt.Fprintf(&row, "softmax_denominator = %s;\n", strings.Join(terms, "+"))
			for j := range next {
				fmt.Fprintf(&row, "%s = exp(%s)/softmax_denominator;\n", next[j], names[j])
			}
			expr = row.String()
		default:
			err = dimensionMismatch("expression: unsupported layer kind %s", layer.Kind())
		}
		if err != nil {
			return "", err
		}
		b.WriteString(expr)
		names = next
	}
	return b.String(), nil
}
