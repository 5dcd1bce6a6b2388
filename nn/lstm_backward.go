package nn

// LSTMGradients mirrors the layer's parameter groups: four weight matrices,
// four recurrent-weight matrices, four bias vectors.
type LSTMGradients struct {
	Inputs  int
	Neurons int

	ForgetWeights []float64
	InputWeights  []float64
	StateWeights  []float64
	OutputWeights []float64

	ForgetRecurrentWeights []float64
	InputRecurrentWeights  []float64
	StateRecurrentWeights  []float64
	OutputRecurrentWeights []float64

	ForgetBiases []float64
	InputBiases  []float64
	StateBiases  []float64
	OutputBiases []float64
}

func newLSTMGradients(inputs, neurons int) *LSTMGradients {
	g := &LSTMGradients{Inputs: inputs, Neurons: neurons}
	for _, p := range []*[]float64{&g.ForgetWeights, &g.InputWeights, &g.StateWeights, &g.OutputWeights} {
		*p = make([]float64, inputs*neurons)
	}
	for _, p := range []*[]float64{&g.ForgetRecurrentWeights, &g.InputRecurrentWeights, &g.StateRecurrentWeights, &g.OutputRecurrentWeights} {
		*p = make([]float64, neurons*neurons)
	}
	for _, p := range []*[]float64{&g.ForgetBiases, &g.InputBiases, &g.StateBiases, &g.OutputBiases} {
		*p = make([]float64, neurons)
	}
	return g
}

func (g *LSTMGradients) weightGroups() [][]float64 {
	return [][]float64{g.ForgetWeights, g.InputWeights, g.StateWeights, g.OutputWeights}
}

func (g *LSTMGradients) recurrentGroups() [][]float64 {
	return [][]float64{g.ForgetRecurrentWeights, g.InputRecurrentWeights, g.StateRecurrentWeights, g.OutputRecurrentWeights}
}

func (g *LSTMGradients) biasGroups() [][]float64 {
	return [][]float64{g.ForgetBiases, g.InputBiases, g.StateBiases, g.OutputBiases}
}

// Parameters flattens the gradients in the same order as LSTMLayer.Parameters.
func (g *LSTMGradients) Parameters() []float64 {
	p := make([]float64, 0, 4*(g.Inputs*g.Neurons+g.Neurons*g.Neurons+g.Neurons))
	w, u, b := g.weightGroups(), g.recurrentGroups(), g.biasGroups()
	for i := 0; i < 4; i++ {
		p = append(p, w[i]...)
		p = append(p, u[i]...)
		p = append(p, b[i]...)
	}
	return p
}

// Backward runs back-propagation through time over the cached forward pass.
//
// delta is the error gradient with respect to the layer's outputs,
// [batch x timesteps x neurons] flat. It returns the gradient with respect
// to the inputs (same shape as the cached input) and the parameter
// gradients, accumulated in reverse time order then across the batch.
func (l *LSTMLayer) Backward(cache *LSTMForwardCache, delta []float64) ([]float64, *LSTMGradients, error) {
	if cache == nil {
		return nil, nil, cacheMismatch("lstm backward: nil cache")
	}
	if cache.Inputs != l.Inputs || cache.Neurons != l.Neurons || cache.Timesteps != l.Timesteps {
		return nil, nil, dimensionMismatch("lstm backward: cache is [%d in, %d neurons, %d steps], layer is [%d, %d, %d]",
			cache.Inputs, cache.Neurons, cache.Timesteps, l.Inputs, l.Neurons, l.Timesteps)
	}
	if len(delta) != cache.Batch*cache.Timesteps*cache.Neurons {
		return nil, nil, cacheMismatch("lstm backward: delta length %d, cache expects %d (batch=%d, timesteps=%d, neurons=%d)",
			len(delta), cache.Batch*cache.Timesteps*cache.Neurons, cache.Batch, cache.Timesteps, cache.Neurons)
	}

	neurons := l.Neurons
	inputs := l.Inputs
	grads := newLSTMGradients(inputs, neurons)
	inputDelta := make([]float64, len(cache.Input))

	// Per-timestep gate error signals and the deltas carried to step t-1.
	forgetErr := make([]float64, neurons)
	inputErr := make([]float64, neurons)
	stateErr := make([]float64, neurons)
	outputErr := make([]float64, neurons)
	hiddenDelta := make([]float64, neurons)
	prevHiddenDelta := make([]float64, neurons)
	cellDelta := make([]float64, neurons)

	for b := 0; b < cache.Batch; b++ {
		// No contribution from beyond the last timestep.
		for n := 0; n < neurons; n++ {
			hiddenDelta[n] = 0
			cellDelta[n] = 0
		}

		for t := cache.Timesteps - 1; t >= 0; t-- {
			at := cache.stepIndex(b, t)
			prevState := cache.stateIndex(b, t)
			inputAt := (b*cache.Timesteps + t) * inputs

			for n := 0; n < neurons; n++ {
				// Externally supplied delta plus the carry from step t+1.
				dh := delta[at+n] + hiddenDelta[n]

				outputAct := cache.OutputActivations[at+n]

				// hidden = output ⊙ activation(cell)
				dOutput := dh * cache.CellActivations[at+n]
				dCell := dh*outputAct*cache.CellDerivatives[at+n] + cellDelta[n]

				// cell = forget ⊙ cell_prev + input ⊙ state
				dForget := dCell * cache.CellStates[prevState+n]
				dInput := dCell * cache.StateActivations[at+n]
				dState := dCell * cache.InputActivations[at+n]
				cellDelta[n] = dCell * cache.ForgetActivations[at+n]

				forgetErr[n] = dForget * cache.ForgetDerivatives[at+n]
				inputErr[n] = dInput * cache.InputDerivatives[at+n]
				stateErr[n] = dState * cache.StateDerivatives[at+n]
				outputErr[n] = dOutput * cache.OutputDerivatives[at+n]

				grads.ForgetBiases[n] += forgetErr[n]
				grads.InputBiases[n] += inputErr[n]
				grads.StateBiases[n] += stateErr[n]
				grads.OutputBiases[n] += outputErr[n]
			}

			// dW += x_t ⊗ gate error; input delta projects through W.
			for i := 0; i < inputs; i++ {
				x := cache.Input[inputAt+i]
				var dx float64
				for n := 0; n < neurons; n++ {
					w := i*neurons + n
					grads.ForgetWeights[w] += x * forgetErr[n]
					grads.InputWeights[w] += x * inputErr[n]
					grads.StateWeights[w] += x * stateErr[n]
					grads.OutputWeights[w] += x * outputErr[n]

					dx += l.ForgetWeights[w]*forgetErr[n] +
						l.InputWeights[w]*inputErr[n] +
						l.StateWeights[w]*stateErr[n] +
						l.OutputWeights[w]*outputErr[n]
				}
				inputDelta[inputAt+i] += dx
			}

			// dU += h_{t-1} ⊗ gate error; the carry to t-1 projects through U.
			for p := 0; p < neurons; p++ {
				hPrev := cache.HiddenStates[prevState+p]
				var dhPrev float64
				for n := 0; n < neurons; n++ {
					u := p*neurons + n
					grads.ForgetRecurrentWeights[u] += hPrev * forgetErr[n]
					grads.InputRecurrentWeights[u] += hPrev * inputErr[n]
					grads.StateRecurrentWeights[u] += hPrev * stateErr[n]
					grads.OutputRecurrentWeights[u] += hPrev * outputErr[n]

					dhPrev += l.ForgetRecurrentWeights[u]*forgetErr[n] +
						l.InputRecurrentWeights[u]*inputErr[n] +
						l.StateRecurrentWeights[u]*stateErr[n] +
						l.OutputRecurrentWeights[u]*outputErr[n]
				}
				prevHiddenDelta[p] = dhPrev
			}
			hiddenDelta, prevHiddenDelta = prevHiddenDelta, hiddenDelta
		}
	}

	return inputDelta, grads, nil
}
