package nn

// gateCombination computes combination = x·W + hPrev·U + b for one gate,
// writing the result into dst (length neurons).
func gateCombination(x, hPrev, w, u, b, dst []float64, inputs, neurons int) {
	for n := 0; n < neurons; n++ {
		sum := b[n]
		for i := 0; i < inputs; i++ {
			sum += x[i] * w[i*neurons+n]
		}
		for p := 0; p < neurons; p++ {
			sum += hPrev[p] * u[p*neurons+n]
		}
		dst[n] = sum
	}
}

// RecurrentCell carries the hidden and cell state of one sample through the
// timestep recursion. Reset puts it back in the initial state; Step advances
// it exactly one timestep and never skips.
type RecurrentCell struct {
	layer  *LSTMLayer
	Hidden []float64
	Cell   []float64
}

// NewRecurrentCell creates a cell bound to the layer's parameters.
func NewRecurrentCell(layer *LSTMLayer) *RecurrentCell {
	return &RecurrentCell{
		layer:  layer,
		Hidden: make([]float64, layer.Neurons),
		Cell:   make([]float64, layer.Neurons),
	}
}

// Reset returns the cell to the layer's configured initial state.
func (c *RecurrentCell) Reset() {
	if c.layer.InitialHidden != nil {
		copy(c.Hidden, c.layer.InitialHidden)
	} else {
		for i := range c.Hidden {
			c.Hidden[i] = 0
		}
	}
	if c.layer.InitialCell != nil {
		copy(c.Cell, c.layer.InitialCell)
	} else {
		for i := range c.Cell {
			c.Cell[i] = 0
		}
	}
}

// stepScratch is the per-timestep working area the cell fills on each Step.
// The forward pass copies it into the cache when gradients are requested.
type stepScratch struct {
	forgetComb, inputComb, stateComb, outputComb []float64
	forgetAct, inputAct, stateAct, outputAct     []float64
	forgetDer, inputDer, stateDer, outputDer     []float64
	cellAct, cellDer                             []float64
}

func newStepScratch(neurons int) *stepScratch {
	s := &stepScratch{}
	for _, p := range []*[]float64{
		&s.forgetComb, &s.inputComb, &s.stateComb, &s.outputComb,
		&s.forgetAct, &s.inputAct, &s.stateAct, &s.outputAct,
		&s.forgetDer, &s.inputDer, &s.stateDer, &s.outputDer,
		&s.cellAct, &s.cellDer,
	} {
		*p = make([]float64, neurons)
	}
	return s
}

// Step advances the cell one timestep with the given input row.
//
//	forget/input/output gates: recurrent activation of their combinations
//	state gate:                cell activation of its combination
//	cell  = forget ⊙ cell_prev + input ⊙ state
//	hidden = output ⊙ activation(cell)
func (c *RecurrentCell) Step(x []float64, scratch *stepScratch) {
	l := c.layer
	neurons := l.Neurons

	gateCombination(x, c.Hidden, l.ForgetWeights, l.ForgetRecurrentWeights, l.ForgetBiases, scratch.forgetComb, l.Inputs, neurons)
	gateCombination(x, c.Hidden, l.InputWeights, l.InputRecurrentWeights, l.InputBiases, scratch.inputComb, l.Inputs, neurons)
	gateCombination(x, c.Hidden, l.StateWeights, l.StateRecurrentWeights, l.StateBiases, scratch.stateComb, l.Inputs, neurons)
	gateCombination(x, c.Hidden, l.OutputWeights, l.OutputRecurrentWeights, l.OutputBiases, scratch.outputComb, l.Inputs, neurons)

	activateSlice(scratch.forgetComb, scratch.forgetAct, scratch.forgetDer, l.RecurrentActivation)
	activateSlice(scratch.inputComb, scratch.inputAct, scratch.inputDer, l.RecurrentActivation)
	activateSlice(scratch.outputComb, scratch.outputAct, scratch.outputDer, l.RecurrentActivation)
	activateSlice(scratch.stateComb, scratch.stateAct, scratch.stateDer, l.Activation)

	for n := 0; n < neurons; n++ {
		c.Cell[n] = scratch.forgetAct[n]*c.Cell[n] + scratch.inputAct[n]*scratch.stateAct[n]
		scratch.cellAct[n], scratch.cellDer[n] = ActivatePair(c.Cell[n], l.Activation)
		c.Hidden[n] = scratch.outputAct[n] * scratch.cellAct[n]
	}
}

// LSTMForwardCache stores every intermediate value of one forward pass,
// laid out [batch x timesteps x neurons] flat except the state sequences,
// which include the initial state at index 0 and so run over timesteps+1.
// A cache belongs to exactly one forward/backward call pair.
type LSTMForwardCache struct {
	Batch     int
	Timesteps int
	Inputs    int
	Neurons   int

	Input []float64 // [batch*timesteps*inputs]

	ForgetCombinations []float64
	InputCombinations  []float64
	StateCombinations  []float64
	OutputCombinations []float64

	ForgetActivations []float64
	InputActivations  []float64
	StateActivations  []float64
	OutputActivations []float64

	ForgetDerivatives []float64
	InputDerivatives  []float64
	StateDerivatives  []float64
	OutputDerivatives []float64

	CellStates   []float64 // [batch*(timesteps+1)*neurons]
	HiddenStates []float64 // [batch*(timesteps+1)*neurons]

	CellActivations []float64 // activation(cell state)
	CellDerivatives []float64
}

func newLSTMForwardCache(batch, timesteps, inputs, neurons int) *LSTMForwardCache {
	cache := &LSTMForwardCache{
		Batch:     batch,
		Timesteps: timesteps,
		Inputs:    inputs,
		Neurons:   neurons,
	}
	steps := batch * timesteps * neurons
	for _, p := range []*[]float64{
		&cache.ForgetCombinations, &cache.InputCombinations, &cache.StateCombinations, &cache.OutputCombinations,
		&cache.ForgetActivations, &cache.InputActivations, &cache.StateActivations, &cache.OutputActivations,
		&cache.ForgetDerivatives, &cache.InputDerivatives, &cache.StateDerivatives, &cache.OutputDerivatives,
		&cache.CellActivations, &cache.CellDerivatives,
	} {
		*p = make([]float64, steps)
	}
	cache.CellStates = make([]float64, batch*(timesteps+1)*neurons)
	cache.HiddenStates = make([]float64, batch*(timesteps+1)*neurons)
	cache.Input = make([]float64, batch*timesteps*inputs)
	return cache
}

// stepIndex addresses a [batch x timesteps x neurons] slice.
func (cache *LSTMForwardCache) stepIndex(b, t int) int {
	return (b*cache.Timesteps + t) * cache.Neurons
}

// stateIndex addresses the timesteps+1 state sequences; t=0 is the initial
// state, t=k+1 the state after step k.
func (cache *LSTMForwardCache) stateIndex(b, t int) int {
	return (b*(cache.Timesteps+1) + t) * cache.Neurons
}

// Forward propagates a batch of sequences through the layer.
//
// input is [batch x timesteps x inputs] flat; the returned hidden-state
// sequence is [batch x timesteps x neurons] flat. The cache is required by
// Backward and must not be shared across calls.
func (l *LSTMLayer) Forward(input []float64, batch int) ([]float64, *LSTMForwardCache, error) {
	if l.Timesteps <= 0 {
		return nil, nil, dimensionMismatch("lstm forward: timesteps is %d", l.Timesteps)
	}
	if len(input) != batch*l.Timesteps*l.Inputs {
		return nil, nil, dimensionMismatch("lstm forward: input length %d, want %d (batch=%d, timesteps=%d, inputs=%d)",
			len(input), batch*l.Timesteps*l.Inputs, batch, l.Timesteps, l.Inputs)
	}

	cache := newLSTMForwardCache(batch, l.Timesteps, l.Inputs, l.Neurons)
	copy(cache.Input, input)

	outputs := make([]float64, batch*l.Timesteps*l.Neurons)
	cell := NewRecurrentCell(l)
	scratch := newStepScratch(l.Neurons)

	for b := 0; b < batch; b++ {
		cell.Reset()
		copy(cache.HiddenStates[cache.stateIndex(b, 0):], cell.Hidden)
		copy(cache.CellStates[cache.stateIndex(b, 0):], cell.Cell)

		for t := 0; t < l.Timesteps; t++ {
			x := input[(b*l.Timesteps+t)*l.Inputs : (b*l.Timesteps+t+1)*l.Inputs]
			cell.Step(x, scratch)

			at := cache.stepIndex(b, t)
			copy(cache.ForgetCombinations[at:], scratch.forgetComb)
			copy(cache.InputCombinations[at:], scratch.inputComb)
			copy(cache.StateCombinations[at:], scratch.stateComb)
			copy(cache.OutputCombinations[at:], scratch.outputComb)
			copy(cache.ForgetActivations[at:], scratch.forgetAct)
			copy(cache.InputActivations[at:], scratch.inputAct)
			copy(cache.StateActivations[at:], scratch.stateAct)
			copy(cache.OutputActivations[at:], scratch.outputAct)
			copy(cache.ForgetDerivatives[at:], scratch.forgetDer)
			copy(cache.InputDerivatives[at:], scratch.inputDer)
			copy(cache.StateDerivatives[at:], scratch.stateDer)
			copy(cache.OutputDerivatives[at:], scratch.outputDer)
			copy(cache.CellActivations[at:], scratch.cellAct)
			copy(cache.CellDerivatives[at:], scratch.cellDer)

			copy(cache.HiddenStates[cache.stateIndex(b, t+1):], cell.Hidden)
			copy(cache.CellStates[cache.stateIndex(b, t+1):], cell.Cell)
			copy(outputs[at:at+l.Neurons], cell.Hidden)
		}
	}

	return outputs, cache, nil
}

// Outputs runs the forward pass and discards the cache.
func (l *LSTMLayer) Outputs(input []float64, batch int) ([]float64, error) {
	out, _, err := l.Forward(input, batch)
	return out, err
}
