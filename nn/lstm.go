package nn

import (
	"math"
	"math/rand"
)

// LSTMLayer is a recurrent layer with forget, input, state and output gates.
//
// Each gate owns a weight matrix [inputs x neurons] (row-major,
// w[i*neurons+n]), a recurrent weight matrix [neurons x neurons]
// (u[p*neurons+n]) and a bias vector of length neurons. The forget, input
// and output gate combinations pass through RecurrentActivation; the state
// combination and the cell state pass through Activation.
type LSTMLayer struct {
	Inputs    int
	Neurons   int
	Timesteps int

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

	Activation          ActivationFunction
	RecurrentActivation ActivationFunction

	// Initial hidden and cell state per sequence. Nil means zero.
	InitialHidden []float64
	InitialCell   []float64
}

// NewLSTMLayer creates an LSTM layer with Glorot-initialized weights, zero
// biases, tanh cell activation and hard-sigmoid gate activation.
func NewLSTMLayer(inputs, neurons, timesteps int) *LSTMLayer {
	l := &LSTMLayer{
		Inputs:    inputs,
		Neurons:   neurons,
		Timesteps: timesteps,

		ForgetWeights: make([]float64, inputs*neurons),
		InputWeights:  make([]float64, inputs*neurons),
		StateWeights:  make([]float64, inputs*neurons),
		OutputWeights: make([]float64, inputs*neurons),

		ForgetRecurrentWeights: make([]float64, neurons*neurons),
		InputRecurrentWeights:  make([]float64, neurons*neurons),
		StateRecurrentWeights:  make([]float64, neurons*neurons),
		OutputRecurrentWeights: make([]float64, neurons*neurons),

		ForgetBiases: make([]float64, neurons),
		InputBiases:  make([]float64, neurons),
		StateBiases:  make([]float64, neurons),
		OutputBiases: make([]float64, neurons),

		Activation:          ActivationHyperbolicTangent,
		RecurrentActivation: ActivationHardSigmoid,
	}
	l.SetWeightsGlorot()
	return l
}

func (l *LSTMLayer) Kind() LayerKind    { return LayerLSTM }
func (l *LSTMLayer) InputsNumber() int  { return l.Inputs }
func (l *LSTMLayer) OutputsNumber() int { return l.Neurons }

func (l *LSTMLayer) weightGroups() [][]float64 {
	return [][]float64{l.ForgetWeights, l.InputWeights, l.StateWeights, l.OutputWeights}
}

func (l *LSTMLayer) recurrentGroups() [][]float64 {
	return [][]float64{l.ForgetRecurrentWeights, l.InputRecurrentWeights, l.StateRecurrentWeights, l.OutputRecurrentWeights}
}

func (l *LSTMLayer) biasGroups() [][]float64 {
	return [][]float64{l.ForgetBiases, l.InputBiases, l.StateBiases, l.OutputBiases}
}

// ParametersNumber counts every weight, recurrent weight and bias.
func (l *LSTMLayer) ParametersNumber() int {
	return 4 * (l.Inputs*l.Neurons + l.Neurons*l.Neurons + l.Neurons)
}

// Parameters flattens the parameter groups in gate order forget, input,
// state, output; within a gate: weights, recurrent weights, biases.
func (l *LSTMLayer) Parameters() []float64 {
	p := make([]float64, 0, l.ParametersNumber())
	w, u, b := l.weightGroups(), l.recurrentGroups(), l.biasGroups()
	for g := 0; g < 4; g++ {
		p = append(p, w[g]...)
		p = append(p, u[g]...)
		p = append(p, b[g]...)
	}
	return p
}

// SetParameters restores a vector produced by Parameters.
func (l *LSTMLayer) SetParameters(p []float64) error {
	if len(p) != l.ParametersNumber() {
		return dimensionMismatch("lstm parameters: got %d, want %d", len(p), l.ParametersNumber())
	}
	w, u, b := l.weightGroups(), l.recurrentGroups(), l.biasGroups()
	pos := 0
	for g := 0; g < 4; g++ {
		pos += copy(w[g], p[pos:])
		pos += copy(u[g], p[pos:])
		pos += copy(b[g], p[pos:])
	}
	return nil
}

// SetWeightsGlorot draws all weights from the Glorot normal distributions
// for their fan-in/fan-out and leaves biases at zero.
func (l *LSTMLayer) SetWeightsGlorot() {
	stdW := math.Sqrt(2.0 / float64(l.Inputs+l.Neurons))
	stdU := math.Sqrt(2.0 / float64(l.Neurons+l.Neurons))
	for _, w := range l.weightGroups() {
		for i := range w {
			w[i] = rand.NormFloat64() * stdW
		}
	}
	for _, u := range l.recurrentGroups() {
		for i := range u {
			u[i] = rand.NormFloat64() * stdU
		}
	}
}

// SetParametersConstant fills every parameter group with the same value.
func (l *LSTMLayer) SetParametersConstant(v float64) {
	for _, group := range [][][]float64{l.weightGroups(), l.recurrentGroups(), l.biasGroups()} {
		for _, s := range group {
			for i := range s {
				s[i] = v
			}
		}
	}
}

// SetParametersRandom fills every parameter uniformly from [-1, 1].
func (l *LSTMLayer) SetParametersRandom() {
	for _, group := range [][][]float64{l.weightGroups(), l.recurrentGroups(), l.biasGroups()} {
		for _, s := range group {
			for i := range s {
				s[i] = rand.Float64()*2 - 1
			}
		}
	}
}

// InitializeBiases sets all four bias vectors to the same value.
func (l *LSTMLayer) InitializeBiases(v float64) {
	for _, b := range l.biasGroups() {
		for i := range b {
			b[i] = v
		}
	}
}

// InitializeForgetBiases sets only the forget biases. A positive value makes
// the layer remember by default.
func (l *LSTMLayer) InitializeForgetBiases(v float64) {
	for i := range l.ForgetBiases {
		l.ForgetBiases[i] = v
	}
}

// SetInitialState overrides the zero initial hidden and cell state used at
// the start of every sequence.
func (l *LSTMLayer) SetInitialState(hidden, cell []float64) error {
	if len(hidden) != l.Neurons || len(cell) != l.Neurons {
		return dimensionMismatch("initial state length: hidden %d, cell %d, want %d",
			len(hidden), len(cell), l.Neurons)
	}
	l.InitialHidden = append([]float64(nil), hidden...)
	l.InitialCell = append([]float64(nil), cell...)
	return nil
}

// ApplyGradients performs one gradient-descent step over all twelve
// parameter groups. This is the only write path an optimizer gets.
func (l *LSTMLayer) ApplyGradients(g *LSTMGradients, rate float64) error {
	if g.Inputs != l.Inputs || g.Neurons != l.Neurons {
		return dimensionMismatch("lstm update: gradients are [%d x %d], layer is [%d x %d]",
			g.Inputs, g.Neurons, l.Inputs, l.Neurons)
	}
	w, u, b := l.weightGroups(), l.recurrentGroups(), l.biasGroups()
	gw, gu, gb := g.weightGroups(), g.recurrentGroups(), g.biasGroups()
	for i := 0; i < 4; i++ {
		for j := range w[i] {
			w[i][j] -= rate * gw[i][j]
		}
		for j := range u[i] {
			u[i][j] -= rate * gu[i][j]
		}
		for j := range b[i] {
			b[i][j] -= rate * gb[i][j]
		}
	}
	return nil
}
