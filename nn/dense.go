package nn

import (
	"math"
	"math/rand"
)

// DenseLayer is a fully-connected perceptron layer: weighted sum of the
// inputs plus bias, passed through an elementwise activation.
type DenseLayer struct {
	Inputs  int
	Neurons int

	// Weights is [inputs x neurons] row-major: Weights[i*Neurons+n].
	Weights []float64
	Biases  []float64

	Activation ActivationFunction
}

// NewDenseLayer creates a dense layer with Glorot-initialized weights and
// zero biases.
func NewDenseLayer(inputs, neurons int, activation ActivationFunction) *DenseLayer {
	l := &DenseLayer{
		Inputs:     inputs,
		Neurons:    neurons,
		Weights:    make([]float64, inputs*neurons),
		Biases:     make([]float64, neurons),
		Activation: activation,
	}
	l.SetWeightsGlorot()
	return l
}

func (l *DenseLayer) Kind() LayerKind     { return LayerDense }
func (l *DenseLayer) InputsNumber() int   { return l.Inputs }
func (l *DenseLayer) OutputsNumber() int  { return l.Neurons }
func (l *DenseLayer) ParametersNumber() int {
	return len(l.Weights) + len(l.Biases)
}

// SetWeightsGlorot draws weights from N(0, 2/(inputs+neurons)).
func (l *DenseLayer) SetWeightsGlorot() {
	std := math.Sqrt(2.0 / float64(l.Inputs+l.Neurons))
	for i := range l.Weights {
		l.Weights[i] = rand.NormFloat64() * std
	}
}

// SetParametersConstant fills every weight and bias with the same value.
func (l *DenseLayer) SetParametersConstant(v float64) {
	for i := range l.Weights {
		l.Weights[i] = v
	}
	for i := range l.Biases {
		l.Biases[i] = v
	}
}

// SetParametersRandom fills weights and biases uniformly from [-1, 1].
func (l *DenseLayer) SetParametersRandom() {
	for i := range l.Weights {
		l.Weights[i] = rand.Float64()*2 - 1
	}
	for i := range l.Biases {
		l.Biases[i] = rand.Float64()*2 - 1
	}
}

// Parameters flattens weights then biases into a single vector.
func (l *DenseLayer) Parameters() []float64 {
	p := make([]float64, 0, l.ParametersNumber())
	p = append(p, l.Weights...)
	p = append(p, l.Biases...)
	return p
}

// SetParameters restores a vector produced by Parameters.
func (l *DenseLayer) SetParameters(p []float64) error {
	if len(p) != l.ParametersNumber() {
		return dimensionMismatch("dense parameters: got %d, want %d", len(p), l.ParametersNumber())
	}
	copy(l.Weights, p[:len(l.Weights)])
	copy(l.Biases, p[len(l.Weights):])
	return nil
}

// DenseForwardCache stores one forward pass for the matching backward call.
type DenseForwardCache struct {
	Batch        int
	Input        []float64 // [batch*inputs]
	Combinations []float64 // [batch*neurons]
	Activations  []float64 // [batch*neurons]
	Derivatives  []float64 // [batch*neurons]
}

// Forward computes combinations and activations for a batch of input rows.
// input is [batch*inputs] flat.
func (l *DenseLayer) Forward(input []float64, batch int) ([]float64, *DenseForwardCache, error) {
	if len(input) != batch*l.Inputs {
		return nil, nil, dimensionMismatch("dense forward: input length %d, want %d (batch=%d, inputs=%d)",
			len(input), batch*l.Inputs, batch, l.Inputs)
	}

	cache := &DenseForwardCache{
		Batch:        batch,
		Input:        append([]float64(nil), input...),
		Combinations: make([]float64, batch*l.Neurons),
		Activations:  make([]float64, batch*l.Neurons),
		Derivatives:  make([]float64, batch*l.Neurons),
	}

	for b := 0; b < batch; b++ {
		for n := 0; n < l.Neurons; n++ {
			sum := l.Biases[n]
			for i := 0; i < l.Inputs; i++ {
				sum += input[b*l.Inputs+i] * l.Weights[i*l.Neurons+n]
			}
			idx := b*l.Neurons + n
			cache.Combinations[idx] = sum
			cache.Activations[idx], cache.Derivatives[idx] = ActivatePair(sum, l.Activation)
		}
	}

	return append([]float64(nil), cache.Activations...), cache, nil
}

// Outputs runs the forward pass and discards the cache.
func (l *DenseLayer) Outputs(input []float64, batch int) ([]float64, error) {
	out, _, err := l.Forward(input, batch)
	return out, err
}

// DenseGradients mirrors the layer's parameter shapes.
type DenseGradients struct {
	Weights []float64
	Biases  []float64
}

// Backward consumes the forward cache and the delta with respect to the
// layer outputs, returning the delta with respect to its inputs and the
// parameter gradients accumulated over the batch.
func (l *DenseLayer) Backward(cache *DenseForwardCache, delta []float64) ([]float64, *DenseGradients, error) {
	if cache == nil || len(cache.Combinations) != cache.Batch*l.Neurons {
		return nil, nil, cacheMismatch("dense backward: cache does not match layer shape")
	}
	if len(delta) != cache.Batch*l.Neurons {
		return nil, nil, cacheMismatch("dense backward: delta length %d, want %d",
			len(delta), cache.Batch*l.Neurons)
	}

	grads := &DenseGradients{
		Weights: make([]float64, len(l.Weights)),
		Biases:  make([]float64, len(l.Biases)),
	}
	inputDelta := make([]float64, cache.Batch*l.Inputs)

	for b := 0; b < cache.Batch; b++ {
		for n := 0; n < l.Neurons; n++ {
			idx := b*l.Neurons + n
			d := delta[idx] * cache.Derivatives[idx]
			grads.Biases[n] += d
			for i := 0; i < l.Inputs; i++ {
				grads.Weights[i*l.Neurons+n] += cache.Input[b*l.Inputs+i] * d
				inputDelta[b*l.Inputs+i] += l.Weights[i*l.Neurons+n] * d
			}
		}
	}

	return inputDelta, grads, nil
}

// ApplyGradients performs one gradient-descent step. This is the only write
// path an optimizer gets; parameter slices are never handed out for aliasing.
func (l *DenseLayer) ApplyGradients(g *DenseGradients, rate float64) error {
	if len(g.Weights) != len(l.Weights) || len(g.Biases) != len(l.Biases) {
		return dimensionMismatch("dense update: gradient shapes do not match layer")
	}
	for i := range l.Weights {
		l.Weights[i] -= rate * g.Weights[i]
	}
	for i := range l.Biases {
		l.Biases[i] -= rate * g.Biases[i]
	}
	return nil
}
