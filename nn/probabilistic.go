package nn

import (
	"math"
)

// ProbabilisticLayer turns a row of combinations into a probability
// distribution with a row-wise softmax.
type ProbabilisticLayer struct {
	Neurons int
}

// NewProbabilisticLayer creates a softmax layer over the given width.
func NewProbabilisticLayer(neurons int) *ProbabilisticLayer {
	return &ProbabilisticLayer{Neurons: neurons}
}

func (l *ProbabilisticLayer) Kind() LayerKind    { return LayerProbabilistic }
func (l *ProbabilisticLayer) InputsNumber() int  { return l.Neurons }
func (l *ProbabilisticLayer) OutputsNumber() int { return l.Neurons }

// Outputs applies softmax per batch row, shifting by the row maximum for
// numeric stability.
func (l *ProbabilisticLayer) Outputs(input []float64, batch int) ([]float64, error) {
	if len(input) != batch*l.Neurons {
		return nil, dimensionMismatch("probabilistic: input length %d, want %d (batch=%d, neurons=%d)",
			len(input), batch*l.Neurons, batch, l.Neurons)
	}
	out := make([]float64, len(input))
	for b := 0; b < batch; b++ {
		row := input[b*l.Neurons : (b+1)*l.Neurons]
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math.Exp(v - max)
			out[b*l.Neurons+i] = e
			sum += e
		}
		for i := range row {
			out[b*l.Neurons+i] /= sum
		}
	}
	return out, nil
}

// Backward computes the Jacobian-vector product of the softmax:
// deltaIn_i = Σ_j delta_j · y_j · (δ_ij − y_i), per batch row.
// outputs must be the values produced by Outputs for the same rows.
func (l *ProbabilisticLayer) Backward(outputs, delta []float64, batch int) ([]float64, error) {
	if len(outputs) != batch*l.Neurons || len(delta) != batch*l.Neurons {
		return nil, cacheMismatch("probabilistic backward: outputs %d, delta %d, want %d",
			len(outputs), len(delta), batch*l.Neurons)
	}
	inputDelta := make([]float64, len(delta))
	for b := 0; b < batch; b++ {
		base := b * l.Neurons
		for i := 0; i < l.Neurons; i++ {
			var sum float64
			for j := 0; j < l.Neurons; j++ {
				kronecker := 0.0
				if i == j {
					kronecker = 1.0
				}
				sum += delta[base+j] * outputs[base+j] * (kronecker - outputs[base+i])
			}
			inputDelta[base+i] = sum
		}
	}
	return inputDelta, nil
}
