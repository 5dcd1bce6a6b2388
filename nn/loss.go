package nn

// MeanSquaredError is the default training loss: mean over all entries of
// the squared output-target difference.
type MeanSquaredError struct{}

// Error computes the loss value over a flat batch of outputs and targets.
func (MeanSquaredError) Error(outputs, targets []float64) (float64, error) {
	if len(outputs) != len(targets) {
		return 0, dimensionMismatch("mse: outputs %d, targets %d", len(outputs), len(targets))
	}
	if len(outputs) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range outputs {
		d := outputs[i] - targets[i]
		sum += d * d
	}
	return sum / float64(len(outputs)), nil
}

// OutputGradient computes ∂error/∂outputs, the delta a layer's backward
// pass consumes.
func (MeanSquaredError) OutputGradient(outputs, targets []float64) ([]float64, error) {
	if len(outputs) != len(targets) {
		return nil, dimensionMismatch("mse gradient: outputs %d, targets %d", len(outputs), len(targets))
	}
	grad := make([]float64, len(outputs))
	scale := 2.0 / float64(len(outputs))
	for i := range outputs {
		grad[i] = scale * (outputs[i] - targets[i])
	}
	return grad, nil
}
