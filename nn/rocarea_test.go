package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRocAreaPerfectSeparation(t *testing.T) {
	r := RocAreaError{Smoothing: 0.01}
	outputs := []float64{0.9, 0.95, 0.1, 0.05}
	targets := []float64{1, 1, 0, 0}

	value, err := r.Error(outputs, targets)
	require.NoError(t, err)
	assert.InDelta(t, 0, value, 1e-6)
}

func TestRocAreaInvertedSeparation(t *testing.T) {
	r := RocAreaError{Smoothing: 0.01}
	outputs := []float64{0.1, 0.05, 0.9, 0.95}
	targets := []float64{1, 1, 0, 0}

	value, err := r.Error(outputs, targets)
	require.NoError(t, err)
	assert.InDelta(t, 1, value, 1e-6)
}

func TestRocAreaIndistinguishableScores(t *testing.T) {
	r := RocAreaError{}
	value, err := r.Error([]float64{0.5, 0.5}, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, value, 1e-12)
}

func TestRocAreaRequiresBothClasses(t *testing.T) {
	r := RocAreaError{}
	_, err := r.Error([]float64{0.2, 0.7}, []float64{1, 1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = r.OutputGradient([]float64{0.2, 0.7}, []float64{0, 0})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRocAreaRejectsMismatchedLengths(t *testing.T) {
	r := RocAreaError{}
	_, err := r.Error([]float64{0.2}, []float64{1, 0})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRocAreaGradientCheck(t *testing.T) {
	r := RocAreaError{}
	outputs := []float64{0.62, 0.48, 0.55, 0.31, 0.7}
	targets := []float64{1, 0, 1, 0, 0}

	grad, err := r.OutputGradient(outputs, targets)
	require.NoError(t, err)
	require.Len(t, grad, len(outputs))

	const eps = 1e-6
	for i := range outputs {
		saved := outputs[i]
		outputs[i] = saved + eps
		plus, err := r.Error(outputs, targets)
		require.NoError(t, err)
		outputs[i] = saved - eps
		minus, err := r.Error(outputs, targets)
		require.NoError(t, err)
		outputs[i] = saved

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, grad[i], 1e-8, "output %d", i)
	}
}

func TestRocAreaGradientImprovesRanking(t *testing.T) {
	r := RocAreaError{}
	outputs := []float64{0.4, 0.6}
	targets := []float64{1, 0}

	before, err := r.Error(outputs, targets)
	require.NoError(t, err)
	grad, err := r.OutputGradient(outputs, targets)
	require.NoError(t, err)

	for i := range outputs {
		outputs[i] -= 0.5 * grad[i]
	}
	after, err := r.Error(outputs, targets)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

func TestMeanSquaredErrorValueAndGradient(t *testing.T) {
	loss := MeanSquaredError{}
	outputs := []float64{1, 3}
	targets := []float64{0, 1}

	value, err := loss.Error(outputs, targets)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+4.0)/2, value, 1e-12)

	grad, err := loss.OutputGradient(outputs, targets)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2}, grad, 1e-12)

	_, err = loss.Error(outputs, targets[:1])
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
