package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParameters fills a parameter vector with small deterministic values so
// gradient checks stay away from activation saturation and clamp kinks.
func testParameters(count int) []float64 {
	p := make([]float64, count)
	for i := range p {
		p[i] = 0.4 * math.Sin(float64(i)+1)
	}
	return p
}

func TestDenseForwardManual(t *testing.T) {
	l := NewDenseLayer(2, 1, ActivationLinear)
	l.Weights = []float64{0.5, -0.25}
	l.Biases = []float64{0.1}

	out, err := l.Outputs([]float64{2, 4}, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 2*0.5+4*(-0.25)+0.1, out[0], 1e-12)
}

func TestDenseForwardBatchRowsIndependent(t *testing.T) {
	l := NewDenseLayer(2, 3, ActivationHyperbolicTangent)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	row := []float64{0.3, -0.7}
	single, err := l.Outputs(row, 1)
	require.NoError(t, err)

	batched, err := l.Outputs([]float64{0.9, 0.1, 0.3, -0.7}, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, single, batched[3:], 1e-15)
}

func TestDenseForwardRejectsBadInputLength(t *testing.T) {
	l := NewDenseLayer(3, 2, ActivationLinear)
	_, _, err := l.Forward([]float64{1, 2}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDenseBackwardRejectsMismatchedDelta(t *testing.T) {
	l := NewDenseLayer(2, 2, ActivationLinear)
	_, cache, err := l.Forward([]float64{1, 2}, 1)
	require.NoError(t, err)
	_, _, err = l.Backward(cache, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrCacheMismatch)
}

// Gradient check against central finite differences of L = Σ outputs.
func TestDenseBackwardGradientCheck(t *testing.T) {
	l := NewDenseLayer(3, 2, ActivationLogistic)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	input := []float64{0.2, -0.5, 0.9, -0.1, 0.4, 0.7}
	batch := 2

	out, cache, err := l.Forward(input, batch)
	require.NoError(t, err)

	delta := make([]float64, len(out))
	for i := range delta {
		delta[i] = 1
	}
	inputDelta, grads, err := l.Backward(cache, delta)
	require.NoError(t, err)

	sumOutputs := func() float64 {
		outs, err := l.Outputs(input, batch)
		require.NoError(t, err)
		var s float64
		for _, v := range outs {
			s += v
		}
		return s
	}

	const eps = 1e-5
	params := l.Parameters()
	analytic := append(append([]float64(nil), grads.Weights...), grads.Biases...)
	for p := range params {
		saved := params[p]
		params[p] = saved + eps
		require.NoError(t, l.SetParameters(params))
		plus := sumOutputs()
		params[p] = saved - eps
		require.NoError(t, l.SetParameters(params))
		minus := sumOutputs()
		params[p] = saved
		require.NoError(t, l.SetParameters(params))

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, analytic[p], 1e-6, "parameter %d", p)
	}

	for i := range input {
		saved := input[i]
		input[i] = saved + eps
		plus := sumOutputs()
		input[i] = saved - eps
		minus := sumOutputs()
		input[i] = saved

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, inputDelta[i], 1e-6, "input %d", i)
	}
}

func TestDenseApplyGradientsDescendsLoss(t *testing.T) {
	l := NewDenseLayer(2, 1, ActivationLinear)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	input := []float64{0.5, -0.3}
	target := []float64{0.9}
	loss := MeanSquaredError{}

	out, cache, err := l.Forward(input, 1)
	require.NoError(t, err)
	before, err := loss.Error(out, target)
	require.NoError(t, err)

	delta, err := loss.OutputGradient(out, target)
	require.NoError(t, err)
	_, grads, err := l.Backward(cache, delta)
	require.NoError(t, err)
	require.NoError(t, l.ApplyGradients(grads, 0.1))

	out, err = l.Outputs(input, 1)
	require.NoError(t, err)
	after, err := loss.Error(out, target)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

func TestDenseParametersRoundTrip(t *testing.T) {
	l := NewDenseLayer(4, 3, ActivationRectifiedLinear)
	want := testParameters(l.ParametersNumber())
	require.NoError(t, l.SetParameters(want))
	assert.Equal(t, want, l.Parameters())

	err := l.SetParameters(want[:3])
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
