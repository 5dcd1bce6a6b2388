package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLSTMZeroParametersGiveZeroOutputs(t *testing.T) {
	l := NewLSTMLayer(2, 3, 4)
	l.SetParametersConstant(0)

	input := make([]float64, 2*4*2)
	for i := range input {
		input[i] = float64(i%5) - 2
	}
	out, err := l.Outputs(input, 2)
	require.NoError(t, err)
	for i, v := range out {
		assert.Zero(t, v, "output %d", i)
	}
}

// One neuron, one timestep, unit input weights: every gate sees the raw
// input, so the hidden state is sigma(2)^2 * 2 for input 2.
func TestLSTMSingleStepByHand(t *testing.T) {
	l := NewLSTMLayer(1, 1, 1)
	l.SetParametersConstant(0)
	l.ForgetWeights[0] = 1
	l.InputWeights[0] = 1
	l.StateWeights[0] = 1
	l.OutputWeights[0] = 1
	l.Activation = ActivationLinear
	l.RecurrentActivation = ActivationLogistic

	out, cache, err := l.Forward([]float64{2}, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)

	// sigma(2) = 0.88080, cell = 0.88080*2, hidden = 0.88080*cell.
	assert.InDelta(t, 0.8808, cache.InputActivations[0], 1e-3)
	assert.InDelta(t, 1.7616, cache.CellStates[cache.stateIndex(0, 1)], 1e-3)
	assert.InDelta(t, 1.5516, out[0], 1e-3)
}

func TestLSTMForwardDeterministic(t *testing.T) {
	l := NewLSTMLayer(2, 3, 5)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	input := testParameters(1 * 5 * 2)
	first, err := l.Outputs(input, 1)
	require.NoError(t, err)
	second, err := l.Outputs(input, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLSTMSequencesStartFromSameInitialState(t *testing.T) {
	l := NewLSTMLayer(1, 2, 3)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	sequence := []float64{0.4, -0.2, 0.9}
	out, err := l.Outputs(append(append([]float64(nil), sequence...), sequence...), 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, out[:3*2], out[3*2:], 1e-15)
}

func TestLSTMSequentialDependency(t *testing.T) {
	l := NewLSTMLayer(1, 2, 3)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	base := []float64{0.4, -0.2, 0.9}
	baseOut, err := l.Outputs(base, 1)
	require.NoError(t, err)

	// Perturbing the first timestep propagates to every later output.
	early := append([]float64(nil), base...)
	early[0] += 0.5
	earlyOut, err := l.Outputs(early, 1)
	require.NoError(t, err)
	assert.NotEqual(t, baseOut[2*2:], earlyOut[2*2:])

	// Perturbing the last timestep leaves earlier outputs untouched.
	late := append([]float64(nil), base...)
	late[2] += 0.5
	lateOut, err := l.Outputs(late, 1)
	require.NoError(t, err)
	assert.Equal(t, baseOut[:2*2], lateOut[:2*2])
	assert.NotEqual(t, baseOut[2*2:], lateOut[2*2:])
}

func TestLSTMInitialStateChangesFirstStep(t *testing.T) {
	l := NewLSTMLayer(1, 2, 2)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	input := []float64{0.3, -0.6}
	zeroStart, err := l.Outputs(input, 1)
	require.NoError(t, err)

	require.NoError(t, l.SetInitialState([]float64{0.5, -0.5}, []float64{0.2, 0.1}))
	warmStart, err := l.Outputs(input, 1)
	require.NoError(t, err)
	assert.NotEqual(t, zeroStart[:2], warmStart[:2])

	err = l.SetInitialState([]float64{1}, []float64{1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLSTMForwardRejectsBadInputLength(t *testing.T) {
	l := NewLSTMLayer(2, 2, 3)
	_, _, err := l.Forward(make([]float64, 5), 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLSTMBackwardRejectsForeignCache(t *testing.T) {
	l := NewLSTMLayer(2, 2, 3)
	other := NewLSTMLayer(2, 3, 3)

	_, cache, err := other.Forward(make([]float64, 1*3*2), 1)
	require.NoError(t, err)

	_, _, err = l.Backward(nil, make([]float64, 1*3*2))
	require.ErrorIs(t, err, ErrCacheMismatch)

	_, _, err = l.Backward(cache, make([]float64, 1*3*3))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLSTMBackwardRejectsMismatchedDelta(t *testing.T) {
	l := NewLSTMLayer(2, 2, 3)
	_, cache, err := l.Forward(make([]float64, 1*3*2), 1)
	require.NoError(t, err)
	_, _, err = l.Backward(cache, make([]float64, 7))
	require.ErrorIs(t, err, ErrCacheMismatch)
}

// Full BPTT gradient check against central finite differences of
// L = Σ outputs over every parameter and every input entry.
func TestLSTMBackwardGradientCheck(t *testing.T) {
	const (
		inputs    = 2
		neurons   = 2
		timesteps = 3
		batch     = 2
	)
	l := NewLSTMLayer(inputs, neurons, timesteps)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))

	input := testParameters(batch * timesteps * inputs)

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
	analytic := grads.Parameters()
	require.Len(t, analytic, len(params))

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
		tolerance := 1e-6 + 1e-4*abs(numeric)
		assert.InDelta(t, numeric, analytic[p], tolerance, "parameter %d", p)
	}

	for i := range input {
		saved := input[i]
		input[i] = saved + eps
		plus := sumOutputs()
		input[i] = saved - eps
		minus := sumOutputs()
		input[i] = saved

		numeric := (plus - minus) / (2 * eps)
		tolerance := 1e-6 + 1e-4*abs(numeric)
		assert.InDelta(t, numeric, inputDelta[i], tolerance, "input %d", i)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestLSTMParametersRoundTrip(t *testing.T) {
	l := NewLSTMLayer(3, 2, 4)
	assert.Equal(t, 4*(3*2+2*2+2), l.ParametersNumber())

	want := testParameters(l.ParametersNumber())
	require.NoError(t, l.SetParameters(want))
	assert.Equal(t, want, l.Parameters())

	err := l.SetParameters(want[:5])
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLSTMForgetBiasInitialization(t *testing.T) {
	l := NewLSTMLayer(2, 3, 1)
	l.SetParametersConstant(0)
	l.InitializeForgetBiases(1)
	assert.Equal(t, []float64{1, 1, 1}, l.ForgetBiases)
	assert.Equal(t, []float64{0, 0, 0}, l.InputBiases)
}

func TestRecurrentCellResetRestoresInitialState(t *testing.T) {
	l := NewLSTMLayer(1, 2, 2)
	require.NoError(t, l.SetParameters(testParameters(l.ParametersNumber())))
	require.NoError(t, l.SetInitialState([]float64{0.3, -0.1}, []float64{0.2, 0.4}))

	cell := NewRecurrentCell(l)
	cell.Reset()
	assert.Equal(t, []float64{0.3, -0.1}, cell.Hidden)
	assert.Equal(t, []float64{0.2, 0.4}, cell.Cell)

	scratch := newStepScratch(l.Neurons)
	cell.Step([]float64{0.7}, scratch)
	assert.NotEqual(t, []float64{0.3, -0.1}, cell.Hidden)

	cell.Reset()
	assert.Equal(t, []float64{0.3, -0.1}, cell.Hidden)
	assert.Equal(t, []float64{0.2, 0.4}, cell.Cell)
}
