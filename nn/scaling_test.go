package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundedDescriptives() []Descriptives {
	return []Descriptives{
		{Minimum: -2, Maximum: 6, Mean: 1, StandardDeviation: 1.5},
		{Minimum: 0, Maximum: 10, Mean: 4, StandardDeviation: 2},
	}
}

func TestScalingMinimumMaximumRange(t *testing.T) {
	l := NewScalingLayer(2)
	l.Descriptives = boundedDescriptives()

	out, err := l.Outputs([]float64{-2, 0, 6, 10, 2, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, -1, out[0], 1e-12)
	assert.InDelta(t, -1, out[1], 1e-12)
	assert.InDelta(t, 1, out[2], 1e-12)
	assert.InDelta(t, 1, out[3], 1e-12)
	assert.InDelta(t, 0, out[4], 1e-12)
	assert.InDelta(t, 0, out[5], 1e-12)
}

func TestScalingMeanStandardDeviation(t *testing.T) {
	l := NewScalingLayer(2)
	l.Descriptives = boundedDescriptives()
	l.Method = ScalingMeanStandardDeviation

	out, err := l.Outputs([]float64{1, 4, 4, 8}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0, out[0], 1e-12)
	assert.InDelta(t, 0, out[1], 1e-12)
	assert.InDelta(t, 2, out[2], 1e-12)
	assert.InDelta(t, 2, out[3], 1e-12)
}

func TestScalingUnsetBoundsPassThrough(t *testing.T) {
	l := NewScalingLayer(2)
	input := []float64{3.7, -41.2}
	out, err := l.Outputs(input, 1)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestScalingRejectsBadInputLength(t *testing.T) {
	l := NewScalingLayer(3)
	_, err := l.Outputs([]float64{1, 2}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScaleUnscaleRoundTrip(t *testing.T) {
	scaling := NewScalingLayer(2)
	scaling.Descriptives = boundedDescriptives()
	unscaling := NewUnscalingLayer(2)
	unscaling.Descriptives = boundedDescriptives()

	input := []float64{-1.5, 2.25, 4.8, 9.1}
	scaled, err := scaling.Outputs(input, 2)
	require.NoError(t, err)
	restored, err := unscaling.Outputs(scaled, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, input, restored, 1e-12)
}

func TestScaleUnscaleRoundTripMeanStandardDeviation(t *testing.T) {
	scaling := NewScalingLayer(2)
	scaling.Descriptives = boundedDescriptives()
	scaling.Method = ScalingMeanStandardDeviation
	unscaling := NewUnscalingLayer(2)
	unscaling.Descriptives = boundedDescriptives()
	unscaling.Method = UnscalingMeanStandardDeviation

	input := []float64{-1.5, 2.25, 4.8, 9.1}
	scaled, err := scaling.Outputs(input, 2)
	require.NoError(t, err)
	restored, err := unscaling.Outputs(scaled, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, input, restored, 1e-12)
}

func TestUnscalingMinimumMaximumEndpoints(t *testing.T) {
	l := NewUnscalingLayer(1)
	l.Descriptives = []Descriptives{{Minimum: 10, Maximum: 30}}

	out, err := l.Outputs([]float64{-1, 0, 1}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10, out[0], 1e-12)
	assert.InDelta(t, 20, out[1], 1e-12)
	assert.InDelta(t, 30, out[2], 1e-12)
}

func TestUnscalingLogarithmic(t *testing.T) {
	l := NewUnscalingLayer(1)
	l.Descriptives = []Descriptives{{Minimum: 2, Maximum: 8}}
	l.Method = UnscalingLogarithmic

	out, err := l.Outputs([]float64{0, 1}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*(1+1)*6+2, out[0], 1e-12)
	assert.InDelta(t, 0.5*(math.E+1)*6+2, out[1], 1e-12)
}

func TestUnscalingBoundsAccessors(t *testing.T) {
	l := NewUnscalingLayer(2)
	l.Descriptives = boundedDescriptives()
	assert.Equal(t, []float64{-2, 0}, l.Minimums())
	assert.Equal(t, []float64{6, 10}, l.Maximums())
}
