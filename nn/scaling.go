package nn

import (
	"math"
)

// ScalingMethod selects how a ScalingLayer maps raw variables onto the
// network's working range.
type ScalingMethod int

const (
	ScalingNone ScalingMethod = iota
	ScalingMinimumMaximum
	ScalingMeanStandardDeviation
)

// UnscalingMethod selects how an UnscalingLayer maps network outputs back
// to the original variable range.
type UnscalingMethod int

const (
	UnscalingNone UnscalingMethod = iota
	UnscalingMinimumMaximum
	UnscalingMeanStandardDeviation
	UnscalingLogarithmic
)

// ScalingLayer maps each input variable onto [-1, 1] (minimum-maximum) or
// to zero mean and unit deviation. Variables with unset bounds pass through.
type ScalingLayer struct {
	Descriptives []Descriptives
	Method       ScalingMethod
}

// NewScalingLayer creates a scaling layer with unset descriptives for the
// given number of variables, using the minimum-maximum method.
func NewScalingLayer(variables int) *ScalingLayer {
	d := make([]Descriptives, variables)
	for i := range d {
		d[i] = Descriptives{Minimum: -NoLimit, Maximum: NoLimit, StandardDeviation: 1}
	}
	return &ScalingLayer{Descriptives: d, Method: ScalingMinimumMaximum}
}

func (l *ScalingLayer) Kind() LayerKind    { return LayerScaling }
func (l *ScalingLayer) InputsNumber() int  { return len(l.Descriptives) }
func (l *ScalingLayer) OutputsNumber() int { return len(l.Descriptives) }

func (d Descriptives) unbounded() bool {
	return d.Minimum <= -NoLimit || d.Maximum >= NoLimit
}

// Outputs scales a batch of input rows, [batch x variables] flat.
func (l *ScalingLayer) Outputs(input []float64, batch int) ([]float64, error) {
	variables := len(l.Descriptives)
	if len(input) != batch*variables {
		return nil, dimensionMismatch("scaling: input length %d, want %d (batch=%d, variables=%d)",
			len(input), batch*variables, batch, variables)
	}
	out := make([]float64, len(input))
	for b := 0; b < batch; b++ {
		for j, d := range l.Descriptives {
			x := input[b*variables+j]
			idx := b*variables + j
			switch {
			case l.Method == ScalingNone || d.unbounded():
				out[idx] = x
			case l.Method == ScalingMinimumMaximum:
				if d.Maximum-d.Minimum < 1e-12 {
					out[idx] = x
				} else {
					out[idx] = 2*(x-d.Minimum)/(d.Maximum-d.Minimum) - 1
				}
			case l.Method == ScalingMeanStandardDeviation:
				if d.StandardDeviation < 1e-12 {
					out[idx] = x
				} else {
					out[idx] = (x - d.Mean) / d.StandardDeviation
				}
			default:
				out[idx] = x
			}
		}
	}
	return out, nil
}

// UnscalingLayer is the inverse of ScalingLayer for the network outputs.
type UnscalingLayer struct {
	Descriptives []Descriptives
	Method       UnscalingMethod
}

// NewUnscalingLayer creates an unscaling layer with unset descriptives,
// using the minimum-maximum method.
func NewUnscalingLayer(variables int) *UnscalingLayer {
	d := make([]Descriptives, variables)
	for i := range d {
		d[i] = Descriptives{Minimum: -NoLimit, Maximum: NoLimit, StandardDeviation: 1}
	}
	return &UnscalingLayer{Descriptives: d, Method: UnscalingMinimumMaximum}
}

func (l *UnscalingLayer) Kind() LayerKind    { return LayerUnscaling }
func (l *UnscalingLayer) InputsNumber() int  { return len(l.Descriptives) }
func (l *UnscalingLayer) OutputsNumber() int { return len(l.Descriptives) }

// Minimums returns the configured minimum of every variable.
func (l *UnscalingLayer) Minimums() []float64 {
	m := make([]float64, len(l.Descriptives))
	for i, d := range l.Descriptives {
		m[i] = d.Minimum
	}
	return m
}

// Maximums returns the configured maximum of every variable.
func (l *UnscalingLayer) Maximums() []float64 {
	m := make([]float64, len(l.Descriptives))
	for i, d := range l.Descriptives {
		m[i] = d.Maximum
	}
	return m
}

// Outputs unscales a batch of output rows, [batch x variables] flat.
//
//	minimum-maximum: y = 0.5*(x+1)*(max-min) + min
//	mean-std:        y = x*sd + mean
//	logarithmic:     y = 0.5*(exp(x)+1)*(max-min) + min
func (l *UnscalingLayer) Outputs(input []float64, batch int) ([]float64, error) {
	variables := len(l.Descriptives)
	if len(input) != batch*variables {
		return nil, dimensionMismatch("unscaling: input length %d, want %d (batch=%d, variables=%d)",
			len(input), batch*variables, batch, variables)
	}
	out := make([]float64, len(input))
	for b := 0; b < batch; b++ {
		for j, d := range l.Descriptives {
			x := input[b*variables+j]
			idx := b*variables + j
			switch {
			case l.Method == UnscalingNone || d.unbounded():
				out[idx] = x
			case l.Method == UnscalingMinimumMaximum:
				out[idx] = 0.5*(x+1)*(d.Maximum-d.Minimum) + d.Minimum
			case l.Method == UnscalingMeanStandardDeviation:
				out[idx] = x*d.StandardDeviation + d.Mean
			case l.Method == UnscalingLogarithmic:
				out[idx] = 0.5*(math.Exp(x)+1)*(d.Maximum-d.Minimum) + d.Minimum
			default:
				out[idx] = x
			}
		}
	}
	return out, nil
}
