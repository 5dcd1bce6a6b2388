package nn

import (
	"math"
)

// SELU constants from Klambauer et al.
const (
	seluLambda = 1.0507009873554805
	seluAlpha  = 1.6732632423543772
)

// Activate applies the activation function to a single combination value.
func Activate(v float64, activation ActivationFunction) float64 {
	switch activation {
	case ActivationThreshold:
		if v >= 0 {
			return 1
		}
		return 0
	case ActivationSymmetricThreshold:
		if v >= 0 {
			return 1
		}
		return -1
	case ActivationLogistic:
		return 1.0 / (1.0 + math.Exp(-v))
	case ActivationHyperbolicTangent:
		return math.Tanh(v)
	case ActivationLinear:
		return v
	case ActivationRectifiedLinear:
		if v < 0 {
			return 0
		}
		return v
	case ActivationExponentialLinear:
		if v > 0 {
			return v
		}
		return math.Exp(v) - 1
	case ActivationScaledExponentialLinear:
		if v > 0 {
			return seluLambda * v
		}
		return seluLambda * seluAlpha * (math.Exp(v) - 1)
	case ActivationSoftPlus:
		return math.Log(1.0 + math.Exp(v))
	case ActivationSoftSign:
		return v / (1.0 + math.Abs(v))
	case ActivationHardSigmoid:
		s := 0.2*v + 0.5
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	default:
		return v
	}
}

// ActivateDerivative computes the derivative of the activation with respect
// to the combination value. Non-differentiable points of the threshold
// variants report zero.
func ActivateDerivative(v float64, activation ActivationFunction) float64 {
	switch activation {
	case ActivationThreshold, ActivationSymmetricThreshold:
		return 0
	case ActivationLogistic:
		sig := 1.0 / (1.0 + math.Exp(-v))
		return sig * (1.0 - sig)
	case ActivationHyperbolicTangent:
		t := math.Tanh(v)
		return 1.0 - t*t
	case ActivationLinear:
		return 1
	case ActivationRectifiedLinear:
		if v > 0 {
			return 1
		}
		return 0
	case ActivationExponentialLinear:
		if v > 0 {
			return 1
		}
		return math.Exp(v)
	case ActivationScaledExponentialLinear:
		if v > 0 {
			return seluLambda
		}
		return seluLambda * seluAlpha * math.Exp(v)
	case ActivationSoftPlus:
		return 1.0 / (1.0 + math.Exp(-v))
	case ActivationSoftSign:
		d := 1.0 + math.Abs(v)
		return 1.0 / (d * d)
	case ActivationHardSigmoid:
		s := 0.2*v + 0.5
		if s <= 0 || s >= 1 {
			return 0
		}
		return 0.2
	default:
		return 1
	}
}

// ActivatePair returns activation and derivative in one pass so the forward
// recursion can cache both without recomputing the transcendentals.
func ActivatePair(v float64, activation ActivationFunction) (float64, float64) {
	switch activation {
	case ActivationLogistic:
		sig := 1.0 / (1.0 + math.Exp(-v))
		return sig, sig * (1.0 - sig)
	case ActivationHyperbolicTangent:
		t := math.Tanh(v)
		return t, 1.0 - t*t
	case ActivationSoftPlus:
		e := math.Exp(v)
		return math.Log(1.0 + e), e / (1.0 + e)
	default:
		return Activate(v, activation), ActivateDerivative(v, activation)
	}
}

// activateSlice applies the activation elementwise, writing activations into
// dst and derivatives into deriv. Both destinations must match src in length.
func activateSlice(src, dst, deriv []float64, activation ActivationFunction) {
	for i, v := range src {
		dst[i], deriv[i] = ActivatePair(v, activation)
	}
}
