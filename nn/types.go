package nn

// ActivationFunction selects the nonlinearity applied to a combination.
type ActivationFunction int

const (
	ActivationThreshold ActivationFunction = iota
	ActivationSymmetricThreshold
	ActivationLogistic
	ActivationHyperbolicTangent
	ActivationLinear
	ActivationRectifiedLinear
	ActivationExponentialLinear
	ActivationScaledExponentialLinear
	ActivationSoftPlus
	ActivationSoftSign
	ActivationHardSigmoid
)

var activationNames = map[ActivationFunction]string{
	ActivationThreshold:               "Threshold",
	ActivationSymmetricThreshold:      "SymmetricThreshold",
	ActivationLogistic:                "Logistic",
	ActivationHyperbolicTangent:       "HyperbolicTangent",
	ActivationLinear:                  "Linear",
	ActivationRectifiedLinear:         "RectifiedLinear",
	ActivationExponentialLinear:       "ExponentialLinear",
	ActivationScaledExponentialLinear: "ScaledExponentialLinear",
	ActivationSoftPlus:                "SoftPlus",
	ActivationSoftSign:                "SoftSign",
	ActivationHardSigmoid:             "HardSigmoid",
}

// String returns the canonical name used in XML documents and expressions.
func (a ActivationFunction) String() string {
	if name, ok := activationNames[a]; ok {
		return name
	}
	return "Unknown"
}

// ParseActivation converts a canonical activation name back to its enum
// value. Unrecognized names report ErrInvalidActivationName.
func ParseActivation(name string) (ActivationFunction, error) {
	for a, n := range activationNames {
		if n == name {
			return a, nil
		}
	}
	return 0, invalidActivationName(name)
}

// LayerKind tags the closed set of layer variants a network can hold.
type LayerKind int

const (
	LayerScaling LayerKind = iota
	LayerDense
	LayerLSTM
	LayerProbabilistic
	LayerUnscaling
)

var layerKindNames = map[LayerKind]string{
	LayerScaling:       "Scaling",
	LayerDense:         "Dense",
	LayerLSTM:          "LongShortTermMemory",
	LayerProbabilistic: "Probabilistic",
	LayerUnscaling:     "Unscaling",
}

func (k LayerKind) String() string {
	if name, ok := layerKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Descriptives holds the summary statistics of one variable, used by the
// scaling and unscaling layers.
type Descriptives struct {
	Minimum           float64
	Maximum           float64
	Mean              float64
	StandardDeviation float64
}

// NoLimit marks an unset bound in a Descriptives entry. Scaling methods
// treat a variable with an unset range as pass-through.
const NoLimit = 1.7976931348623157e+308

// Layer is the uniform capability every variant exposes to a Network.
// Dispatch is on the kind tag; there is no deeper hierarchy.
type Layer interface {
	Kind() LayerKind
	InputsNumber() int
	OutputsNumber() int
}
