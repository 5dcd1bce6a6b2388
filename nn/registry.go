package nn

import (
	"github.com/pkg/errors"
)

var scalingMethodNames = map[ScalingMethod]string{
	ScalingNone:                  "NoScaling",
	ScalingMinimumMaximum:        "MinimumMaximum",
	ScalingMeanStandardDeviation: "MeanStandardDeviation",
}

var unscalingMethodNames = map[UnscalingMethod]string{
	UnscalingNone:                  "NoUnscaling",
	UnscalingMinimumMaximum:        "MinimumMaximum",
	UnscalingMeanStandardDeviation: "MeanStandardDeviation",
	UnscalingLogarithmic:           "Logarithmic",
}

// ParseScalingMethod converts a method name from a model document.
func ParseScalingMethod(name string) (ScalingMethod, error) {
	for m, n := range scalingMethodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown scaling method %q", name)
}

// ParseUnscalingMethod converts a method name from a model document.
func ParseUnscalingMethod(name string) (UnscalingMethod, error) {
	for m, n := range unscalingMethodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown unscaling method %q", name)
}

// layerBuilder turns a parsed layer document into a live layer.
type layerBuilder func(doc layerDocument) (Layer, error)

// layerBuilders maps the kind name stored in model documents to the
// builder that reconstructs the variant.
var layerBuilders = map[string]layerBuilder{
	LayerScaling.String():       buildScalingLayer,
	LayerUnscaling.String():     buildUnscalingLayer,
	LayerDense.String():         buildDenseLayer,
	LayerProbabilistic.String(): buildProbabilisticLayer,
	LayerLSTM.String():          buildLSTMLayer,
}

func buildLayer(doc layerDocument) (Layer, error) {
	builder, ok := layerBuilders[doc.Kind]
	if !ok {
		return nil, errors.Errorf("unknown layer kind %q", doc.Kind)
	}
	return builder(doc)
}

func buildScalingLayer(doc layerDocument) (Layer, error) {
	method, err := ParseScalingMethod(doc.Method)
	if err != nil {
		return nil, err
	}
	return &ScalingLayer{
		Descriptives: documentsToDescriptives(doc.Descriptives),
		Method:       method,
	}, nil
}

func buildUnscalingLayer(doc layerDocument) (Layer, error) {
	method, err := ParseUnscalingMethod(doc.Method)
	if err != nil {
		return nil, err
	}
	return &UnscalingLayer{
		Descriptives: documentsToDescriptives(doc.Descriptives),
		Method:       method,
	}, nil
}

func buildDenseLayer(doc layerDocument) (Layer, error) {
	activation, err := ParseActivation(doc.ActivationFunction)
	if err != nil {
		return nil, err
	}
	l := &DenseLayer{
		Inputs:     doc.InputsNumber,
		Neurons:    doc.NeuronsNumber,
		Weights:    append([]float64(nil), doc.Weights...),
		Biases:     append([]float64(nil), doc.Biases...),
		Activation: activation,
	}
	if len(l.Weights) != l.Inputs*l.Neurons || len(l.Biases) != l.Neurons {
		return nil, dimensionMismatch("dense document: %d weights and %d biases for [%d x %d]",
			len(l.Weights), len(l.Biases), l.Inputs, l.Neurons)
	}
	return l, nil
}

func buildProbabilisticLayer(doc layerDocument) (Layer, error) {
	return NewProbabilisticLayer(doc.NeuronsNumber), nil
}

func buildLSTMLayer(doc layerDocument) (Layer, error) {
	activation, err := ParseActivation(doc.ActivationFunction)
	if err != nil {
		return nil, err
	}
	recurrent, err := ParseActivation(doc.RecurrentActivationFunction)
	if err != nil {
		return nil, err
	}

	l := &LSTMLayer{
		Inputs:    doc.InputsNumber,
		Neurons:   doc.NeuronsNumber,
		Timesteps: doc.Timesteps,

		ForgetWeights: append([]float64(nil), doc.ForgetWeights...),
		InputWeights:  append([]float64(nil), doc.InputWeights...),
		StateWeights:  append([]float64(nil), doc.StateWeights...),
		OutputWeights: append([]float64(nil), doc.OutputWeights...),

		ForgetRecurrentWeights: append([]float64(nil), doc.ForgetRecurrentWeights...),
		InputRecurrentWeights:  append([]float64(nil), doc.InputRecurrentWeights...),
		StateRecurrentWeights:  append([]float64(nil), doc.StateRecurrentWeights...),
		OutputRecurrentWeights: append([]float64(nil), doc.OutputRecurrentWeights...),

		ForgetBiases: append([]float64(nil), doc.ForgetBiases...),
		InputBiases:  append([]float64(nil), doc.InputBiases...),
		StateBiases:  append([]float64(nil), doc.StateBiases...),
		OutputBiases: append([]float64(nil), doc.OutputBiases...),

		Activation:          activation,
		RecurrentActivation: recurrent,
	}

	for _, w := range l.weightGroups() {
		if len(w) != l.Inputs*l.Neurons {
			return nil, dimensionMismatch("lstm document: weight group length %d for [%d x %d]",
				len(w), l.Inputs, l.Neurons)
		}
	}
	for _, u := range l.recurrentGroups() {
		if len(u) != l.Neurons*l.Neurons {
			return nil, dimensionMismatch("lstm document: recurrent group length %d for [%d x %d]",
				len(u), l.Neurons, l.Neurons)
		}
	}
	for _, b := range l.biasGroups() {
		if len(b) != l.Neurons {
			return nil, dimensionMismatch("lstm document: bias group length %d for %d neurons",
				len(b), l.Neurons)
		}
	}
	return l, nil
}
