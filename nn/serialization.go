package nn

import (
	"bytes"
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

// floatList marshals a float64 slice as a space-separated text node, the
// way the layer documents store their weight matrices.
type floatList []float64

func (f floatList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return e.EncodeElement(strings.Join(parts, " "), start)
}

func (f *floatList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var text string
	if err := d.DecodeElement(&text, &start); err != nil {
		return err
	}
	fields := strings.Fields(text)
	out := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return errors.Wrapf(err, "float list entry %d", i)
		}
		out[i] = v
	}
	*f = out
	return nil
}

// descriptivesDocument is the XML form of one variable's statistics.
type descriptivesDocument struct {
	Minimum           float64 `xml:"Minimum"`
	Maximum           float64 `xml:"Maximum"`
	Mean              float64 `xml:"Mean"`
	StandardDeviation float64 `xml:"StandardDeviation"`
}

// layerDocument is the XML form of any layer variant; the Kind attribute
// discriminates, unused fields stay empty.
type layerDocument struct {
	XMLName xml.Name `xml:"Layer"`
	Kind    string   `xml:"kind,attr"`

	InputsNumber  int `xml:"InputsNumber,omitempty"`
	NeuronsNumber int `xml:"NeuronsNumber,omitempty"`
	Timesteps     int `xml:"Timesteps,omitempty"`

	ActivationFunction          string `xml:"ActivationFunction,omitempty"`
	RecurrentActivationFunction string `xml:"RecurrentActivationFunction,omitempty"`

	Weights floatList `xml:"Weights,omitempty"`
	Biases  floatList `xml:"Biases,omitempty"`

	ForgetWeights floatList `xml:"ForgetWeights,omitempty"`
	InputWeights  floatList `xml:"InputWeights,omitempty"`
	StateWeights  floatList `xml:"StateWeights,omitempty"`
	OutputWeights floatList `xml:"OutputWeights,omitempty"`

	ForgetRecurrentWeights floatList `xml:"ForgetRecurrentWeights,omitempty"`
	InputRecurrentWeights  floatList `xml:"InputRecurrentWeights,omitempty"`
	StateRecurrentWeights  floatList `xml:"StateRecurrentWeights,omitempty"`
	OutputRecurrentWeights floatList `xml:"OutputRecurrentWeights,omitempty"`

	ForgetBiases floatList `xml:"ForgetBiases,omitempty"`
	InputBiases  floatList `xml:"InputBiases,omitempty"`
	StateBiases  floatList `xml:"StateBiases,omitempty"`
	OutputBiases floatList `xml:"OutputBiases,omitempty"`

	Method       string                 `xml:"Method,omitempty"`
	Descriptives []descriptivesDocument `xml:"Descriptives>Variable,omitempty"`
}

// networkDocument is the root element of a saved model.
type networkDocument struct {
	XMLName xml.Name        `xml:"NeuralNetwork"`
	Layers  []layerDocument `xml:"Layers>Layer"`
}

func descriptivesToDocuments(d []Descriptives) []descriptivesDocument {
	docs := make([]descriptivesDocument, len(d))
	for i, v := range d {
		docs[i] = descriptivesDocument(v)
	}
	return docs
}

func documentsToDescriptives(docs []descriptivesDocument) []Descriptives {
	d := make([]Descriptives, len(docs))
	for i, v := range docs {
		d[i] = Descriptives(v)
	}
	return d
}

// layerToDocument serializes one layer variant.
func layerToDocument(layer Layer) (layerDocument, error) {
	doc := layerDocument{Kind: layer.Kind().String()}
	switch l := layer.(type) {
	case *ScalingLayer:
		doc.Method = scalingMethodNames[l.Method]
		doc.Descriptives = descriptivesToDocuments(l.Descriptives)
	case *UnscalingLayer:
		doc.Method = unscalingMethodNames[l.Method]
		doc.Descriptives = descriptivesToDocuments(l.Descriptives)
	case *DenseLayer:
		doc.InputsNumber = l.Inputs
		doc.NeuronsNumber = l.Neurons
		doc.ActivationFunction = l.Activation.String()
		doc.Weights = floatList(l.Weights)
		doc.Biases = floatList(l.Biases)
	case *ProbabilisticLayer:
		doc.NeuronsNumber = l.Neurons
	case *LSTMLayer:
		doc.InputsNumber = l.Inputs
		doc.NeuronsNumber = l.Neurons
		doc.Timesteps = l.Timesteps
		doc.ActivationFunction = l.Activation.String()
		doc.RecurrentActivationFunction = l.RecurrentActivation.String()
		doc.ForgetWeights = floatList(l.ForgetWeights)
		doc.InputWeights = floatList(l.InputWeights)
		doc.StateWeights = floatList(l.StateWeights)
		doc.OutputWeights = floatList(l.OutputWeights)
		doc.ForgetRecurrentWeights = floatList(l.ForgetRecurrentWeights)
		doc.InputRecurrentWeights = floatList(l.InputRecurrentWeights)
		doc.StateRecurrentWeights = floatList(l.StateRecurrentWeights)
		doc.OutputRecurrentWeights = floatList(l.OutputRecurrentWeights)
		doc.ForgetBiases = floatList(l.ForgetBiases)
		doc.InputBiases = floatList(l.InputBiases)
		doc.StateBiases = floatList(l.StateBiases)
		doc.OutputBiases = floatList(l.OutputBiases)
	default:
		return doc, errors.Errorf("cannot serialize layer kind %s", layer.Kind())
	}
	return doc, nil
}

// WriteXML renders the whole network as a model document.
func (n *Network) WriteXML() ([]byte, error) {
	doc := networkDocument{}
	for _, layer := range n.Layers {
		layerDoc, err := layerToDocument(layer)
		if err != nil {
			return nil, err
		}
		doc.Layers = append(doc.Layers, layerDoc)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal network document")
	}
	return append([]byte(xml.Header), out...), nil
}

// NetworkFromXML parses a model document back into a Network, building
// each layer through the registered builder for its kind.
func NetworkFromXML(data []byte) (*Network, error) {
	var doc networkDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal network document")
	}
	layers := make([]Layer, 0, len(doc.Layers))
	for i, layerDoc := range doc.Layers {
		layer, err := buildLayer(layerDoc)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		layers = append(layers, layer)
	}
	return NewNetwork(layers...)
}

// Save writes the model document atomically: the file either keeps its old
// content or holds the complete new document, never a torn write.
func (n *Network) Save(path string) error {
	data, err := n.WriteXML()
	if err != nil {
		return err
	}
	return errors.Wrapf(atomic.WriteFile(path, bytes.NewReader(data)), "save model to %s", path)
}

// LoadNetwork reads a model document written by Save.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load model from %s", path)
	}
	return NetworkFromXML(data)
}
