package nn

import (
	"math"
)

// Network chains layers into a single model: each layer's output feeds the
// next layer's input, and deltas chain in reverse. Variants are dispatched
// on their kind tag.
//
// Row convention: scaling, dense, probabilistic and unscaling layers map
// rows to rows. An LSTM layer consumes whole sequences: when a network
// contains one, Forward's input is [batch x timesteps x inputs] flat, the
// row count seen by the layers downstream of the LSTM is batch*timesteps,
// and batch counts sequences.
type Network struct {
	Layers []Layer
}

// NewNetwork validates that consecutive layer widths agree and returns the
// composition.
func NewNetwork(layers ...Layer) (*Network, error) {
	for i := 1; i < len(layers); i++ {
		if layers[i-1].OutputsNumber() != layers[i].InputsNumber() {
			return nil, dimensionMismatch("network: layer %d (%s) outputs %d but layer %d (%s) expects %d inputs",
				i-1, layers[i-1].Kind(), layers[i-1].OutputsNumber(),
				i, layers[i].Kind(), layers[i].InputsNumber())
		}
	}
	return &Network{Layers: layers}, nil
}

// InputsNumber returns the width of the first layer.
func (n *Network) InputsNumber() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[0].InputsNumber()
}

// OutputsNumber returns the width of the last layer.
func (n *Network) OutputsNumber() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[len(n.Layers)-1].OutputsNumber()
}

func (n *Network) lstm() *LSTMLayer {
	for _, l := range n.Layers {
		if l, ok := l.(*LSTMLayer); ok {
			return l
		}
	}
	return nil
}

// NetworkCache holds every layer's forward state for the matching Backward
// call. Outputs[0] is the network input; Outputs[i+1] the output of layer i.
type NetworkCache struct {
	Batch   int
	Outputs [][]float64
	Dense   map[int]*DenseForwardCache
	LSTM    map[int]*LSTMForwardCache
}

// Forward propagates a batch through every layer and returns the outputs
// along with the cache Backward needs.
func (n *Network) Forward(input []float64, batch int) ([]float64, *NetworkCache, error) {
	cache := &NetworkCache{
		Batch:   batch,
		Outputs: make([][]float64, len(n.Layers)+1),
		Dense:   make(map[int]*DenseForwardCache),
		LSTM:    make(map[int]*LSTMForwardCache),
	}
	cache.Outputs[0] = append([]float64(nil), input...)

	rows := batch
	if lstm := n.lstm(); lstm != nil {
		rows = batch * lstm.Timesteps
	}

	data := cache.Outputs[0]
	for i, layer := range n.Layers {
		var err error
		switch l := layer.(type) {
		case *ScalingLayer:
			data, err = l.Outputs(data, rows)
		case *DenseLayer:
			var c *DenseForwardCache
			data, c, err = l.Forward(data, rows)
			cache.Dense[i] = c
		case *LSTMLayer:
			var c *LSTMForwardCache
			data, c, err = l.Forward(data, batch)
			cache.LSTM[i] = c
		case *ProbabilisticLayer:
			data, err = l.Outputs(data, rows)
		case *UnscalingLayer:
			data, err = l.Outputs(data, rows)
		default:
			err = dimensionMismatch("network forward: unsupported layer kind %s", layer.Kind())
		}
		if err != nil {
			return nil, nil, err
		}
		cache.Outputs[i+1] = data
	}

	return append([]float64(nil), data...), cache, nil
}

// Outputs runs the forward pass and discards the cache.
func (n *Network) Outputs(input []float64, batch int) ([]float64, error) {
	out, _, err := n.Forward(input, batch)
	return out, err
}

// NetworkGradients collects per-layer parameter gradients by layer index.
type NetworkGradients struct {
	Dense map[int]*DenseGradients
	LSTM  map[int]*LSTMGradients
}

// Backward chains the output delta through every layer in reverse,
// returning the delta with respect to the network input and the parameter
// gradients of every trainable layer.
func (n *Network) Backward(cache *NetworkCache, delta []float64) ([]float64, *NetworkGradients, error) {
	if cache == nil || len(cache.Outputs) != len(n.Layers)+1 {
		return nil, nil, cacheMismatch("network backward: cache does not match network depth")
	}
	if len(delta) != len(cache.Outputs[len(n.Layers)]) {
		return nil, nil, cacheMismatch("network backward: delta length %d, cached output length %d",
			len(delta), len(cache.Outputs[len(n.Layers)]))
	}

	grads := &NetworkGradients{
		Dense: make(map[int]*DenseGradients),
		LSTM:  make(map[int]*LSTMGradients),
	}

	rows := cache.Batch
	if lstm := n.lstm(); lstm != nil {
		rows = cache.Batch * lstm.Timesteps
	}

	var err error
	for i := len(n.Layers) - 1; i >= 0; i-- {
		switch l := n.Layers[i].(type) {
		case *ScalingLayer:
			delta, err = l.deltaThrough(delta, rows)
		case *DenseLayer:
			var g *DenseGradients
			delta, g, err = l.Backward(cache.Dense[i], delta)
			grads.Dense[i] = g
		case *LSTMLayer:
			var g *LSTMGradients
			delta, g, err = l.Backward(cache.LSTM[i], delta)
			grads.LSTM[i] = g
		case *ProbabilisticLayer:
			delta, err = l.Backward(cache.Outputs[i+1], delta, rows)
		case *UnscalingLayer:
			delta, err = l.deltaThrough(cache.Outputs[i], delta, rows)
		default:
			err = dimensionMismatch("network backward: unsupported layer kind %s", n.Layers[i].Kind())
		}
		if err != nil {
			return nil, nil, err
		}
	}

	return delta, grads, nil
}

// ApplyGradients performs one gradient-descent step on every trainable layer.
func (n *Network) ApplyGradients(g *NetworkGradients, rate float64) error {
	for i, layer := range n.Layers {
		switch l := layer.(type) {
		case *DenseLayer:
			if dg, ok := g.Dense[i]; ok {
				if err := l.ApplyGradients(dg, rate); err != nil {
					return err
				}
			}
		case *LSTMLayer:
			if lg, ok := g.LSTM[i]; ok {
				if err := l.ApplyGradients(lg, rate); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ParametersNumber counts the parameters of every trainable layer.
func (n *Network) ParametersNumber() int {
	var count int
	for _, layer := range n.Layers {
		switch l := layer.(type) {
		case *DenseLayer:
			count += l.ParametersNumber()
		case *LSTMLayer:
			count += l.ParametersNumber()
		}
	}
	return count
}

// Parameters flattens every trainable layer's parameters in layer order.
func (n *Network) Parameters() []float64 {
	p := make([]float64, 0, n.ParametersNumber())
	for _, layer := range n.Layers {
		switch l := layer.(type) {
		case *DenseLayer:
			p = append(p, l.Parameters()...)
		case *LSTMLayer:
			p = append(p, l.Parameters()...)
		}
	}
	return p
}

// SetParameters restores a vector produced by Parameters.
func (n *Network) SetParameters(p []float64) error {
	if len(p) != n.ParametersNumber() {
		return dimensionMismatch("network parameters: got %d, want %d", len(p), n.ParametersNumber())
	}
	pos := 0
	for _, layer := range n.Layers {
		switch l := layer.(type) {
		case *DenseLayer:
			count := l.ParametersNumber()
			if err := l.SetParameters(p[pos : pos+count]); err != nil {
				return err
			}
			pos += count
		case *LSTMLayer:
			count := l.ParametersNumber()
			if err := l.SetParameters(p[pos : pos+count]); err != nil {
				return err
			}
			pos += count
		}
	}
	return nil
}

// deltaThrough maps a delta back through the scaling transform. The
// scaling is affine per variable, so the delta scales by the slope.
func (l *ScalingLayer) deltaThrough(delta []float64, rows int) ([]float64, error) {
	variables := len(l.Descriptives)
	if len(delta) != rows*variables {
		return nil, cacheMismatch("scaling delta: length %d, want %d", len(delta), rows*variables)
	}
	out := make([]float64, len(delta))
	for b := 0; b < rows; b++ {
		for j, d := range l.Descriptives {
			idx := b*variables + j
			out[idx] = delta[idx] * l.slope(d)
		}
	}
	return out, nil
}

func (l *ScalingLayer) slope(d Descriptives) float64 {
	switch {
	case l.Method == ScalingNone || d.unbounded():
		return 1
	case l.Method == ScalingMinimumMaximum:
		if d.Maximum-d.Minimum < 1e-12 {
			return 1
		}
		return 2 / (d.Maximum - d.Minimum)
	case l.Method == ScalingMeanStandardDeviation:
		if d.StandardDeviation < 1e-12 {
			return 1
		}
		return 1 / d.StandardDeviation
	default:
		return 1
	}
}

// deltaThrough maps a delta back through the unscaling transform. The
// logarithmic method is the only non-affine one and needs the cached input.
func (l *UnscalingLayer) deltaThrough(input, delta []float64, rows int) ([]float64, error) {
	variables := len(l.Descriptives)
	if len(delta) != rows*variables {
		return nil, cacheMismatch("unscaling delta: length %d, want %d", len(delta), rows*variables)
	}
	out := make([]float64, len(delta))
	for b := 0; b < rows; b++ {
		for j, d := range l.Descriptives {
			idx := b*variables + j
			out[idx] = delta[idx] * l.slopeAt(d, input[idx])
		}
	}
	return out, nil
}

func (l *UnscalingLayer) slopeAt(d Descriptives, x float64) float64 {
	switch {
	case l.Method == UnscalingNone || d.unbounded():
		return 1
	case l.Method == UnscalingMinimumMaximum:
		return 0.5 * (d.Maximum - d.Minimum)
	case l.Method == UnscalingMeanStandardDeviation:
		return d.StandardDeviation
	case l.Method == UnscalingLogarithmic:
		return 0.5 * math.Exp(x) * (d.Maximum - d.Minimum)
	default:
		return 1
	}
}
