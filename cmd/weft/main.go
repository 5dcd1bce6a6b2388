package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/weftml/weft/nn"
)

var (
	neurons    = kingpin.Flag("neurons", "hidden neurons in the recurrent layer").Default("8").Int()
	timesteps  = kingpin.Flag("timesteps", "sequence length seen by the recurrent layer").Default("10").Int()
	batch      = kingpin.Flag("batch", "sequences per training batch").Default("16").Int()
	epochs     = kingpin.Flag("epochs", "training epochs").Default("200").Int()
	rate       = kingpin.Flag("rate", "gradient descent learning rate").Default("0.05").Float64()
	seed       = kingpin.Flag("seed", "random seed for data generation").Default("1").Int64()
	out        = kingpin.Flag("out", "model file path").Default("model.xml").String()
	expression = kingpin.Flag("expression", "print the trained model as symbolic expressions").Default("false").Bool()
	debug      = kingpin.Flag("debug", "use debug level of logging").Default("false").Bool()
)

// sineBatch generates sequences sampled from sin(t) with random phase; the
// target for each sequence is the next sample after its last timestep.
func sineBatch(rng *rand.Rand, batch, timesteps int) (inputs, targets []float64) {
	inputs = make([]float64, batch*timesteps)
	targets = make([]float64, batch)
	for b := 0; b < batch; b++ {
		phase := rng.Float64() * 2 * math.Pi
		for t := 0; t < timesteps; t++ {
			inputs[b*timesteps+t] = math.Sin(phase + 0.3*float64(t))
		}
		targets[b] = math.Sin(phase + 0.3*float64(timesteps))
	}
	return inputs, targets
}

func main() {
	kingpin.Parse()
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.Debug("Log level set to debug")
	}
	rng := rand.New(rand.NewSource(*seed))

	lstm := nn.NewLSTMLayer(1, *neurons, *timesteps)
	dense := nn.NewDenseLayer(*neurons, 1, nn.ActivationLinear)
	network, err := nn.NewNetwork(lstm, dense)
	if err != nil {
		logrus.WithError(err).Fatal("Build network failed")
	}
	logrus.WithFields(logrus.Fields{
		"neurons":    *neurons,
		"timesteps":  *timesteps,
		"parameters": network.ParametersNumber(),
	}).Info("Network built")

	loss := nn.MeanSquaredError{}
	for epoch := 0; epoch < *epochs; epoch++ {
		inputs, next := sineBatch(rng, *batch, *timesteps)

		// The recurrent layer emits one row per timestep; only the last
		// row of each sequence carries the prediction target.
		outputs, cache, err := network.Forward(inputs, *batch)
		if err != nil {
			logrus.WithError(err).Fatal("Forward pass failed")
		}
		targets := make([]float64, len(outputs))
		copy(targets, outputs)
		for b := 0; b < *batch; b++ {
			targets[(b+1)*(*timesteps)-1] = next[b]
		}

		value, err := loss.Error(outputs, targets)
		if err != nil {
			logrus.WithError(err).Fatal("Loss evaluation failed")
		}
		delta, err := loss.OutputGradient(outputs, targets)
		if err != nil {
			logrus.WithError(err).Fatal("Loss gradient failed")
		}
		_, grads, err := network.Backward(cache, delta)
		if err != nil {
			logrus.WithError(err).Fatal("Backward pass failed")
		}
		if err := network.ApplyGradients(grads, *rate); err != nil {
			logrus.WithError(err).Fatal("Gradient update failed")
		}

		if epoch%20 == 0 || epoch == *epochs-1 {
			logrus.WithFields(logrus.Fields{"epoch": epoch, "loss": value}).Info("Training")
		} else {
			logrus.WithFields(logrus.Fields{"epoch": epoch, "loss": value}).Debug("Training")
		}
	}

	if err := network.Save(*out); err != nil {
		logrus.WithError(err).Fatal("Save model failed")
	}
	logrus.WithField("path", *out).Info("Model saved")

	if *expression {
		text, err := network.WriteExpression([]string{"x"}, []string{"y"})
		if err != nil {
			logrus.WithError(err).Fatal("Expression export failed")
		}
		fmt.Print(text)
	}
}
