package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/weftml/weft/nn"
)

var (
	address = kingpin.Flag("address", "listen address of prediction server").Default("127.0.0.1:8080").String()
	model   = kingpin.Flag("model", "model file path").Default("model.xml").String()
	debug   = kingpin.Flag("debug", "use debug level of logging").Default("false").Bool()
)

type predictRequest struct {
	Inputs []float64 `json:"inputs"`
	Batch  int       `json:"batch"`
}

type predictResponse struct {
	Outputs []float64 `json:"outputs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	network *nn.Network
}

func (s *server) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Batch <= 0 {
		req.Batch = 1
	}
	outputs, err := s.network.Outputs(req.Inputs, req.Batch)
	if err != nil {
		logrus.WithError(err).Warn("Prediction failed")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Outputs: outputs})
}

func (s *server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"inputs":     s.network.InputsNumber(),
		"outputs":    s.network.OutputsNumber(),
		"parameters": s.network.ParametersNumber(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Warn("Write response failed")
	}
}

func main() {
	kingpin.Parse()
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.Debug("Log level set to debug")
	}

	network, err := nn.LoadNetwork(*model)
	if err != nil {
		logrus.WithError(err).Fatal("Load model failed")
	}
	s := &server{network: network}

	router := mux.NewRouter()
	router.HandleFunc("/predict", s.predict).Methods(http.MethodPost)
	router.HandleFunc("/info", s.info).Methods(http.MethodGet)

	logrus.WithFields(logrus.Fields{"address": *address, "model": *model}).Info("Server started")
	if err := http.ListenAndServe(*address, router); err != nil {
		logrus.WithError(err).Fatal("Server failed")
	}
}
