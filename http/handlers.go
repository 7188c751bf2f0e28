package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"strokerisk/inference"
	"strokerisk/ml"
)

const welcomeText = "Welcome to the Stroke Prediction API"

type handlers struct {
	registry *inference.Registry
	metrics  *Metrics
	logger   *zap.Logger
}

// RegisterHandlers 注册服务路由
func RegisterHandlers(mux *http.ServeMux, registry *inference.Registry, metrics *Metrics, logger *zap.Logger) {
	h := &handlers{registry: registry, metrics: metrics, logger: logger}

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{$}", h.handleWelcome)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /model", h.handleModel)
	mux.Handle("GET /metrics", metrics.Handler())
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, welcomeText)
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	raw, status, err := decodePayload(r.Body)
	if err != nil {
		h.reject(w, r, status, err)
		return
	}

	predictor, err := h.registry.Current()
	if err != nil {
		h.reject(w, r, http.StatusServiceUnavailable, err)
		return
	}

	// Every processing failure, including a cancelled or expired request,
	// is reported to the caller as a bad request.
	prediction, err := predictor.Predict(r.Context(), raw)
	if err != nil {
		if !inference.IsInputError(err) {
			h.logger.Error("prediction failed",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err),
			)
		}
		h.reject(w, r, http.StatusBadRequest, err)
		return
	}

	if prediction.Prediction == 1 {
		h.metrics.observePrediction("positive")
	} else {
		h.metrics.observePrediction("negative")
	}
	writeJSON(w, http.StatusOK, prediction)
}

// decodePayload reads a JSON object body. The returned status applies when
// err is non-nil.
func decodePayload(body io.Reader) (map[string]any, int, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, http.StatusBadRequest, inference.ErrNoInput
		}
		return nil, decodeStatus(err), errors.New(decodeMessage(err))
	}
	// A single JSON value must make up the whole body.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, decodeStatus(err), errors.New(decodeMessage(err))
	}
	if payload == nil {
		return nil, http.StatusBadRequest, inference.ErrNoInput
	}
	raw, ok := payload.(map[string]any)
	if !ok {
		return nil, http.StatusBadRequest, errors.New("request body must be a JSON object")
	}
	if len(raw) == 0 {
		return nil, http.StatusBadRequest, inference.ErrNoInput
	}
	return raw, 0, nil
}

func decodeStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func decodeMessage(err error) string {
	if decodeStatus(err) == http.StatusRequestEntityTooLarge {
		return "request body too large"
	}
	return "invalid JSON body"
}

func (h *handlers) reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.metrics.observePrediction("rejected")
	h.logger.Warn("prediction rejected",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

type modelResponse struct {
	Features []string           `json:"features"`
	Contract ml.FeatureContract `json:"contract"`
	Metadata ml.Metadata        `json:"metadata"`
}

func (h *handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	predictor, err := h.registry.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	pipeline := predictor.Pipeline()
	contract := pipeline.Contract()
	writeJSON(w, http.StatusOK, modelResponse{
		Features: contract.FeatureNames(),
		Contract: contract,
		Metadata: pipeline.Metadata(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
