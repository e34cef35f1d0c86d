// Package api is the HTTP surface of the scoring service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/scoring/model"
	"credit-scoring/internal/scoring/pipeline"
)

// Predictor is the operation the HTTP surface exposes.
type Predictor interface {
	Predict(ctx context.Context, raw map[string]interface{}) (pipeline.Result, error)
}

// Handler serves the prediction and introspection endpoints.
type Handler struct {
	predictor Predictor
	model     model.Info
	ready     func() bool
	recorder  *metrics.Recorder
	logger    logger.Logger
}

func NewHandler(predictor Predictor, info model.Info, ready func() bool, log logger.Logger) *Handler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Handler{
		predictor: predictor,
		model:     info,
		ready:     ready,
		recorder:  metrics.NewRecorder(metrics.ChannelHTTP),
		logger:    log,
	}
}

// Predict handles POST /predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, &apperrors.StandardError{
			Code:      apperrors.ErrCodeMethodNotAllowed,
			Message:   fmt.Sprintf("Method %s not allowed", r.Method),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	defer h.recorder.TrackInFlight()()
	requestID := RequestIDFrom(r.Context())

	raw, stdErr := decodePayload(r.Body)
	if stdErr != nil {
		h.recorder.ObservePrediction(r.Context(), "", string(stdErr.Code), 0)
		h.logger.Warn("rejected prediction request", map[string]interface{}{
			"requestId": requestID,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		writeError(w, stdErr)
		return
	}

	start := time.Now()
	res, err := h.predictor.Predict(r.Context(), raw)
	elapsed := time.Since(start)

	if err != nil {
		stdErr := apperrors.Normalize(err)
		if errors.Is(err, context.DeadlineExceeded) {
			stdErr = apperrors.NewTimeoutError("scoring", err)
		}
		fields := map[string]interface{}{
			"requestId":  requestID,
			"errorCode":  string(stdErr.Code),
			"details":    stdErr.Details,
			"durationMs": elapsed.Milliseconds(),
		}
		h.recorder.ObservePrediction(r.Context(), "", string(stdErr.Code), elapsed)
		if stdErr.Code == apperrors.ErrCodeValidationFailed {
			h.logger.Warn("prediction rejected", fields)
		} else {
			h.logger.Error("prediction failed", fields)
		}
		writeJSON(w, apperrors.HTTPStatus(stdErr.Code), errorResponse(stdErr, err))
		return
	}

	h.recorder.ObservePrediction(r.Context(), string(res.RiskCategory), "", elapsed)
	h.logger.Info("prediction served", map[string]interface{}{
		"requestId":  requestID,
		"tier":       string(res.RiskCategory),
		"durationMs": elapsed.Milliseconds(),
	})
	writeJSON(w, http.StatusOK, pipeline.ToResponse(res, nil))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Ready handles GET /ready; it fails until the model is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Model handles GET /model.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.model)
}

// decodePayload reads a single JSON object. Numbers stay json.Number so
// integer attributes are checked against their literal form.
func decodePayload(body io.Reader) (map[string]interface{}, *apperrors.StandardError) {
	if body == nil {
		return nil, apperrors.NewRequestMalformedError(errors.New("empty body"))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &apperrors.StandardError{
				Code:      apperrors.ErrCodeRequestTooLarge,
				Message:   "Request body too large",
				Details:   fmt.Sprintf("limit is %d bytes", maxErr.Limit),
				Timestamp: time.Now().UTC(),
				Cause:     err,
			}
		}
		return nil, apperrors.NewRequestMalformedError(err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewRequestMalformedError(err)
	}
	if raw == nil {
		return nil, apperrors.NewRequestMalformedError(errors.New("body is null"))
	}
	if dec.More() {
		return nil, apperrors.NewRequestMalformedError(errors.New("trailing data after JSON object"))
	}
	return raw, nil
}

func errorResponse(stdErr *apperrors.StandardError, err error) pipeline.Response {
	if stdErr.Code == apperrors.ErrCodeTimeout {
		return pipeline.Response{Error: stdErr.Message}
	}
	return pipeline.ToResponse(pipeline.Result{}, err)
}

func writeError(w http.ResponseWriter, stdErr *apperrors.StandardError) {
	msg := stdErr.Error()
	if stdErr.Code == apperrors.ErrCodeInternal {
		msg = stdErr.Message
	}
	writeJSON(w, apperrors.HTTPStatus(stdErr.Code), pipeline.Response{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
