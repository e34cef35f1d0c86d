package api

import (
	"net/http"
	"time"

	"credit-scoring/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig controls the surface around the handlers.
type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	MetricsEnabled bool
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter mounts the handlers on a ServeMux and wraps them with the middleware chain.
func NewRouter(h *Handler, cfg RouterConfig, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/predict", h.Predict)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /model", h.Model)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		metricsHandler := cfg.MetricsHandler
		if metricsHandler == nil {
			metricsHandler = promhttp.Handler()
		}
		mux.Handle("GET "+path, metricsHandler)
	}

	return Chain(mux,
		RequestIDMiddleware(),
		LoggingMiddleware(log),
		RecoverMiddleware(log),
		SecurityHeadersMiddleware(),
		TimeoutMiddleware(cfg.RequestTimeout),
		BodyLimitMiddleware(cfg.MaxBodyBytes),
	)
}
