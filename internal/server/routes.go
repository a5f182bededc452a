package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yassiners/audio-nuit-dinfo/internal/observe"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Metrics records HTTP request durations. Defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
	// MetricsHandler serves GET /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", cfg.MetricsHandler)
	mux.HandleFunc("POST /analyses", h.CreateAnalysis)
	mux.HandleFunc("GET /analyses", h.ListAnalyses)
	mux.HandleFunc("GET /analyses/{id}", h.GetAnalysis)
	mux.HandleFunc("DELETE /analyses/{id}", h.DeleteAnalysis)
	mux.HandleFunc("GET /naming/tokens", h.NamingTokens)
	mux.HandleFunc("GET /naming/preview", h.PreviewName)

	// Outermost first. ServeMux sets r.Pattern on the request it is handed;
	// observe.Middleware and LoggingMiddleware read it after the call, so no
	// layer below observe.Middleware may replace the request.
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
		observe.Middleware(cfg.Metrics),
		LoggingMiddleware(logger),
	)

	return chain(mux)
}
