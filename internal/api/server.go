// Package api exposes the analyzer over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/lvonguyen/casescreen/internal/analyzer"
	"github.com/lvonguyen/casescreen/internal/api/gateway"
	"github.com/lvonguyen/casescreen/internal/observability"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "nlp-analyzer"

// Options configures the HTTP surface.
type Options struct {
	Version        string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	MetricsPath    string // empty disables /metrics
	RateLimiter    *gateway.RateLimiter
}

// Server wires HTTP handlers to an analyzer.
type Server struct {
	analyzer  *analyzer.Analyzer
	telemetry *observability.Telemetry
	logger    *zap.Logger
	opts      Options
}

// NewServer creates the HTTP server. telemetry must not be nil.
func NewServer(a *analyzer.Analyzer, telemetry *observability.Telemetry, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	return &Server{
		analyzer:  a,
		telemetry: telemetry,
		logger:    telemetry.Logger(),
		opts:      opts,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Get("/indicators", s.handleIndicators)
	r.Get("/indicators/catalog", s.handleCatalog)

	r.Route("/analyze", func(r chi.Router) {
		if s.opts.RateLimiter != nil {
			r.Use(s.opts.RateLimiter.Middleware)
		}
		r.Post("/document", s.handleAnalyzeDocument)
		r.Post("/case", s.handleAnalyzeCase)
	})

	if s.opts.MetricsPath != "" {
		r.Method(http.MethodGet, s.opts.MetricsPath, s.telemetry.MetricsHandler())
	}

	return r
}

// unmatchedRoute labels requests no route pattern matched; raw paths would
// give every 404 its own series.
const unmatchedRoute = "unmatched"

// instrument logs each request and records it under its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		r = r.WithContext(ctx)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.telemetry.ObserveRequest(r.Method, route, status, elapsed)
		s.logger.Info("Request completed",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
