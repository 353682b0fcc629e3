// Package observability provides logging, metrics, and tracing capabilities
package observability

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

const namespace = "casescreen"

// Telemetry bundles the logger, tracer and metrics of one process.
type Telemetry struct {
	logger       *zap.Logger
	tracer       trace.Tracer
	registry     *prometheus.Registry
	metrics      *Metrics
	provider     *sdktrace.TracerProvider
	config       Config
	shutdownOnce sync.Once
	shutdownFns  []func(context.Context) error
}

// Config configures telemetry
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	LogLevel  string
	LogFormat string // json, console

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
	SamplingRate   float64 // 0 or less samples everything
	// SpanExporter replaces the OTLP gRPC exporter when set.
	SpanExporter sdktrace.SpanExporter

	MetricsEnabled bool
}

// Metrics holds Prometheus metrics for the analyzer and its HTTP surface.
type Metrics struct {
	DocumentsAnalyzed  *prometheus.CounterVec
	IndicatorsDetected *prometheus.CounterVec
	CasesAnalyzed      prometheus.Counter
	CaseDocuments      prometheus.Histogram
	CaseIndicators     prometheus.Histogram
	AnalysisDuration   *prometheus.HistogramVec

	GoroutineCount prometheus.Gauge
	MemoryUsage    prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a new Telemetry instance
func New(cfg Config) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = namespace
	}

	t := &Telemetry{config: cfg}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	t.logger = logger

	t.tracer = otel.Tracer(cfg.ServiceName)
	if cfg.TracingEnabled {
		if err := t.initTracer(); err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			t.tracer = t.provider.Tracer(cfg.ServiceName)
		}
	}

	if cfg.MetricsEnabled {
		t.registry = prometheus.NewRegistry()
		t.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		t.metrics = newMetrics(t.registry)
	}

	return t, nil
}

// NewLogger builds a zap logger from the logging settings.
func NewLogger(cfg Config) (*zap.Logger, error) {
	var config zap.Config

	if cfg.LogFormat == "console" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	config.InitialFields = map[string]interface{}{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}

	return config.Build()
}

// initTracer installs an SDK tracer provider exporting over OTLP gRPC, or to
// the configured SpanExporter.
func (t *Telemetry) initTracer() error {
	exporter := t.config.SpanExporter
	if exporter == nil {
		otlp, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(t.config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return err
		}
		exporter = otlp
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", t.config.ServiceName),
			attribute.String("service.version", t.config.ServiceVersion),
			attribute.String("environment", t.config.Environment),
		),
	)
	if err != nil {
		return err
	}

	rate := t.config.SamplingRate
	if rate <= 0 {
		rate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.provider = tp
	t.shutdownFns = append(t.shutdownFns, tp.Shutdown)
	return nil
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsAnalyzed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_analyzed_total",
				Help:      "Total documents analyzed by document type",
			},
			[]string{"document_type"},
		),
		IndicatorsDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indicators_detected_total",
				Help:      "Total findings emitted by detector and indicator",
			},
			[]string{"detector", "indicator"},
		),
		CasesAnalyzed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cases_analyzed_total",
				Help:      "Total cases analyzed",
			},
		),
		CaseDocuments: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "case_documents",
				Help:      "Documents per analyzed case",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		CaseIndicators: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "case_indicators",
				Help:      "Merged indicators per analyzed case",
				Buckets:   prometheus.LinearBuckets(0, 2, 10),
			},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Analysis duration by scope",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"scope"},
		),
		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutine_count",
				Help:      "Current goroutine count",
			},
		),
		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage in bytes",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "path"},
		),
	}
}

// Logger returns the logger
func (t *Telemetry) Logger() *zap.Logger {
	return t.logger
}

// Tracer returns the tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Metrics returns the metrics, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// StartSpan starts a new trace span
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error to the current span and logs it
func (t *Telemetry) RecordError(ctx context.Context, err error, fields ...zap.Field) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	t.logger.Error(err.Error(), fields...)
}

// MetricsHandler serves the private registry. It responds 404 when metrics
// are disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// DocumentAnalyzed records one single-document detection pass.
func (t *Telemetry) DocumentAnalyzed(documentType string, findings []indicator.Finding, elapsed time.Duration) {
	if t.metrics == nil {
		return
	}
	t.metrics.DocumentsAnalyzed.WithLabelValues(DocumentTypeLabel(documentType)).Inc()
	t.metrics.AnalysisDuration.WithLabelValues("document").Observe(elapsed.Seconds())
	for _, f := range findings {
		t.metrics.IndicatorsDetected.WithLabelValues(f.Detector, string(f.IndicatorName)).Inc()
	}
}

// CaseAnalyzed records one completed case analysis.
func (t *Telemetry) CaseAnalyzed(documents, indicators int, elapsed time.Duration) {
	if t.metrics == nil {
		return
	}
	t.metrics.CasesAnalyzed.Inc()
	t.metrics.CaseDocuments.Observe(float64(documents))
	t.metrics.CaseIndicators.Observe(float64(indicators))
	t.metrics.AnalysisDuration.WithLabelValues("case").Observe(elapsed.Seconds())
}

// documentTypes are the document types kept as metric labels; anything
// else is counted as "other".
var documentTypes = map[string]bool{
	"transcript":    true,
	"evidence":      true,
	"appeal":        true,
	"police_report": true,
	"unknown":       true,
}

// DocumentTypeLabel maps a caller-supplied document type onto a bounded
// label set.
func DocumentTypeLabel(documentType string) string {
	if documentTypes[documentType] {
		return documentType
	}
	return "other"
}

// ObserveRequest records one served HTTP request under its route pattern.
func (t *Telemetry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if t.metrics == nil {
		return
	}
	t.metrics.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	t.metrics.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StartSystemMetricsCollector starts collecting system metrics
func (t *Telemetry) StartSystemMetricsCollector(ctx context.Context, interval time.Duration) {
	if t.metrics == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.metrics.GoroutineCount.Set(float64(runtime.NumGoroutine()))
				var m runtime.MemStats
				runtime.ReadMemStats(&m)
				t.metrics.MemoryUsage.Set(float64(m.Alloc))
			}
		}
	}()
}

// ForceFlush exports any buffered spans. It is a no-op without tracing.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// Shutdown stops the tracer provider and flushes the logger.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	t.shutdownOnce.Do(func() {
		for _, fn := range t.shutdownFns {
			if e := fn(ctx); e != nil {
				err = e
			}
		}
		// stderr sync returns EINVAL on some platforms
		_ = t.logger.Sync()
	})
	return err
}
