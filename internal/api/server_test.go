package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/lvonguyen/casescreen/internal/analyzer"
	"github.com/lvonguyen/casescreen/internal/api/gateway"
	"github.com/lvonguyen/casescreen/internal/indicator"
	"github.com/lvonguyen/casescreen/internal/observability"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	tel, err := observability.New(observability.Config{
		ServiceName:    "casescreen-test",
		LogLevel:       "error",
		MetricsEnabled: true,
	})
	require.NoError(t, err)
	return serve(t, tel, opts)
}

func serve(t *testing.T, tel *observability.Telemetry, opts Options) *httptest.Server {
	t.Helper()

	a := analyzer.New(analyzer.DefaultConfig(), zaptest.NewLogger(t), analyzer.WithObserver(tel))
	if opts.Version == "" {
		opts.Version = "test"
	}

	srv := httptest.NewServer(NewServer(a, tel, opts).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, map[string]any, http.Header) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out, resp.Header
}

func indicatorNames(t *testing.T, body map[string]any) []string {
	t.Helper()
	list, ok := body["indicators"].([]any)
	require.True(t, ok, "indicators must be a list")

	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.(map[string]any)["indicator_name"].(string))
	}
	return names
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestReady(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodGet, srv.URL+"/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"confession", "eyewitness", "forensic", "misconduct"}, body["detectors"])
}

func TestIndicators(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodGet, srv.URL+"/indicators", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(18), body["count"])

	names := body["indicators"].([]any)
	assert.Equal(t, string(indicator.CoercedConfession), names[0])
	assert.Equal(t, string(indicator.InflammatoryArguments), names[17])
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodGet, srv.URL+"/indicators/catalog", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(18), body["count"])

	status, body, _ = do(t, http.MethodGet, srv.URL+"/indicators/catalog?category=Forensic", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(4), body["count"])
	first := body["indicators"].([]any)[0].(map[string]any)
	assert.Equal(t, "forensic", first["category"])
	assert.Contains(t, first, "severity")

	_, body, _ = do(t, http.MethodGet, srv.URL+"/indicators/catalog?category=alibi", "")
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []any{}, body["indicators"])
}

func TestAnalyzeDocument(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/document",
		`{"content": "The prosecutor withheld evidence.", "document_type": "police_report"}`)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, float64(1), body["total_indicators"])
	assert.Equal(t, "police_report", body["document_type"])
	assert.Equal(t, true, body["analysis_complete"])
	assert.Equal(t, []string{string(indicator.BradyViolations)}, indicatorNames(t, body))

	finding := body["indicators"].([]any)[0].(map[string]any)
	assert.Equal(t, "misconduct", finding["detector"])
}

func TestAnalyzeDocument_Defaults(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/document", `{"content": ""}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_indicators"])
	assert.Equal(t, indicator.DefaultDocumentType, body["document_type"])
	assert.Equal(t, []any{}, body["indicators"])
}

func TestAnalyzeDocument_Validation(t *testing.T) {
	srv := newTestServer(t, Options{MaxBodyBytes: 64})

	tests := []struct {
		name   string
		body   string
		status int
		error  string
	}{
		{"missing content", `{"document_type": "transcript"}`, http.StatusBadRequest, "Missing content field"},
		{"null content", `{"content": null}`, http.StatusBadRequest, "Missing content field"},
		{"malformed json", `{"content": `, http.StatusBadRequest, "invalid request body"},
		{"wrong type", `{"content": 12}`, http.StatusBadRequest, "invalid request body"},
		{"too large", `{"content": "` + strings.Repeat("a", 128) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/document", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.error, body["error"])
		})
	}
}

func TestAnalyzeCase(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/case", `{
		"case_id": 42,
		"documents": [
			{"type": "transcript", "content": "The prosecutor withheld evidence."},
			{"type": "appeal", "content": "DNA was never tested."},
			{"content": "The prosecutor withheld evidence again."}
		]
	}`)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, float64(42), body["case_id"])
	assert.Equal(t, float64(3), body["documents_analyzed"])
	assert.Equal(t, float64(2), body["total_indicators"])
	assert.Equal(t, []string{string(indicator.BradyViolations), string(indicator.DNANotTested)}, indicatorNames(t, body))
	assert.NotContains(t, body, "priority")

	brady := body["indicators"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"transcript", "unknown"}, brady["document_types"])
	assert.Equal(t, []any{"misconduct"}, brady["detectors"])
	assert.Len(t, brady["evidence"], 2)
}

func TestAnalyzeCase_Priority(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/case", `{
		"case_id": 7,
		"include_priority": true,
		"documents": [{"type": "transcript", "content": "The prosecutor withheld evidence. DNA was never tested."}]
	}`)
	require.Equal(t, http.StatusOK, status)

	priority, ok := body["priority"].(map[string]any)
	require.True(t, ok)
	assert.Greater(t, priority["score"].(float64), 0.0)
	assert.NotEmpty(t, priority["level"])
	breakdown := priority["breakdown"].(map[string]any)
	assert.Equal(t, float64(2), breakdown["indicator_count"])
}

func TestAnalyzeCase_Validation(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing documents", `{"case_id": 1}`, "Missing required fields"},
		{"missing case id", `{"documents": []}`, "Missing required fields"},
		{"empty object", `{}`, "Missing required fields"},
		{"malformed", `[`, "invalid request body"},
		{"case id not a number", `{"case_id": "abc", "documents": []}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/case", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestAnalyzeCase_NoDocuments(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body, _ := do(t, http.MethodPost, srv.URL+"/analyze/case", `{"case_id": 5, "documents": []}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_indicators"])
	assert.Equal(t, float64(0), body["documents_analyzed"])
	assert.Equal(t, []any{}, body["indicators"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, _, _ := do(t, http.MethodGet, srv.URL+"/analyze/document", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{MetricsPath: "/metrics"})

	status, _, _ := do(t, http.MethodPost, srv.URL+"/analyze/document", `{"content": "The prosecutor withheld evidence."}`)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, `casescreen_http_requests_total{method="POST",path="/analyze/document",status="200"} 1`)
	assert.Contains(t, text, `casescreen_documents_analyzed_total{document_type="transcript"} 1`)
	assert.Contains(t, text, `casescreen_indicators_detected_total{detector="misconduct",indicator="Brady Violations"} 1`)
}

func TestMetricsEndpoint_UnmatchedPathsShareSeries(t *testing.T) {
	srv := newTestServer(t, Options{MetricsPath: "/metrics"})

	for i := 0; i < 50; i++ {
		status, _, _ := do(t, http.MethodGet, fmt.Sprintf("%s/missing/%d", srv.URL, i), "")
		require.Equal(t, http.StatusNotFound, status)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, `casescreen_http_requests_total{method="GET",path="unmatched",status="404"} 50`)
	assert.NotContains(t, text, "/missing/")
}

func TestAnalyzeCase_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tel, err := observability.New(observability.Config{
		ServiceName:    "casescreen-test",
		LogLevel:       "error",
		TracingEnabled: true,
		SpanExporter:   exporter,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	srv := serve(t, tel, Options{})

	status, _, _ := do(t, http.MethodPost, srv.URL+"/analyze/case",
		`{"case_id": 7, "documents": [{"type": "appeal", "content": "DNA evidence was never tested"}]}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, tel.ForceFlush(context.Background()))

	var found bool
	for _, span := range exporter.GetSpans() {
		if span.Name != "analyze.case" {
			continue
		}
		found = true
		assert.Contains(t, span.Attributes, attribute.Int64("case.id", 7))
		assert.Contains(t, span.Attributes, attribute.Int("case.documents", 1))
		assert.Contains(t, span.Attributes, attribute.Int("indicators.total", 1))
	}
	assert.True(t, found, "analyze.case span not exported")
}

func TestMetricsDisabledRoute(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, _, _ := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRateLimitHeaders(t *testing.T) {
	limiter := gateway.NewRateLimiter(nil, gateway.RateLimitConfig{
		DefaultRequestsPerMinute: 100,
		IncludeHeaders:           true,
	}, nil)
	srv := newTestServer(t, Options{RateLimiter: limiter})

	status, _, header := do(t, http.MethodPost, srv.URL+"/analyze/case", `{"case_id": 1, "documents": []}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "25", header.Get("X-RateLimit-Limit"))

	// read-only routes are not limited
	_, _, header = do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Empty(t, header.Get("X-RateLimit-Limit"))
}
