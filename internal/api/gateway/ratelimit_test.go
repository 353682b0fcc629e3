package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEffectiveLimit(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{DefaultRequestsPerMinute: 100}, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		tier     string
		endpoint string
		method   string
		want     int
	}{
		{"public default", DefaultTier, "/indicators", http.MethodGet, 100},
		{"reviewer tier", "reviewer", "/indicators", http.MethodGet, 500},
		{"case analysis costs four", DefaultTier, "/analyze/case", http.MethodPost, 25},
		{"document analysis costs one", DefaultTier, "/analyze/document", http.MethodPost, 100},
		{"method must match", DefaultTier, "/analyze/case", http.MethodGet, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rl.effectiveLimit(tt.tier, tt.endpoint, tt.method))
		})
	}
}

func TestEffectiveLimit_NeverZero(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		DefaultRequestsPerMinute: 2,
		Endpoints: map[string]EndpointLimits{
			"POST:/analyze/case": {CostMultiplier: 10},
		},
	}, nil)

	assert.Equal(t, 1, rl.effectiveLimit(DefaultTier, "/analyze/case", http.MethodPost))
}

func TestResolveTier(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{}, nil)

	assert.Equal(t, "internal", rl.resolveTier("internal"))
	assert.Equal(t, DefaultTier, rl.resolveTier(""))
	assert.Equal(t, DefaultTier, rl.resolveTier("platinum"))
}

func TestEvaluate(t *testing.T) {
	now := time.Unix(1700000000, 0)

	ok := evaluate(3, 5, DefaultTier, now, 30*time.Second)
	assert.True(t, ok.Allowed)
	assert.Equal(t, 2, ok.Remaining)
	assert.Equal(t, now.Add(30*time.Second), ok.ResetAt)
	assert.Zero(t, ok.RetryAfter)

	denied := evaluate(6, 5, DefaultTier, now, 30*time.Second)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 30*time.Second, denied.RetryAfter)
	assert.Equal(t, "Rate limit exceeded", denied.Reason)
}

func TestCheck_NilClientAllows(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{DefaultRequestsPerMinute: 10}, nil)

	result, err := rl.Check(context.Background(), "", "10.0.0.1", "/analyze/document", http.MethodPost)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, DefaultTier, result.Tier)
}

func TestCheck_FailsOpenWhenRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRateLimiter(client, RateLimitConfig{DefaultRequestsPerMinute: 10}, zaptest.NewLogger(t))

	result, err := rl.Check(context.Background(), DefaultTier, "10.0.0.1", "/analyze/case", http.MethodPost)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMiddleware_SetsHeaders(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{DefaultRequestsPerMinute: 40, IncludeHeaders: true}, nil)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/analyze/case", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	// forwarding headers cannot pick the bucket
	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	// RealIP rewrites RemoteAddr without a port
	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
