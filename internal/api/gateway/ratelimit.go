// Package gateway provides API gateway functionality including rate limiting
package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "casescreen:ratelimit"

// TierHeader selects the client tier. Unknown or missing tiers fall back to
// DefaultTier.
const TierHeader = "X-Client-Tier"

// DefaultTier applies to unauthenticated callers.
const DefaultTier = "public"

// RateLimiter enforces per-minute request budgets using Redis counters.
// Redis failures never block a request.
type RateLimiter struct {
	redis  *redis.Client
	logger *zap.Logger
	config RateLimitConfig
	script *redis.Script
}

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	DefaultRequestsPerMinute int                       `yaml:"default_requests_per_minute"`
	Tiers                    map[string]TierLimits     `yaml:"tiers"`
	Endpoints                map[string]EndpointLimits `yaml:"endpoints"`
	IncludeHeaders           bool                      `yaml:"include_headers"`
}

// TierLimits defines the budget of one client tier.
type TierLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// EndpointLimits tightens the budget of an expensive route. Keys of the
// Endpoints map are "METHOD:/path".
type EndpointLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	CostMultiplier    int `yaml:"cost_multiplier"`
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
	Tier       string
	Reason     string
}

// NewRateLimiter creates a new rate limiter. A nil client disables counting
// and every request is allowed.
func NewRateLimiter(redisClient *redis.Client, cfg RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultRequestsPerMinute <= 0 {
		cfg.DefaultRequestsPerMinute = 120
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers(cfg.DefaultRequestsPerMinute)
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpointLimits()
	}

	return &RateLimiter{
		redis:  redisClient,
		logger: logger,
		config: cfg,
		script: redis.NewScript(`
			local current = redis.call('INCR', KEYS[1])
			if current == 1 then
				redis.call('PEXPIRE', KEYS[1], ARGV[1])
			end
			return current
		`),
	}
}

// DefaultTiers returns the built-in tiers scaled from the public budget.
func DefaultTiers(public int) map[string]TierLimits {
	return map[string]TierLimits{
		DefaultTier: {RequestsPerMinute: public},
		"reviewer":  {RequestsPerMinute: public * 5},
		"internal":  {RequestsPerMinute: public * 20},
	}
}

// DefaultEndpointLimits makes case analysis cost more than a single document.
func DefaultEndpointLimits() map[string]EndpointLimits {
	return map[string]EndpointLimits{
		"POST:/analyze/case": {
			CostMultiplier: 4,
		},
		"POST:/analyze/document": {
			CostMultiplier: 1,
		},
	}
}

// Check increments the caller's counter for the current window.
func (rl *RateLimiter) Check(ctx context.Context, tier, clientID, endpoint, method string) (*RateLimitResult, error) {
	tier = rl.resolveTier(tier)
	limit := rl.effectiveLimit(tier, endpoint, method)

	if rl.redis == nil {
		return &RateLimitResult{Allowed: true, Limit: limit, Remaining: limit, Tier: tier}, nil
	}

	key := strings.Join([]string{keyPrefix, tier, clientID, endpoint, "minute"}, ":")
	now := time.Now()

	count, err := rl.script.Run(ctx, rl.redis, []string{key}, time.Minute.Milliseconds()).Int()
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: limit, Remaining: limit, Tier: tier}, nil
	}

	ttl, err := rl.redis.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = time.Minute
	}

	return evaluate(count, limit, tier, now, ttl), nil
}

func evaluate(count, limit int, tier string, now time.Time, ttl time.Duration) *RateLimitResult {
	result := &RateLimitResult{
		Allowed:   count <= limit,
		Remaining: max(limit-count, 0),
		Limit:     limit,
		ResetAt:   now.Add(ttl),
		Tier:      tier,
	}
	if !result.Allowed {
		result.RetryAfter = ttl
		result.Reason = "Rate limit exceeded"
	}
	return result
}

func (rl *RateLimiter) resolveTier(tier string) string {
	if _, ok := rl.config.Tiers[tier]; ok {
		return tier
	}
	return DefaultTier
}

func (rl *RateLimiter) effectiveLimit(tier, endpoint, method string) int {
	limit := rl.config.DefaultRequestsPerMinute
	if t, ok := rl.config.Tiers[tier]; ok && t.RequestsPerMinute > 0 {
		limit = t.RequestsPerMinute
	}

	e, ok := rl.config.Endpoints[method+":"+endpoint]
	if !ok {
		return limit
	}
	if e.RequestsPerMinute > 0 && e.RequestsPerMinute < limit {
		limit = e.RequestsPerMinute
	}
	if e.CostMultiplier > 1 {
		limit /= e.CostMultiplier
	}
	return max(limit, 1)
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := rl.Check(r.Context(), r.Header.Get(TierHeader), clientIP(r), r.URL.Path, r.Method)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if rl.config.IncludeHeaders {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}
		}

		if !result.Allowed {
			retry := int(result.RetryAfter.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     result.Reason,
				"retry_after": retry,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP keys on the connection address. Forwarding headers are
// client-controlled; a trusted proxy hop is resolved upstream (chi RealIP)
// before this runs. The port is dropped so reconnects share a bucket.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
