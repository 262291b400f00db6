/**
 * @description
 * Per-client rate limiting for public endpoints. A Redis fixed-window counter is
 * used when Redis is configured so limits hold across replicas; otherwise an
 * in-memory token bucket per client IP.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: distributed counter.
 */
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfterSeconds int, err error)
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter shared by every replica.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	scope  string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix, scope string, limit int, window time.Duration) *RedisLimiter {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "allrails:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: trimmedPrefix, scope: scope, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	count, retryAfter, err := r.consume(ctx, key)
	if err != nil {
		return true, 0, err
	}
	return count <= r.limit, retryAfter, nil
}

func (r *RedisLimiter) consume(ctx context.Context, subject string) (count int, retryAfterSeconds int, err error) {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		return 0, 0, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return 0, 0, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, r.scope, subject)
	rawResult, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(currentCount), retryAfter, nil
}

// MemoryLimiter is a token bucket per key, refilled continuously.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	capacity int
	interval time.Duration
	now      func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewMemoryLimiter allows perMinute requests per key, with a burst of the same size.
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &MemoryLimiter{
		buckets:  make(map[string]*tokenBucket),
		capacity: perMinute,
		interval: time.Minute / time.Duration(perMinute),
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = bucket
	}

	if refill := int(now.Sub(bucket.lastRefill) / l.interval); refill > 0 {
		bucket.tokens = min(l.capacity, bucket.tokens+refill)
		bucket.lastRefill = bucket.lastRefill.Add(time.Duration(refill) * l.interval)
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true, 0, nil
	}
	wait := l.interval - now.Sub(bucket.lastRefill)
	return false, int(math.Ceil(wait.Seconds())), nil
}

// Sweep drops buckets idle for longer than idle.
func (l *MemoryLimiter) Sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastRefill) > idle {
			delete(l.buckets, key)
		}
	}
}

// RunSweeper sweeps idle buckets every interval until ctx is cancelled.
func (l *MemoryLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(10 * time.Minute)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter errors fail open.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := limiter.Allow(r.Context(), ClientIP(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "error", err)
			}
			if !allowed {
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
