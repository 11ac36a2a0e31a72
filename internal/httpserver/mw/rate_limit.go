package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/utils"
)

// RateLimitConfig sizes the per-client token buckets guarding search and
// commit, the two routes that fan out to the backend.
type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	MaxEntries        int // tracked clients before an early sweep, 0 = unbounded
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool // resolve IP from proxy headers when true
	OnReject          func(ip string)

	now func() time.Time
}

// tokenBucket refills continuously at rate tokens per second up to capacity.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// take consumes one token. On refusal it returns the wait until a token is
// available, rounded up to whole seconds.
func (b *tokenBucket) take(now time.Time, rate, capacity float64) (ok bool, left int, wait int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dt := now.Sub(b.refilled).Seconds(); dt > 0 {
		b.tokens = math.Min(capacity, b.tokens+dt*rate)
		b.refilled = now
	}
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	return false, 0, max(1, int(math.Ceil((1-b.tokens)/rate)))
}

func (b *tokenBucket) idle(now time.Time, ttl time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.seen) > ttl
}

type limiter struct {
	cfg      RateLimitConfig
	rate     float64
	capacity float64

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerIPPerMin = max(cfg.RefillPerIPPerMin, 1)
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerIPPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*tokenBucket),
		lastSweep: cfg.now(),
	}
}

// bucket returns the client's bucket, sweeping idle ones on schedule or when
// the table is full.
func (l *limiter) bucket(key string, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	full := l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries
	if full || now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		for k, b := range l.buckets {
			if b.idle(now, l.cfg.IdleTTL) {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b := l.buckets[key]
	if b == nil {
		b = &tokenBucket{tokens: l.capacity, refilled: now, seen: now}
		l.buckets[key] = b
	}
	return b
}

func (l *limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit refuses requests with 429 once a client has used its burst,
// and advertises the budget in X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return newLimiter(cfg).middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(l.cfg.Burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.cfg.now()
		key := utils.ClientIP(r, l.cfg.TrustProxy)
		ok, left, wait := l.bucket(key, now).take(now, l.rate, l.capacity)

		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
		if !ok {
			h.Set("Retry-After", strconv.Itoa(wait))
			if l.cfg.OnReject != nil {
				l.cfg.OnReject(key)
			}
			respond.Error(w, http.StatusTooManyRequests, "Too many requests, please slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
