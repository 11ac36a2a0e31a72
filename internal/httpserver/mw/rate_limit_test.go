package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimit(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)}
	rejected := 0
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		OnReject:          func(string) { rejected++ },
		now:               clock.now,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	hit := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	steps := []struct {
		name      string
		addr      string
		advance   time.Duration
		want      int
		remaining string
	}{
		{"first", "192.0.2.1:1000", 0, http.StatusNoContent, "1"},
		{"second", "192.0.2.1:1001", 0, http.StatusNoContent, "0"},
		{"burst used", "192.0.2.1:1002", 0, http.StatusTooManyRequests, "0"},
		{"other client", "192.0.2.2:1000", 0, http.StatusNoContent, "1"},
		{"refilled", "192.0.2.1:1003", time.Second, http.StatusNoContent, "0"},
	}
	for _, s := range steps {
		clock.advance(s.advance)
		rec := hit(s.addr)
		if rec.Code != s.want {
			t.Errorf("%s: status = %d, want %d", s.name, rec.Code, s.want)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != s.remaining {
			t.Errorf("%s: remaining = %q, want %q", s.name, got, s.remaining)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("%s: limit header = %q", s.name, rec.Header().Get("X-RateLimit-Limit"))
		}
		if s.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "1" {
			t.Errorf("%s: Retry-After = %q", s.name, rec.Header().Get("Retry-After"))
		}
	}
	if rejected != 1 {
		t.Errorf("OnReject called %d times, want 1", rejected)
	}
}

func TestRateLimitSweepsIdleClients(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)}
	l := newLimiter(RateLimitConfig{
		Burst:             1,
		RefillPerIPPerMin: 1,
		IdleTTL:           time.Minute,
		SweepInterval:     time.Hour,
		MaxEntries:        2,
		now:               clock.now,
	})

	l.bucket("a", clock.now())
	l.bucket("b", clock.now())
	clock.advance(2 * time.Minute)
	l.bucket("c", clock.now())

	if n := l.tracked(); n != 1 {
		t.Errorf("tracked = %d after sweep, want 1", n)
	}
}
