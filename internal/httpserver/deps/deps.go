package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tripdesk/internal/collection"
	"github.com/MrSnakeDoc/tripdesk/internal/connectivity"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
	"github.com/MrSnakeDoc/tripdesk/internal/session"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time       // for testing, defaults to time.Now
	AllowedHosts  []string               // Host headers allowed to access the server
	AllowedCIDRS  []string               // IPs allowed to access admin endpoints (reload, infra, metrics)
	TrustProxy    bool                   // true if running behind a trusted reverse proxy (e.g., cloudflared)
	BackendURL    string                 // Base URL of the remote booking backend
	Sessions      *session.Manager       // Open search sessions
	Collection    *collection.Collection // Local booking collection
	Probe         *connectivity.Probe    // Backend reachability probe
	RedisClient   *redis.Client          // Redis client connection, nil when memory-only
	Metrics       *metrics.Metrics       // Prometheus metrics, nil disables recording
	Gatherer      prometheus.Gatherer    // Registry exposed on /metrics
	ReloadTrigger chan struct{}          // Channel to trigger a manual snapshot reload
	RateLimit     RateLimit              // Limits for search and commit
	MaxBodyBytes  int64                  // Request body cap, 0 = 1 MiB
}

// RateLimit sizes the per-IP limiter on search and commit.
type RateLimit struct {
	Burst      int
	PerMinute  int
	MaxEntries int
}
