package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request handler timeout (default: 30s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote booking backend
	BackendURL     string        // ex: "https://api.agency.example/api"
	BackendToken   string        // optional bearer token
	BackendTimeout time.Duration // per-call timeout, 0 = none
	ProbeTimeout   time.Duration // timeout of the connectivity probe (default: 5s)

	// Local booking collection
	SeedFile       string        // optional YAML/JSON seed file, empty = no seed
	ReloadInterval time.Duration // interval to pull backend snapshots, 0 = manual only (default: 15m)

	// Search sessions
	SessionIdleTTL time.Duration // idle time after which a session is dropped (default: 30m)
	GCInterval     time.Duration // interval of the session collector (default: 1m)

	// Redis (optional, empty address => memory-only collection)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict admin endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // origins allowed to call the API from a browser, "*" = any

	// Rate limiting on search/commit
	RateLimitBurst     int // bucket size per client IP
	RateLimitPerMinute int // refill per client IP per minute
	RateLimitMaxIPs    int // tracked IPs before an early sweep
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set
// in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] failed to load .env: %v\n", err)
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TRIPDESK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TRIPDESK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("TRIPDESK_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("TRIPDESK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TRIPDESK_PRETTY_LOG", false),

		// Backend
		BackendURL:     requireURL("TRIPDESK_BACKEND_URL"),
		BackendToken:   getenv("TRIPDESK_BACKEND_TOKEN", ""),
		BackendTimeout: mustDuration("TRIPDESK_BACKEND_TIMEOUT", 0),
		ProbeTimeout:   mustDuration("TRIPDESK_PROBE_TIMEOUT", 5*time.Second),

		// Collection
		SeedFile:       getenv("TRIPDESK_SEED_FILE", ""),
		ReloadInterval: mustDuration("TRIPDESK_RELOAD_INTERVAL", 15*time.Minute),

		// Sessions
		SessionIdleTTL: mustDuration("TRIPDESK_SESSION_IDLE_TTL", 30*time.Minute),
		GCInterval:     mustDuration("TRIPDESK_GC_INTERVAL", time.Minute),

		// Redis settings
		RedisAddr:             getenv("TRIPDESK_REDIS_ADDR", ""),
		RedisUser:             getenv("TRIPDESK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TRIPDESK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TRIPDESK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TRIPDESK_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("TRIPDESK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("TRIPDESK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TRIPDESK_TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(getenv("TRIPDESK_CORS_ORIGINS", "*")),

		// Rate limiting
		RateLimitBurst:     getenvInt("TRIPDESK_RATE_LIMIT_BURST", 20),
		RateLimitPerMinute: getenvInt("TRIPDESK_RATE_LIMIT_PER_MINUTE", 120),
		RateLimitMaxIPs:    getenvInt("TRIPDESK_RATE_LIMIT_MAX_IPS", 10000),
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: TRIPDESK_REDIS_PASSWORD is required when TRIPDESK_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.BackendToken != "" {
			cfgCopy.BackendToken = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether the collection is mirrored to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

// requireURL reads a mandatory http(s) base URL. A trailing slash is
// dropped so resource paths join cleanly.
func requireURL(key string) string {
	v := requireEnv(key)
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: Invalid URL for %s: %s", key, v))
	}
	return strings.TrimRight(v, "/")
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
