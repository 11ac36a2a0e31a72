package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tripdesk/internal/collection"
	"github.com/MrSnakeDoc/tripdesk/internal/config"
	"github.com/MrSnakeDoc/tripdesk/internal/connectivity"
	"github.com/MrSnakeDoc/tripdesk/internal/gateway"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
	"github.com/MrSnakeDoc/tripdesk/internal/reconcile"
	"github.com/MrSnakeDoc/tripdesk/internal/redis"
	"github.com/MrSnakeDoc/tripdesk/internal/scheduler"
	"github.com/MrSnakeDoc/tripdesk/internal/search"
	"github.com/MrSnakeDoc/tripdesk/internal/session"
	"github.com/MrSnakeDoc/tripdesk/internal/sources/seed"
	redisstore "github.com/MrSnakeDoc/tripdesk/internal/store/redis"
	"github.com/MrSnakeDoc/tripdesk/internal/version"
)

const metricsNamespace = "tripdesk"

// Core is the wiring shared by the server and the one-shot CLI commands:
// backend gateway, probe, local collection and search planner.
type Core struct {
	Gateway     *gateway.Client
	Probe       *connectivity.Probe
	Collection  *collection.Collection
	Planner     *search.Planner
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	RedisClient *goredis.Client
}

// NewCore builds the core components. Redis is connected only when
// configured; the collection is restored from it and then seeded.
func NewCore(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*Core, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metricsNamespace, reg)

	var redisClient *goredis.Client
	var mirror collection.Mirror
	if cfg.RedisEnabled() {
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient.With(logger.String("component", "redis")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		mirror = redisstore.NewStore(client)
	} else {
		loggerClient.Info("redis not configured, local collection is memory-only")
	}

	coll := collection.New(mirror, loggerClient, m)

	if mirror != nil {
		syncer := scheduler.NewRedisSyncer(coll, loggerClient)
		if err := syncer.Sync(ctx); err != nil {
			loggerClient.Warn("failed to sync from redis on startup, continuing with seed and backend snapshots",
				logger.Error(err))
		}
	}

	if cfg.SeedFile != "" {
		records, err := seed.NewLoader(cfg.SeedFile).Load()
		if err != nil {
			closeRedis(redisClient, loggerClient)
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		added := coll.Seed(ctx, records)
		loggerClient.Info("seed file loaded",
			logger.String("file", cfg.SeedFile),
			logger.Int("added", added))
	}

	gw, err := gateway.New(gateway.Options{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
	}, loggerClient)
	if err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, fmt.Errorf("failed to create backend gateway: %w", err)
	}

	return &Core{
		Gateway:     gw,
		Probe:       connectivity.New(gw, cfg.ProbeTimeout, loggerClient),
		Collection:  coll,
		Planner:     search.NewPlanner(gw, coll, loggerClient, m),
		Metrics:     m,
		Registry:    reg,
		RedisClient: redisClient,
	}, nil
}

// Close releases the Redis connection, if any.
func (c *Core) Close(loggerClient logger.Logger) {
	closeRedis(c.RedisClient, loggerClient)
}

func closeRedis(client *goredis.Client, loggerClient logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		loggerClient.Warnf("failed to close redis: %v", err)
		return
	}
	loggerClient.Info("✅ Redis closed cleanly")
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	core      *Core
	server    *httpserver.Server
	reloader  *scheduler.SnapshotReloader
	collector *scheduler.SessionCollector
}

// New wires the HTTP service on top of the core components. ctx bounds the
// startup work (Redis connection, restore, seed).
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	core, err := NewCore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	engine := &session.Engine{
		Searcher:  core.Planner,
		Committer: reconcile.NewWriter(core.Gateway, core.Collection, loggerClient, core.Metrics),
		Logger:    loggerClient,
		Metrics:   core.Metrics,
	}
	sessions := session.NewManager(engine, core.Probe)

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewSnapshotReloader(
		core.Gateway,
		core.Collection,
		loggerClient.With(logger.String("component", "reloader")),
		cfg.ReloadInterval,
		reloadTrigger,
	)

	collector := scheduler.NewSessionCollector(
		sessions,
		core.Metrics,
		loggerClient.With(logger.String("component", "session-gc")),
		cfg.GCInterval,
		cfg.SessionIdleTTL,
	)

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		BackendURL:    cfg.BackendURL,
		Sessions:      sessions,
		Collection:    core.Collection,
		Probe:         core.Probe,
		RedisClient:   core.RedisClient,
		Metrics:       core.Metrics,
		Gatherer:      core.Registry,
		ReloadTrigger: reloadTrigger,
		RateLimit: deps.RateLimit{
			Burst:      cfg.RateLimitBurst,
			PerMinute:  cfg.RateLimitPerMinute,
			MaxEntries: cfg.RateLimitMaxIPs,
		},
	}

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		core:      core,
		server:    httpserver.New(cfg, loggerClient, d),
		reloader:  reloader,
		collector: collector,
	}, nil
}

// Run serves until ctx is cancelled or the HTTP server fails, then shuts
// down the background jobs, the server and Redis.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting Tripdesk v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Tripdesk %s", version.String())

	mode := a.core.Probe.Detect(ctx)
	a.logger.Info("backend probed",
		logger.String("url", a.cfg.BackendURL),
		logger.String("mode", string(mode)))

	// Start snapshot reloader (initial pull, then periodic refresh)
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start snapshot reloader: %w", err)
	}
	a.logger.Info("snapshot reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	// Start session collector
	if err := a.collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session collector: %w", err)
	}
	a.logger.Info("session collector started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("idle_ttl", a.cfg.SessionIdleTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.reloader.Stop()
		a.collector.Stop()
		a.core.Close(a.logger)
		return err
	}

	a.reloader.Stop()
	a.collector.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.core.Close(a.logger)

	a.logger.Info("✅ Tripdesk stopped cleanly")
	return nil
}
