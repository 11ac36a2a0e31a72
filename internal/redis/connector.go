// Package redis opens the connection used to mirror the local booking
// collection.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// clientName is reported by CLIENT LIST on the server.
const clientName = "tripdesk"

// ConnectOptions defines the Redis client and its startup retry policy.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectTimeout time.Duration // Total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries, doubled after each failure
	MaxWait        time.Duration // Cap on the wait between retries (ex: 10s)
	PingTimeout    time.Duration // Timeout of each ping attempt (ex: 5s)
	WarnThreshold  int           // Attempts logged at warn level before escalating to error
}

func (o ConnectOptions) validate() error {
	switch {
	case o.Addr == "":
		return errors.New("redis address is empty")
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("PingTimeout must be > 0, got %v", o.PingTimeout)
	case o.WarnThreshold < 0:
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold)
	}
	return nil
}

// New connects with exponential backoff until ConnectTimeout elapses or ctx
// is cancelled. The client is closed when no connection could be made.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		ClientName:   clientName,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	c := &connector{client: client, opts: opts, logger: log}
	if err := c.connect(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type connector struct {
	client *redis.Client
	opts   ConnectOptions
	logger logger.Logger
}

func (c *connector) connect(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, c.opts.ConnectTimeout)
	defer cancel()

	start := time.Now()
	c.logger.Info("connecting to redis",
		logger.String("addr", c.opts.Addr),
		logger.Duration("timeout", c.opts.ConnectTimeout))

	wait := c.opts.RetryInterval
	for attempt := 1; ; attempt++ {
		err := c.ping(ctx)
		if err == nil {
			c.connected(attempt, time.Since(start))
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Error("redis unavailable - giving up",
				logger.String("addr", c.opts.Addr),
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", c.opts.Addr, attempt, err)
		case <-timer.C:
			c.retrying(attempt, wait, deadlineIn(ctx), err)
			wait = min(wait*2, c.opts.MaxWait)
		}
	}
}

func (c *connector) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.opts.PingTimeout)
	defer cancel()
	return c.client.Ping(pingCtx).Err()
}

func (c *connector) connected(attempts int, elapsed time.Duration) {
	if attempts == 1 {
		c.logger.Info("connected to redis", logger.String("addr", c.opts.Addr))
		return
	}
	c.logger.Warn("connected to redis after retry",
		logger.String("addr", c.opts.Addr),
		logger.Int("attempts", attempts),
		logger.Duration("elapsed", elapsed))
}

// retrying logs at warn for the first attempts, then at error once the
// threshold is passed or the deadline is close.
func (c *connector) retrying(attempt int, next, remaining time.Duration, err error) {
	fields := []logger.Field{
		logger.String("addr", c.opts.Addr),
		logger.Int("attempt", attempt),
		logger.Duration("next_retry_in", next),
		logger.Duration("remaining", remaining),
		logger.Error(err),
	}
	if attempt <= c.opts.WarnThreshold && remaining >= 10*time.Second {
		c.logger.Warn("redis connection failed, retrying", fields...)
		return
	}
	c.logger.Error("redis still unavailable, retrying", fields...)
}

func deadlineIn(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
