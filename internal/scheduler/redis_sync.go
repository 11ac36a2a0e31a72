package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// Restorer reloads the local collection from its Redis mirror.
type Restorer interface {
	Restore(ctx context.Context) (int, error)
}

// RedisSyncer restores the booking collection from Redis on startup
type RedisSyncer struct {
	collection Restorer
	logger     logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(c Restorer, log logger.Logger) *RedisSyncer {
	return &RedisSyncer{
		collection: c,
		logger:     log,
	}
}

// Sync loads bookings from Redis into the memory index
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing bookings from redis to memory")

	count, err := rs.collection.Restore(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		rs.logger.Info("no bookings found in redis")
		return nil
	}

	rs.logger.Info("synced bookings from redis",
		logger.Int("count", count))

	return nil
}
