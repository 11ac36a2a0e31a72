package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// ErrBackendUnavailable is returned when no booking type could be listed.
var ErrBackendUnavailable = errors.New("backend unavailable, local snapshot kept")

// Lister lists one booking type from the backend.
type Lister interface {
	List(ctx context.Context, t domain.BookingType) ([]domain.Record, error)
}

// SnapshotStore receives the backend's lists.
type SnapshotStore interface {
	ReplaceRemote(ctx context.Context, t domain.BookingType, remote []domain.Record) int
}

// SnapshotReloader keeps the local collection warm by copying the backend's
// bookings into it, so local-mode searches see recent data.
type SnapshotReloader struct {
	gateway       Lister
	store         SnapshotStore
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSnapshotReloader creates a new snapshot reloader. A zero interval
// disables periodic reloads; manual triggers still work.
func NewSnapshotReloader(
	gw Lister,
	store SnapshotStore,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SnapshotReloader {
	return &SnapshotReloader{
		gateway:       gw,
		store:         store,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic reload process
func (sr *SnapshotReloader) Start(ctx context.Context) error {
	// Load immediately on start; the backend being down is not fatal
	if err := sr.Reload(ctx); err != nil {
		sr.logger.Warn("initial snapshot reload failed",
			logger.Error(err))
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if sr.interval > 0 {
		ticker = time.NewTicker(sr.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Warn("failed to reload bookings",
						logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual reload triggered")
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Warn("failed to reload bookings",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (sr *SnapshotReloader) Stop() {
	close(sr.stopCh)
}

// Reload lists every booking type and replaces the local snapshots. Types
// that fail to list keep their current snapshot.
func (sr *SnapshotReloader) Reload(ctx context.Context) error {
	sr.logger.Debug("reloading bookings from backend")

	var failed []string
	total := 0
	for _, t := range domain.AllBookingTypes {
		records, err := sr.gateway.List(ctx, t)
		if err != nil {
			failed = append(failed, string(t))
			sr.logger.Debug("booking list failed",
				logger.String("booking_type", string(t)),
				logger.Error(err))
			continue
		}
		kept := sr.store.ReplaceRemote(ctx, t, records)
		total += len(records)
		if kept > 0 {
			sr.logger.Info("kept local bookings over backend snapshot",
				logger.String("booking_type", string(t)),
				logger.Int("count", kept))
		}
	}

	if len(failed) == len(domain.AllBookingTypes) {
		return ErrBackendUnavailable
	}

	sr.logger.Info("reloaded bookings from backend",
		logger.Int("count", total),
		logger.Strings("failed_types", failed))

	return nil
}
