// Package collection is the local booking collection: the in-memory index
// every local search reads from, mirrored best-effort to Redis.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/index"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
)

var (
	ErrNotFound    = index.ErrNotFound
	ErrDuplicate   = index.ErrDuplicate
	ErrMissingKey  = errors.New("booking has no ticketId")
	ErrUnknownType = errors.New("unknown booking type")
)

// Mirror persists a type's records outside the process.
type Mirror interface {
	SaveBooking(ctx context.Context, t domain.BookingType, record domain.Record) error
	ReplaceBookings(ctx context.Context, t domain.BookingType, records []domain.Record) (int, error)
	GetBookings(ctx context.Context, t domain.BookingType) ([]domain.Record, error)
}

// Collection owns the local bookings. Writes go to memory first; the mirror
// is updated afterwards and its failures are only logged.
type Collection struct {
	index   *index.MemoryIndex
	mirror  Mirror
	logger  logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// New creates a collection. mirror may be nil for a memory-only collection.
func New(mirror Mirror, log logger.Logger, m *metrics.Metrics) *Collection {
	return &Collection{
		index:   index.NewMemoryIndex(),
		mirror:  mirror,
		logger:  log,
		metrics: m,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Snapshot returns a copy of one type's records in collection order.
func (c *Collection) Snapshot(t domain.BookingType) []domain.Record {
	return c.index.Snapshot(t)
}

// Get retrieves a single booking by ticketId, bookingId or _id.
func (c *Collection) Get(t domain.BookingType, key string) (domain.Record, bool) {
	return c.index.Get(t, key)
}

// Counts returns the number of bookings per type.
func (c *Collection) Counts() map[domain.BookingType]int {
	return c.index.Counts()
}

// LastReload returns when a snapshot was last replaced.
func (c *Collection) LastReload() time.Time {
	return c.index.GetLastReload()
}

// UpdateBooking merges fields into the booking addressed by key. It is the
// local write path used when the backend cannot take an update.
func (c *Collection) UpdateBooking(t domain.BookingType, key string, fields domain.Record) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	updated, err := c.index.Update(t, key, fields)
	if err != nil {
		return fmt.Errorf("update %s booking %q: %w", t, key, err)
	}

	c.mirrorOne(t, updated)
	c.logger.Info("booking updated locally",
		logger.String("booking_type", string(t)),
		logger.String("key", key))
	return nil
}

// Append adds a booking submitted while the backend was unreachable. The
// record must carry a ticketId; submittedAt is stamped when absent.
func (c *Collection) Append(t domain.BookingType, record domain.Record) (domain.Record, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if record.TicketKey() == "" {
		return nil, ErrMissingKey
	}

	rec := record.Clone()
	rec[domain.FieldBookingType] = string(t)
	if rec.String(domain.FieldSubmittedAt) == "" {
		rec[domain.FieldSubmittedAt] = c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	if err := c.index.Add(t, rec); err != nil {
		return nil, fmt.Errorf("append %s booking %q: %w", t, rec.TicketKey(), err)
	}

	c.mirrorOne(t, rec)
	c.observe(t)
	return rec.Clone(), nil
}

// ReplaceRemote swaps one type's snapshot for the backend's list. Records
// appended locally that the backend does not know yet (no _id and no
// matching ticket) are kept after the remote ones. A persisted record whose
// local lastModified is newer than the backend copy, an edit committed
// while the backend was failing, replaces that copy in place. The result
// counts the local records kept either way.
func (c *Collection) ReplaceRemote(ctx context.Context, t domain.BookingType, remote []domain.Record) int {
	known := make(map[string]bool, len(remote))
	byID := make(map[string]int, len(remote))
	for i, r := range remote {
		if k := r.TicketKey(); k != "" {
			known[k] = true
		}
		if id := r.String(domain.FieldStorageID); id != "" {
			byID[id] = i
		}
	}

	merged := make([]domain.Record, 0, len(remote))
	merged = append(merged, remote...)
	kept := 0
	for _, r := range c.index.Snapshot(t) {
		if id := r.String(domain.FieldStorageID); id != "" {
			if i, ok := byID[id]; ok && newerEdit(r, remote[i]) {
				merged[i] = r
				kept++
			}
			continue
		}
		if known[r.TicketKey()] {
			continue
		}
		merged = append(merged, r)
		kept++
	}

	c.index.Replace(t, merged)
	c.observe(t)

	if c.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		skipped, err := c.mirror.ReplaceBookings(mctx, t, merged)
		if err != nil {
			c.logger.Warn("failed to save bookings to redis",
				logger.String("booking_type", string(t)),
				logger.Error(err))
		} else if skipped > 0 {
			c.logger.Debug("bookings without key not mirrored",
				logger.String("booking_type", string(t)),
				logger.Int("count", skipped))
		}
	}

	return kept
}

// newerEdit reports whether local carries a lastModified stamp later than
// remote's. A remote copy without a readable stamp is older than any stamp.
func newerEdit(local, remote domain.Record) bool {
	lt, err := time.Parse(time.RFC3339Nano, local.String(domain.FieldLastModified))
	if err != nil {
		return false
	}
	rt, err := time.Parse(time.RFC3339Nano, remote.String(domain.FieldLastModified))
	if err != nil {
		return true
	}
	return lt.After(rt)
}

// Restore loads every type from the mirror into memory. Types the mirror
// holds nothing for are left untouched.
func (c *Collection) Restore(ctx context.Context) (int, error) {
	if c.mirror == nil {
		return 0, nil
	}

	total := 0
	for _, t := range domain.AllBookingTypes {
		records, err := c.mirror.GetBookings(ctx, t)
		if err != nil {
			return total, fmt.Errorf("restore %s bookings: %w", t, err)
		}
		if len(records) == 0 {
			continue
		}
		c.index.Replace(t, records)
		c.observe(t)
		total += len(records)
	}
	return total, nil
}

// Seed adds records not already present. It returns how many were added.
func (c *Collection) Seed(ctx context.Context, seed map[domain.BookingType][]domain.Record) int {
	added := 0
	for _, t := range domain.AllBookingTypes {
		for _, r := range seed[t] {
			if key := r.Key(); key != "" {
				if _, ok := c.index.Get(t, key); ok {
					continue
				}
			}
			if err := c.index.Add(t, r); err != nil {
				continue
			}
			if c.mirror != nil {
				mctx, cancel := context.WithTimeout(ctx, c.timeout)
				if err := c.mirror.SaveBooking(mctx, t, r); err != nil {
					c.logger.Debug("seed booking not mirrored",
						logger.String("booking_type", string(t)),
						logger.Error(err))
				}
				cancel()
			}
			added++
		}
		c.observe(t)
	}
	return added
}

func (c *Collection) mirrorOne(t domain.BookingType, record domain.Record) {
	if c.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.mirror.SaveBooking(ctx, t, record); err != nil {
		c.logger.Warn("failed to save booking to redis",
			logger.String("booking_type", string(t)),
			logger.String("key", record.Key()),
			logger.Error(err))
	}
}

func (c *Collection) observe(t domain.BookingType) {
	c.metrics.SetCollectionSize(string(t), c.index.Count(t))
}
