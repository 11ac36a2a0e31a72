package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/collection"
	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

type fakeLister struct {
	mu    sync.Mutex
	data  map[domain.BookingType][]domain.Record
	down  map[domain.BookingType]bool
	calls int
}

func (f *fakeLister) List(_ context.Context, t domain.BookingType) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down[t] {
		return nil, errors.New("HTTP error! status: 500")
	}
	return f.data[t], nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSnapshotReloader_Reload(t *testing.T) {
	log := logger.New("error", false)
	coll := collection.New(nil, log, nil)
	coll.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Hotel: {{"ticketId": "HTL-LOCAL"}},
		domain.Visa:  {{"ticketId": "VISA-OLD", "_id": "v1"}},
	})

	lister := &fakeLister{
		data: map[domain.BookingType][]domain.Record{
			domain.Flight: {{"_id": "f1", "ticketId": "FLT-1"}},
			domain.Hotel:  {{"_id": "h1", "ticketId": "HTL-1"}},
		},
		down: map[domain.BookingType]bool{domain.Visa: true},
	}

	sr := NewSnapshotReloader(lister, coll, log, 0, nil)
	if err := sr.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if got := coll.Snapshot(domain.Flight); len(got) != 1 || got[0].TicketKey() != "FLT-1" {
		t.Errorf("flight snapshot = %v", got)
	}
	if got := coll.Snapshot(domain.Hotel); len(got) != 2 || got[1].TicketKey() != "HTL-LOCAL" {
		t.Errorf("hotel snapshot should keep the local booking last, got %v", got)
	}
	// a failed type keeps what it had
	if got := coll.Snapshot(domain.Visa); len(got) != 1 || got[0].TicketKey() != "VISA-OLD" {
		t.Errorf("visa snapshot = %v", got)
	}
}

func TestSnapshotReloader_BackendDown(t *testing.T) {
	log := logger.New("error", false)
	down := map[domain.BookingType]bool{}
	for _, bt := range domain.AllBookingTypes {
		down[bt] = true
	}
	sr := NewSnapshotReloader(&fakeLister{down: down}, collection.New(nil, log, nil), log, 0, nil)

	if err := sr.Reload(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Reload() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestSnapshotReloader_ManualTrigger(t *testing.T) {
	log := logger.New("error", false)
	lister := &fakeLister{}
	trigger := make(chan struct{}, 1)
	sr := NewSnapshotReloader(lister, collection.New(nil, log, nil), log, 0, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sr.Stop()

	initial := lister.callCount()
	if initial != len(domain.AllBookingTypes) {
		t.Fatalf("initial reload listed %d types, want %d", initial, len(domain.AllBookingTypes))
	}

	trigger <- struct{}{}
	deadline := time.Now().Add(2 * time.Second)
	for lister.callCount() < 2*initial {
		if time.Now().After(deadline) {
			t.Fatal("manual trigger did not reload")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type fakeSweeper struct {
	idle  int
	total int
	ttl   time.Duration
}

func (f *fakeSweeper) Sweep(ttl time.Duration) int {
	f.ttl = ttl
	n := f.idle
	f.total -= n
	f.idle = 0
	return n
}

func (f *fakeSweeper) Count() int { return f.total }

func TestSessionCollector_Collect(t *testing.T) {
	log := logger.New("error", false)
	sweeper := &fakeSweeper{idle: 2, total: 5}

	sc := NewSessionCollector(sweeper, nil, log, time.Hour, 0)
	if n := sc.Collect(context.Background()); n != 2 {
		t.Errorf("Collect() = %d, want 2", n)
	}
	if sweeper.ttl != DefaultIdleTTL {
		t.Errorf("Sweep() ttl = %v, want default %v", sweeper.ttl, DefaultIdleTTL)
	}
	if n := sc.Collect(context.Background()); n != 0 {
		t.Errorf("second Collect() = %d, want 0", n)
	}
}

type fakeRestorer struct {
	n   int
	err error
}

func (f fakeRestorer) Restore(context.Context) (int, error) { return f.n, f.err }

func TestRedisSyncer_Sync(t *testing.T) {
	log := logger.New("error", false)

	if err := NewRedisSyncer(fakeRestorer{n: 3}, log).Sync(context.Background()); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	if err := NewRedisSyncer(fakeRestorer{}, log).Sync(context.Background()); err != nil {
		t.Errorf("Sync() empty error = %v", err)
	}
	wantErr := errors.New("redis down")
	if err := NewRedisSyncer(fakeRestorer{err: wantErr}, log).Sync(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Sync() error = %v, want %v", err, wantErr)
	}
}
