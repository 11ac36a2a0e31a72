package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// memMirror is an in-process Mirror used in place of Redis.
type memMirror struct {
	mu      sync.Mutex
	data    map[domain.BookingType][]domain.Record
	saves   int
	failing bool
}

func newMemMirror() *memMirror {
	return &memMirror{data: map[domain.BookingType][]domain.Record{}}
}

func (m *memMirror) SaveBooking(_ context.Context, t domain.BookingType, r domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("redis down")
	}
	m.saves++
	for i, existing := range m.data[t] {
		if existing.Key() == r.Key() {
			m.data[t][i] = r.Clone()
			return nil
		}
	}
	m.data[t] = append(m.data[t], r.Clone())
	return nil
}

func (m *memMirror) ReplaceBookings(_ context.Context, t domain.BookingType, records []domain.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errors.New("redis down")
	}
	m.data[t] = nil
	skipped := 0
	for _, r := range records {
		if r.Key() == "" {
			skipped++
			continue
		}
		m.data[t] = append(m.data[t], r.Clone())
	}
	return skipped, nil
}

func (m *memMirror) GetBookings(_ context.Context, t domain.BookingType) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errors.New("redis down")
	}
	out := make([]domain.Record, 0, len(m.data[t]))
	for _, r := range m.data[t] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func newTestCollection(mirror Mirror) *Collection {
	c := New(mirror, logger.New("error", false), nil)
	c.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestAppend(t *testing.T) {
	mirror := newMemMirror()
	c := newTestCollection(mirror)

	rec, err := c.Append(domain.Hotel, domain.Record{"ticketId": "HTL-1", "hotelName": "Taj"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rec.String("submittedAt") != "2025-03-04T10:00:00.000Z" {
		t.Errorf("submittedAt = %q", rec.String("submittedAt"))
	}
	if rec.String("bookingType") != "hotel" {
		t.Errorf("bookingType = %q", rec.String("bookingType"))
	}
	if len(mirror.data[domain.Hotel]) != 1 {
		t.Error("Append() did not mirror the booking")
	}

	tests := []struct {
		name string
		typ  domain.BookingType
		rec  domain.Record
		want error
	}{
		{"duplicate", domain.Hotel, domain.Record{"ticketId": "HTL-1"}, ErrDuplicate},
		{"bookingId alias duplicate", domain.Hotel, domain.Record{"bookingId": "HTL-1"}, ErrDuplicate},
		{"no key", domain.Hotel, domain.Record{"hotelName": "Oberoi"}, ErrMissingKey},
		{"unknown type", domain.BookingType("cruise"), domain.Record{"ticketId": "X"}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Append(tt.typ, tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("Append() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateBooking(t *testing.T) {
	mirror := newMemMirror()
	c := newTestCollection(mirror)
	c.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Flight: {{"ticketId": "FLT-1", "travelerName": "Asha"}},
	})

	if err := c.UpdateBooking(domain.Flight, "FLT-1", domain.Record{"travelerName": "Asha Rao"}); err != nil {
		t.Fatalf("UpdateBooking() error = %v", err)
	}
	got, _ := c.Get(domain.Flight, "FLT-1")
	if got.String("travelerName") != "Asha Rao" {
		t.Errorf("travelerName = %q", got.String("travelerName"))
	}
	if mirror.data[domain.Flight][0].String("travelerName") != "Asha Rao" {
		t.Error("update not mirrored")
	}

	if err := c.UpdateBooking(domain.Flight, "FLT-9", domain.Record{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBooking(missing) error = %v", err)
	}
}

func TestUpdateBookingSurvivesMirrorFailure(t *testing.T) {
	mirror := newMemMirror()
	c := newTestCollection(mirror)
	c.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Visa: {{"ticketId": "VISA-1", "country": "JP"}},
	})
	mirror.failing = true

	if err := c.UpdateBooking(domain.Visa, "VISA-1", domain.Record{"country": "KR"}); err != nil {
		t.Fatalf("UpdateBooking() error = %v, mirror failures must not surface", err)
	}
	got, _ := c.Get(domain.Visa, "VISA-1")
	if got.String("country") != "KR" {
		t.Errorf("country = %q", got.String("country"))
	}
}

func TestReplaceRemoteKeepsLocalOnly(t *testing.T) {
	c := newTestCollection(nil)
	c.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Flight: {
			{"_id": "db-1", "ticketId": "FLT-1"},
			{"ticketId": "FLT-LOCAL"},
			{"ticketId": "FLT-2"},
		},
	})

	kept := c.ReplaceRemote(context.Background(), domain.Flight, []domain.Record{
		{"_id": "db-2", "ticketId": "FLT-2"},
		{"_id": "db-3", "ticketId": "FLT-3"},
	})
	if kept != 1 {
		t.Errorf("ReplaceRemote() kept %d, want 1", kept)
	}

	got := c.Snapshot(domain.Flight)
	want := []string{"FLT-2", "FLT-3", "FLT-LOCAL"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].TicketKey() != w {
			t.Errorf("Snapshot()[%d] = %s, want %s", i, got[i].TicketKey(), w)
		}
	}
	if c.LastReload().IsZero() {
		t.Error("LastReload() not set")
	}
}

func TestReplaceRemoteKeepsNewerLocalEdits(t *testing.T) {
	c := newTestCollection(nil)
	c.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Hotel: {
			{"_id": "db-1", "ticketId": "HTL-1", "hotelName": "Old", "lastModified": "2025-03-01T08:00:00.000Z"},
			{"_id": "db-2", "ticketId": "HTL-2", "hotelName": "Old", "lastModified": "2025-03-01T08:00:00.000Z"},
			{"_id": "db-3", "ticketId": "HTL-3", "hotelName": "Old"},
		},
	})
	// local-fallback commits after a failed backend update
	for _, key := range []string{"HTL-1", "HTL-3"} {
		err := c.UpdateBooking(domain.Hotel, key, domain.Record{"hotelName": "Edited", "lastModified": "2025-03-04T09:30:00.000Z"})
		if err != nil {
			t.Fatalf("UpdateBooking(%s) error = %v", key, err)
		}
	}
	if err := c.UpdateBooking(domain.Hotel, "HTL-2", domain.Record{"hotelName": "Stale", "lastModified": "2025-03-02T00:00:00.000Z"}); err != nil {
		t.Fatalf("UpdateBooking(HTL-2) error = %v", err)
	}

	kept := c.ReplaceRemote(context.Background(), domain.Hotel, []domain.Record{
		{"_id": "db-1", "ticketId": "HTL-1", "hotelName": "Old", "lastModified": "2025-03-01T08:00:00.000Z"},
		{"_id": "db-2", "ticketId": "HTL-2", "hotelName": "Remote", "lastModified": "2025-03-03T00:00:00.000Z"},
		{"_id": "db-3", "ticketId": "HTL-3", "hotelName": "Old"},
	})
	if kept != 2 {
		t.Errorf("ReplaceRemote() kept %d, want 2", kept)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"HTL-1", "Edited"},
		{"HTL-2", "Remote"},
		{"HTL-3", "Edited"},
	}
	got := c.Snapshot(domain.Hotel)
	if len(got) != len(tests) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(tests))
	}
	for i, tt := range tests {
		if got[i].TicketKey() != tt.key || got[i].String("hotelName") != tt.want {
			t.Errorf("Snapshot()[%d] = %s %q, want %s %q", i, got[i].TicketKey(), got[i].String("hotelName"), tt.key, tt.want)
		}
	}
}

func TestRestoreAndSeed(t *testing.T) {
	mirror := newMemMirror()
	mirror.data[domain.Forex] = []domain.Record{{"ticketId": "FX-1", "currency": "USD"}}

	c := newTestCollection(mirror)
	n, err := c.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Restore() = %d, want 1", n)
	}

	added := c.Seed(context.Background(), map[domain.BookingType][]domain.Record{
		domain.Forex: {
			{"ticketId": "FX-1", "currency": "EUR"},
			{"ticketId": "FX-2", "currency": "GBP"},
		},
	})
	if added != 1 {
		t.Errorf("Seed() added %d, want 1", added)
	}
	got, _ := c.Get(domain.Forex, "FX-1")
	if got.String("currency") != "USD" {
		t.Error("Seed() overwrote a restored booking")
	}
	if c.Counts()[domain.Forex] != 2 {
		t.Errorf("Counts() = %v", c.Counts())
	}
}

func TestRestoreMirrorFailure(t *testing.T) {
	mirror := newMemMirror()
	mirror.failing = true
	c := newTestCollection(mirror)
	if _, err := c.Restore(context.Background()); err == nil {
		t.Error("Restore() should report mirror errors")
	}

	memOnly := newTestCollection(nil)
	if n, err := memOnly.Restore(context.Background()); n != 0 || err != nil {
		t.Errorf("Restore() without mirror = %d, %v", n, err)
	}
}
