package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

func TestManagerLifecycle(t *testing.T) {
	be, local := fixture()
	m := newManager(be, local, domain.ModeLocal)

	s := m.Create(context.Background())
	if s.ID() == "" {
		t.Fatal("session without id")
	}
	if s.Mode() != domain.ModeLocal {
		t.Errorf("starting mode = %s, want probe result", s.Mode())
	}

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d", m.Count())
	}

	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestManagerDistinctIDs(t *testing.T) {
	be, local := fixture()
	m := newManager(be, local, domain.ModeRemote)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := m.Create(context.Background()).ID()
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestManagerSweep(t *testing.T) {
	be, local := fixture()
	m := newManager(be, local, domain.ModeRemote)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale := m.Create(context.Background())
	now = now.Add(45 * time.Minute)
	fresh := m.Create(context.Background())

	if n := m.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if _, err := m.Get(stale.ID()); !errors.Is(err, ErrNotFound) {
		t.Error("stale session survived sweep")
	}
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Error("fresh session was swept")
	}
}
