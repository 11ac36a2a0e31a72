package index

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	for bt, n := range index.Counts() {
		if n != 0 {
			t.Errorf("NewMemoryIndex() should start empty, got %d %s", n, bt)
		}
	}
	if !index.GetLastReload().IsZero() {
		t.Error("GetLastReload() should be zero before any replace")
	}
}

func TestReplaceKeepsOrderAndOverwrites(t *testing.T) {
	index := NewMemoryIndex()

	index.Replace(domain.Flight, []domain.Record{{"ticketId": "FLT-1"}})
	index.Replace(domain.Flight, []domain.Record{
		{"ticketId": "FLT-3"},
		{"ticketId": "FLT-2"},
	})

	got := index.Snapshot(domain.Flight)
	if len(got) != 2 {
		t.Fatalf("Replace() should overwrite, got %d records want 2", len(got))
	}
	if got[0].TicketKey() != "FLT-3" || got[1].TicketKey() != "FLT-2" {
		t.Errorf("Snapshot() order = [%s %s]", got[0].TicketKey(), got[1].TicketKey())
	}
	if index.Count(domain.Hotel) != 0 {
		t.Error("Replace() leaked into another type")
	}
	if index.GetLastReload().IsZero() {
		t.Error("Replace() should set last reload")
	}
}

func TestAdd(t *testing.T) {
	index := NewMemoryIndex()

	if err := index.Add(domain.Visa, domain.Record{"ticketId": "VISA-1"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := index.Add(domain.Visa, domain.Record{"ticketId": "VISA-1"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Add() duplicate error = %v, want ErrDuplicate", err)
	}
	// same ticket in another type is a different booking
	if err := index.Add(domain.Hotel, domain.Record{"ticketId": "VISA-1"}); err != nil {
		t.Errorf("Add() other type error = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	index := NewMemoryIndex()
	index.Replace(domain.Hotel, []domain.Record{
		{"ticketId": "HTL-1", "city": "Pune"},
		{"bookingId": "HTL-OLD", "city": "Goa"},
		{"_id": "db-7", "city": "Agra"},
	})

	tests := []struct {
		key  string
		want string
	}{
		{"HTL-1", "Delhi"},
		{"HTL-OLD", "Kochi"},
		{"db-7", "Jaipur"},
	}
	for _, tt := range tests {
		got, err := index.Update(domain.Hotel, tt.key, domain.Record{"city": tt.want})
		if err != nil {
			t.Fatalf("Update(%s) error = %v", tt.key, err)
		}
		if got.String("city") != tt.want {
			t.Errorf("Update(%s) city = %q", tt.key, got.String("city"))
		}
		stored, _ := index.Get(domain.Hotel, tt.key)
		if stored.String("city") != tt.want {
			t.Errorf("stored city = %q", stored.String("city"))
		}
	}

	if _, err := index.Update(domain.Hotel, "missing", domain.Record{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
	if _, err := index.Update(domain.Flight, "HTL-1", domain.Record{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() wrong type error = %v", err)
	}
	if _, err := index.Update(domain.Hotel, "", domain.Record{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(empty key) error = %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	index := NewMemoryIndex()
	index.Replace(domain.Forex, []domain.Record{{"ticketId": "FX-1", "documents": map[string]any{"passport": true}}})

	snap := index.Snapshot(domain.Forex)
	snap[0]["ticketId"] = "changed"
	snap[0]["documents"].(map[string]any)["passport"] = false

	again := index.Snapshot(domain.Forex)
	if again[0].TicketKey() != "FX-1" {
		t.Error("Snapshot() exposes stored records")
	}
	if again[0]["documents"].(map[string]any)["passport"] != true {
		t.Error("Snapshot() shares nested objects")
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewMemoryIndex()
	index.Replace(domain.Flight, []domain.Record{{"ticketId": "FLT-1", "counter": 0}})

	var wg sync.WaitGroup

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = index.Snapshot(domain.Flight)
		}()
	}

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = index.Add(domain.Hotel, domain.Record{"ticketId": fmt.Sprintf("HTL-%d", i)})
			_, _ = index.Update(domain.Flight, "FLT-1", domain.Record{"counter": i})
		}(i)
	}

	wg.Wait()

	if got := index.Count(domain.Hotel); got != 100 {
		t.Errorf("Concurrent Add() count = %d, want 100", got)
	}
}
