package index

import (
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrDuplicate = errors.New("booking already exists")
)

// MemoryIndex holds the local booking collection, one ordered list per
// booking type. It is the read path for local searches and keeps working
// when Redis is unavailable.
type MemoryIndex struct {
	mu         sync.RWMutex
	bookings   map[domain.BookingType][]domain.Record
	lastReload time.Time // Timestamp of last snapshot replace
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		bookings: make(map[domain.BookingType][]domain.Record),
	}
}

// Replace swaps the whole list of one type, keeping the given order
func (idx *MemoryIndex) Replace(t domain.BookingType, records []domain.Record) {
	list := make([]domain.Record, 0, len(records))
	for _, r := range records {
		list = append(list, r.Clone())
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bookings[t] = list
	idx.lastReload = time.Now()
}

// Add appends a record at the end of its type's list. A record whose key is
// already present is rejected.
func (idx *MemoryIndex) Add(t domain.BookingType, record domain.Record) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if key := record.Key(); key != "" && find(idx.bookings[t], key) >= 0 {
		return ErrDuplicate
	}
	idx.bookings[t] = append(idx.bookings[t], record.Clone())
	return nil
}

// Update merges fields into the record addressed by key (ticketId,
// bookingId alias or _id) and returns the stored result.
func (idx *MemoryIndex) Update(t domain.BookingType, key string, fields domain.Record) (domain.Record, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list := idx.bookings[t]
	i := find(list, key)
	if i < 0 {
		return nil, ErrNotFound
	}
	list[i] = list[i].Merge(fields)
	return list[i].Clone(), nil
}

// Get retrieves a record by key
func (idx *MemoryIndex) Get(t domain.BookingType, key string) (domain.Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i := find(idx.bookings[t], key)
	if i < 0 {
		return nil, false
	}
	return idx.bookings[t][i].Clone(), true
}

// Snapshot returns a copy of one type's records in collection order
func (idx *MemoryIndex) Snapshot(t domain.BookingType) []domain.Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list := idx.bookings[t]
	out := make([]domain.Record, 0, len(list))
	for _, r := range list {
		out = append(out, r.Clone())
	}
	return out
}

// Count returns the number of records of one type
func (idx *MemoryIndex) Count(t domain.BookingType) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.bookings[t])
}

// Counts returns the number of records per known type
func (idx *MemoryIndex) Counts() map[domain.BookingType]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[domain.BookingType]int, len(domain.AllBookingTypes))
	for _, t := range domain.AllBookingTypes {
		out[t] = len(idx.bookings[t])
	}
	return out
}

// GetLastReload returns the timestamp of the last snapshot replace
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// find returns the position of the record addressed by key, or -1.
func find(list []domain.Record, key string) int {
	if key == "" {
		return -1
	}
	for i, r := range list {
		if r.String(domain.FieldTicketID) == key ||
			r.String(domain.FieldBookingID) == key ||
			r.String(domain.FieldStorageID) == key {
			return i
		}
	}
	return -1
}
