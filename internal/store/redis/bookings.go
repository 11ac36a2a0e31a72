package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

// ErrNoKey is returned for records that carry neither a ticket key nor an _id.
var ErrNoKey = errors.New("booking has no ticketId, bookingId or _id")

// Store mirrors the local booking collection in Redis: one JSON document
// per booking plus one sorted set per type scored by insertion sequence, so
// collection order survives restarts.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveBooking stores or overwrites one booking. A booking keeps the
// position it was first inserted at.
func (s *Store) SaveBooking(ctx context.Context, t domain.BookingType, record domain.Record) error {
	id := record.Key()
	if id == "" {
		return ErrNoKey
	}

	data, err := json.Marshal(map[string]any(record))
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}

	seq, err := s.client.Incr(ctx, SequenceKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, BookingKey(t, id), data, 0)
	pipe.ZAddNX(ctx, TypeIndexKey(t), redis.Z{Score: float64(seq), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	return nil
}

// ReplaceBookings stores records as the complete list of one type, in the
// given order. Documents no longer listed are removed. Records without a
// key cannot be addressed and are skipped; their count is returned.
func (s *Store) ReplaceBookings(ctx context.Context, t domain.BookingType, records []domain.Record) (int, error) {
	oldIDs, err := s.client.ZRange(ctx, TypeIndexKey(t), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get booking IDs: %w", err)
	}

	type doc struct {
		id   string
		data []byte
	}
	docs := make([]doc, 0, len(records))
	keep := make(map[string]bool, len(records))
	skipped := 0
	for _, r := range records {
		id := r.Key()
		if id == "" {
			skipped++
			continue
		}
		data, err := json.Marshal(map[string]any(r))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal booking %s: %w", id, err)
		}
		docs = append(docs, doc{id: id, data: data})
		keep[id] = true
	}

	var base int64
	if len(docs) > 0 {
		base, err = s.client.IncrBy(ctx, SequenceKey(), int64(len(docs))).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to allocate sequence: %w", err)
		}
		base -= int64(len(docs))
	}

	pipe := s.client.TxPipeline()
	for _, id := range oldIDs {
		if !keep[id] {
			pipe.Del(ctx, BookingKey(t, id))
		}
	}
	pipe.Del(ctx, TypeIndexKey(t))
	for i, d := range docs {
		pipe.Set(ctx, BookingKey(t, d.id), d.data, 0)
		pipe.ZAddNX(ctx, TypeIndexKey(t), redis.Z{Score: float64(base + int64(i) + 1), Member: d.id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to save bookings: %w", err)
	}

	return skipped, nil
}

// GetBookings retrieves the bookings of one type in insertion order
func (s *Store) GetBookings(ctx context.Context, t domain.BookingType) ([]domain.Record, error) {
	ids, err := s.client.ZRange(ctx, TypeIndexKey(t), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get booking IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookingKey(t, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	bookings := make([]domain.Record, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// Skip documents that expired or were removed meanwhile
			continue
		}
		record, err := decodeBooking(str)
		if err != nil {
			continue
		}
		bookings = append(bookings, record)
	}

	return bookings, nil
}

func decodeBooking(data string) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booking: %w", err)
	}
	return domain.Record(m), nil
}
