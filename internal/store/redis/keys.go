package redis

import "github.com/MrSnakeDoc/tripdesk/internal/domain"

const (
	// KeyPrefixBooking is the prefix for booking document keys
	KeyPrefixBooking = "tripdesk:booking:"
	// KeyPrefixTypeIndex is the prefix for the per-type ordered sets
	KeyPrefixTypeIndex = "tripdesk:bookings:"
	// KeySequence is the counter that scores insertions
	KeySequence = "tripdesk:bookings:seq"
)

// BookingKey returns the Redis key for one booking document
func BookingKey(t domain.BookingType, docID string) string {
	return KeyPrefixBooking + string(t) + ":" + docID
}

// TypeIndexKey returns the key of the sorted set listing one type's
// documents in insertion order
func TypeIndexKey(t domain.BookingType) string {
	return KeyPrefixTypeIndex + string(t)
}

// SequenceKey returns the insertion counter key
func SequenceKey() string {
	return KeySequence
}
