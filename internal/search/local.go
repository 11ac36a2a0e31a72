package search

import "github.com/MrSnakeDoc/tripdesk/internal/domain"

// LocalSource supplies the in-memory records of one booking type, in
// collection order. Implementations return a copy the caller may keep.
type LocalSource interface {
	Snapshot(t domain.BookingType) []domain.Record
}

// SliceSource is a LocalSource over a fixed list of records of mixed types,
// such as a collection handed over by a caller.
type SliceSource []domain.Record

// Snapshot returns the records whose type resolves to t. Records without a
// bookingType are attributed to Flight.
func (s SliceSource) Snapshot(t domain.BookingType) []domain.Record {
	var out []domain.Record
	for _, r := range s {
		bt, err := domain.ParseBookingType(r.String(domain.FieldBookingType))
		if err != nil {
			bt = domain.Flight
		}
		if bt == t {
			out = append(out, r.Clone())
		}
	}
	return out
}

// FilterLocal applies the predicate table to the local records of one type.
func FilterLocal(q domain.Query, src LocalSource, t domain.BookingType) []domain.SearchableRecord {
	if q.Empty() || src == nil {
		return nil
	}
	return q.Filter(src.Snapshot(t), t)
}
