package search

import "github.com/MrSnakeDoc/tripdesk/internal/domain"

// Consolidate concatenates per-type results in the order given, keeping
// each type's source order. A record repeated within a type (same storage
// id or ticket key) is kept once. The result is never nil.
func Consolidate(perType [][]domain.SearchableRecord) []domain.SearchableRecord {
	n := 0
	for _, rs := range perType {
		n += len(rs)
	}
	out := make([]domain.SearchableRecord, 0, n)
	seen := make(map[string]struct{}, n)

	for _, rs := range perType {
		for _, r := range rs {
			if !r.BookingType.Valid() {
				r = r.Normalize()
			}
			keys := dedupeKeys(r)
			dup := false
			for _, k := range keys {
				if _, ok := seen[k]; ok {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			for _, k := range keys {
				seen[k] = struct{}{}
			}
			out = append(out, r)
		}
	}
	return out
}

func dedupeKeys(r domain.SearchableRecord) []string {
	var keys []string
	if r.StorageID != "" {
		keys = append(keys, string(r.BookingType)+"|id|"+r.StorageID)
	}
	if r.TicketID != "" {
		keys = append(keys, string(r.BookingType)+"|tk|"+r.TicketID)
	}
	return keys
}

// AutoSelect returns the sole record when exactly one result was found.
func AutoSelect(results []domain.SearchableRecord) (domain.SearchableRecord, bool) {
	if len(results) != 1 {
		return domain.SearchableRecord{}, false
	}
	return results[0], true
}
