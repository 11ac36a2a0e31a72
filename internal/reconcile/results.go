package reconcile

import "github.com/MrSnakeDoc/tripdesk/internal/domain"

// ReplaceInResults returns a copy of results where every entry addressing
// the same booking as previous is replaced by committed. results is not
// modified.
func ReplaceInResults(results []domain.SearchableRecord, previous, committed domain.SearchableRecord) []domain.SearchableRecord {
	if results == nil {
		return nil
	}
	out := make([]domain.SearchableRecord, len(results))
	for i, r := range results {
		if r.SameBooking(previous) {
			out[i] = committed
			continue
		}
		out[i] = r
	}
	return out
}
