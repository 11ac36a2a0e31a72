package seed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

// Map converts a parsed seed file into per-type records. Every record gets
// its bookingType set from the section it appears in.
func Map(file File) (map[domain.BookingType][]domain.Record, error) {
	out := make(map[domain.BookingType][]domain.Record, len(file))

	for name, entries := range file {
		t, err := domain.ParseBookingType(name)
		if err != nil {
			return nil, fmt.Errorf("seed section %q: %w", name, err)
		}

		for i, entry := range entries {
			rec, ok := normalizeValue(entry).(map[string]any)
			if !ok || len(rec) == 0 {
				return nil, fmt.Errorf("seed section %q entry %d: empty booking", name, i)
			}
			r := domain.Record(rec)
			r[domain.FieldBookingType] = string(t)
			out[t] = append(out[t], r)
		}
	}

	return out, nil
}

// normalizeValue turns YAML-decoded values into the shapes JSON decoding
// produces, so seeded and remote records are handled alike.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeValue(val)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalizeValue(val)
		}
		return s
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	case time.Time:
		// unquoted YAML dates resolve to timestamps
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format("2006-01-02")
		}
		return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		return v
	}
}
