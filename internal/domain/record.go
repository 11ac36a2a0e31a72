package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Wire field names shared by every booking shape.
const (
	FieldTicketID     = "ticketId"
	FieldBookingID    = "bookingId"
	FieldStorageID    = "_id"
	FieldBookingType  = "bookingType"
	FieldSubmittedAt  = "submittedAt"
	FieldLastModified = "lastModified"
)

// Record is a raw booking document as stored by the backend or the local
// collection. Unknown fields are preserved untouched.
type Record map[string]any

// Clone returns a deep copy of r. Nested objects and arrays are copied so
// that mutations on the clone never leak into the source.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// String returns the field rendered as a string, or "" when absent.
func (r Record) String(field string) string {
	if r == nil {
		return ""
	}
	return stringify(r[field])
}

// Has reports whether the field is present with a non-empty value.
func (r Record) Has(field string) bool {
	return r.String(field) != ""
}

// Merge returns a copy of r with fields applied on top (shallow, last write wins).
func (r Record) Merge(fields Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(fields))
	}
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

// TicketKey returns the human-facing key: ticketId, then the legacy bookingId alias.
func (r Record) TicketKey() string {
	if v := r.String(FieldTicketID); v != "" {
		return v
	}
	return r.String(FieldBookingID)
}

// Key returns the identifier used to address the record in a local
// collection: ticket key first, storage id otherwise.
func (r Record) Key() string {
	if v := r.TicketKey(); v != "" {
		return v
	}
	return r.String(FieldStorageID)
}

// JSON renders the record without HTML escaping, matching how the
// browser serialises a document.
func (r Record) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(r)); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// stringify is total: it never fails and renders scalars the way a JSON
// client would display them.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
