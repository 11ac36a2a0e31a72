package domain

import (
	"fmt"
	"strings"
)

// SearchType selects the predicate applied to each record.
type SearchType string

const (
	SearchTicketID SearchType = "ticketId"
	SearchName     SearchType = "name"
	SearchHotel    SearchType = "hotel"
	SearchDate     SearchType = "date"
	SearchJourney  SearchType = "journey"
	SearchContact  SearchType = "contact"
	SearchPassport SearchType = "passport"
	SearchInvoice  SearchType = "invoice"
	SearchAll      SearchType = "all"
)

var searchLabels = map[SearchType]string{
	SearchTicketID: "Ticket ID",
	SearchName:     "Names",
	SearchHotel:    "Hotel Details",
	SearchDate:     "Dates",
	SearchJourney:  "Journey Details",
	SearchContact:  "Contact Info",
	SearchPassport: "Passport Number",
	SearchInvoice:  "Invoice Number",
	SearchAll:      "All Fields",
}

// ParseSearchType validates a wire search type.
func ParseSearchType(s string) (SearchType, error) {
	st := SearchType(strings.TrimSpace(s))
	if _, ok := searchLabels[st]; !ok {
		return "", fmt.Errorf("unknown search type: %q", s)
	}
	return st, nil
}

// Label returns the human label used in "no results" messages.
func (st SearchType) Label() string {
	if l, ok := searchLabels[st]; ok {
		return l
	}
	return searchLabels[SearchTicketID]
}

// Query is a validated search request.
type Query struct {
	Type  SearchType
	Value string // trimmed, original case
}

// NewQuery trims the value. An empty query matches nothing.
func NewQuery(st SearchType, value string) Query {
	return Query{Type: st, Value: strings.TrimSpace(value)}
}

// Empty reports whether the query carries no search term.
func (q Query) Empty() bool {
	return q.Value == ""
}

// Matches applies the predicate table to a normalised record.
// All predicates are case-insensitive substring matches except date, which
// matches the stored string representation verbatim.
func (q Query) Matches(r SearchableRecord) bool {
	if q.Empty() {
		return false
	}
	term := strings.ToLower(q.Value)

	switch q.Type {
	case SearchName:
		return containsAny(term, r.TravelerName, r.AgentName, r.BookingEntity)

	case SearchHotel:
		return containsAny(term, r.HotelName, r.City, r.CheckInLocation, r.CheckOutLocation)

	case SearchDate:
		for _, d := range r.Dates {
			if strings.Contains(d.Value, q.Value) {
				return true
			}
		}
		for _, j := range r.Journeys {
			if strings.Contains(j.Date, q.Value) {
				return true
			}
		}
		return false

	case SearchJourney:
		if containsAny(term, r.From, r.To, r.Destination, r.City, r.PickupLocation, r.DropoffLocation) {
			return true
		}
		for _, j := range r.Journeys {
			if containsAny(term, j.From, j.To) {
				return true
			}
		}
		return false

	case SearchContact:
		return containsAny(term, r.ContactNumber, r.Email)

	case SearchPassport:
		return containsAny(term, r.PassportNumber)

	case SearchInvoice:
		return containsAny(term, r.InvoiceNumber, r.CreditNoteNumber)

	case SearchAll:
		return strings.Contains(strings.ToLower(r.Source().JSON()), term)

	default:
		return containsAny(term, r.TicketID, r.Raw.String(FieldTicketID), r.Raw.String(FieldBookingID))
	}
}

// Filter returns the records of one collection matching q, in source order.
// Records are normalised with fallback as their default type.
func (q Query) Filter(records []Record, fallback BookingType) []SearchableRecord {
	if q.Empty() {
		return nil
	}
	var out []SearchableRecord
	for _, raw := range records {
		sr := Normalize(raw, fallback)
		if q.Matches(sr) {
			out = append(out, sr)
		}
	}
	return out
}

// containsAny reports whether any non-empty field contains term; term must
// already be lower-cased.
func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
