package search

import (
	"testing"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

func TestConsolidate(t *testing.T) {
	flights := []domain.SearchableRecord{
		domain.Normalize(domain.Record{"ticketId": "FLT-1", "_id": "a"}, domain.Flight),
		domain.Normalize(domain.Record{"ticketId": "FLT-1", "_id": "a"}, domain.Flight),
		domain.Normalize(domain.Record{"travelerName": "no keys"}, domain.Flight),
		domain.Normalize(domain.Record{"travelerName": "no keys"}, domain.Flight),
	}
	hotels := []domain.SearchableRecord{
		domain.Normalize(domain.Record{"ticketId": "FLT-1"}, domain.Hotel),
	}

	got := Consolidate([][]domain.SearchableRecord{flights, nil, hotels})
	if len(got) != 4 {
		t.Fatalf("Consolidate() returned %d records, want 4", len(got))
	}
	if got[0].TicketID != "FLT-1" || got[3].BookingType != domain.Hotel {
		t.Errorf("Consolidate() = %+v", got)
	}

	if empty := Consolidate(nil); empty == nil || len(empty) != 0 {
		t.Errorf("Consolidate(nil) = %v, want empty non-nil", empty)
	}
}

func TestAutoSelect(t *testing.T) {
	one := []domain.SearchableRecord{domain.Normalize(domain.Record{"ticketId": "HTL-1"}, domain.Hotel)}
	if r, ok := AutoSelect(one); !ok || r.TicketID != "HTL-1" {
		t.Errorf("AutoSelect(one) = %v, %v", r.TicketID, ok)
	}
	if _, ok := AutoSelect(append(one, one[0])); ok {
		t.Error("AutoSelect(two) selected a record")
	}
	if _, ok := AutoSelect(nil); ok {
		t.Error("AutoSelect(nil) selected a record")
	}
}

func TestSliceSourceSnapshot(t *testing.T) {
	src := SliceSource{
		{"ticketId": "HTL-1", "bookingType": "hotel"},
		{"ticketId": "FLT-1"},
		{"ticketId": "TRF-1", "bookingType": "airport-transfer"},
	}

	if got := src.Snapshot(domain.Flight); len(got) != 1 || got[0].TicketKey() != "FLT-1" {
		t.Errorf("Snapshot(flight) = %v", got)
	}
	if got := src.Snapshot(domain.AirportTransfer); len(got) != 1 {
		t.Errorf("Snapshot(airport_transfer) = %v", got)
	}

	snap := src.Snapshot(domain.Hotel)
	snap[0]["ticketId"] = "changed"
	if src[0].TicketKey() != "HTL-1" {
		t.Error("Snapshot() returned shared records")
	}
}
