package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/api", Token: "secret"}, logger.New("error", false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "://nope"} {
		if _, err := New(Options{BaseURL: u}, logger.New("error", false)); err == nil {
			t.Errorf("New(%q) expected error", u)
		}
	}
}

func TestListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"envelope data", `{"success":true,"data":[{"ticketId":"FLT-1"},{"ticketId":"FLT-2"}]}`, 2},
		{"bare array", `[{"ticketId":"FLT-1"}]`, 1},
		{"bookings key", `{"bookings":[{"ticketId":"FLT-1"},{"ticketId":"FLT-2"},{"ticketId":"FLT-3"}]}`, 3},
		{"null data", `{"success":true,"data":null}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/flight-bookings" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("Authorization = %q", got)
				}
				_, _ = io.WriteString(w, tt.body)
			}))

			got, err := c.List(context.Background(), domain.Flight)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListKeepsNumbersExact(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[{"contactNumber":9876543210123}]}`)
	}))

	got, err := c.List(context.Background(), domain.Hotel)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if v := got[0].String("contactNumber"); v != "9876543210123" {
		t.Errorf("contactNumber = %q", v)
	}
}

func TestResourcePaths(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	}))

	tests := []struct {
		bt   domain.BookingType
		want string
	}{
		{domain.AirportTransfer, "/api/airport-transfer-bookings"},
		{domain.CarRental, "/api/car-rental-bookings"},
		{domain.Miscellaneous, "/api/miscellaneous-bookings"},
	}
	for _, tt := range tests {
		if _, err := c.List(context.Background(), tt.bt); err != nil {
			t.Fatalf("List(%s) error = %v", tt.bt, err)
		}
		if gotPath != tt.want {
			t.Errorf("List(%s) path = %s, want %s", tt.bt, gotPath, tt.want)
		}
	}

	if _, err := c.SearchByKey(context.Background(), domain.Visa, "VISA 1/2"); err != nil {
		t.Fatalf("SearchByKey() error = %v", err)
	}
	if want := "/api/visa-bookings/search/VISA%201%2F2"; gotPath != want {
		t.Errorf("SearchByKey path = %s, want %s", gotPath, want)
	}
}

func TestSearchByKey(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"single record", `{"success":true,"data":{"ticketId":"HTL-1"}}`, 1},
		{"list", `{"success":true,"data":[{"ticketId":"HTL-1"},{"ticketId":"HTL-10"}]}`, 2},
		{"null data", `{"success":true,"data":null}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			got, err := c.SearchByKey(context.Background(), domain.Hotel, "HTL-1")
			if err != nil {
				t.Fatalf("SearchByKey() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("SearchByKey() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantMsg      string
		wantNotFound bool
	}{
		{"server message", http.StatusBadRequest, `{"success":false,"message":"invalid id"}`, "invalid id", false},
		{"no message", http.StatusInternalServerError, `oops`, "HTTP error! status: 500", false},
		{"missing route", http.StatusNotFound, `Cannot GET`, "HTTP error! status: 404", true},
		{"success false on 200", http.StatusOK, `{"success":false,"message":"locked"}`, "locked", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.List(context.Background(), domain.Forex)
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("List() error = %v, want *RemoteError", err)
			}
			if re.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", re.Message, tt.wantMsg)
			}
			if re.IsNotFound() != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", re.IsNotFound(), tt.wantNotFound)
			}
			if re.IsConnectivity() {
				t.Error("IsConnectivity() = true for an HTTP response")
			}
		})
	}
}

func TestConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base}, logger.New("error", false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Ping(context.Background())
	if !IsConnectivity(err) {
		t.Fatalf("Ping() error = %v, want connectivity error", err)
	}
}

func TestUpdate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/api/car-rental-bookings/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		in["_id"] = "abc123"
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": in})
	}))

	got, err := c.Update(context.Background(), domain.CarRental, "abc123", domain.Record{"travelerName": "New Name"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.String("travelerName") != "New Name" || got.String("_id") != "abc123" {
		t.Errorf("Update() = %v", got)
	}
}
