package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSearch("name", "remote", time.Second)
	m.SubQueryFailed("flight", "list")
	m.Fallback("hotel")
	m.Commit("local")
	m.ModeSwitched()
	m.SetSessions(3)
	m.SetCollectionSize("visa", 2)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("tripdesk", reg)

	m.ObserveSearch("ticketId", "remote", 20*time.Millisecond)
	m.SubQueryFailed("flight", "search")
	m.Fallback("flight")
	m.Commit("remote")
	m.SetCollectionSize("hotel", 4)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`tripdesk_searches_total{mode="remote",search_type="ticketId"} 1`,
		`tripdesk_subquery_failures_total{booking_type="flight",stage="search"} 1`,
		`tripdesk_search_fallbacks_total{booking_type="flight"} 1`,
		`tripdesk_commits_total{path="remote"} 1`,
		`tripdesk_local_bookings{booking_type="hotel"} 4`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewOnSeparateRegistries(t *testing.T) {
	_ = New("tripdesk", prometheus.NewRegistry())
	_ = New("tripdesk", prometheus.NewRegistry())
}
