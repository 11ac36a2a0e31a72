package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Searches         *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
	SubQueryFailures *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	Commits          *prometheus.CounterVec
	ModeSwitches     prometheus.Counter
	ActiveSessions   prometheus.Gauge
	CollectionSize   *prometheus.GaugeVec
	RateLimited      prometheus.Counter
}

// New registers the metrics on reg. Tests pass prometheus.NewRegistry().
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "The total number of federated searches",
		}, []string{"search_type", "mode"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time taken by a federated search, all sub-queries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		SubQueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subquery_failures_total",
			Help:      "Per-type backend calls that failed during a search",
		}, []string{"booking_type", "stage"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallbacks_total",
			Help:      "Ticket searches answered by fetch-all after the search route failed",
		}, []string{"booking_type"}),
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Committed edits by write path",
		}, []string{"path"}),
		ModeSwitches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_switches_total",
			Help:      "Sessions that switched to local data after a remote failure",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open search sessions",
		}),
		CollectionSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_bookings",
			Help:      "Records held in the local booking collection",
		}, []string{"booking_type"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Search and commit requests rejected by the rate limiter",
		}),
	}
}

// Handler exposes the registry for scraping.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(searchType, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(searchType, mode).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) SubQueryFailed(bookingType, stage string) {
	if m == nil {
		return
	}
	m.SubQueryFailures.WithLabelValues(bookingType, stage).Inc()
}

func (m *Metrics) Fallback(bookingType string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(bookingType).Inc()
}

func (m *Metrics) Commit(path string) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(path).Inc()
}

func (m *Metrics) ModeSwitched() {
	if m == nil {
		return
	}
	m.ModeSwitches.Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) SetCollectionSize(bookingType string, n int) {
	if m == nil {
		return
	}
	m.CollectionSize.WithLabelValues(bookingType).Set(float64(n))
}

func (m *Metrics) RateLimit() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
