package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool           `json:"ok"`
	Mode       string         `json:"mode,omitempty"`
	URL        string         `json:"url,omitempty"`
	CheckedAt  string         `json:"checked_at,omitempty"`
	Bookings   map[string]int `json:"bookings,omitempty"`
	LastReload string         `json:"last_reload,omitempty"`
	Open       *int           `json:"open,omitempty"`
	Impact     string         `json:"impact,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type infraResponse struct {
	ServiceMode string                     `json:"service_mode"`
	Components  map[string]componentStatus `json:"components"`
}

// Infra reports backend reachability, Redis health, the local collection
// and open sessions.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		components := map[string]componentStatus{
			"backend":    checkBackend(r.Context(), d),
			"redis":      checkRedis(d),
			"collection": collectionStatus(d),
		}
		if d.Sessions != nil {
			open := d.Sessions.Count()
			components["sessions"] = componentStatus{OK: true, Open: &open}
		}

		response := infraResponse{
			ServiceMode: determineServiceMode(components),
			Components:  components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineServiceMode(components map[string]componentStatus) string {
	backend := components["backend"]
	coll := components["collection"]

	// No backend and nothing local to search = nothing to serve
	if !backend.OK && !coll.OK {
		return "critical"
	}

	if !backend.OK {
		return "local"
	}

	// Redis down = local edits are not persisted across restarts
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "remote"
}

func checkBackend(ctx context.Context, d deps.Deps) componentStatus {
	if d.Probe == nil {
		return componentStatus{OK: false, Error: "probe not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	mode := d.Probe.Detect(ctx)
	last := d.Probe.Last()
	st := componentStatus{
		OK:        mode == domain.ModeRemote,
		Mode:      string(mode),
		URL:       d.BackendURL,
		CheckedAt: last.CheckedAt.Format(time.RFC3339),
	}
	if last.Err != nil {
		st.Impact = "sessions-start-on-local-data"
		st.Error = last.Err.Error()
	}
	return st
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "memory-only",
			Impact: "local-edits-not-persisted",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.RedisClient.Ping(ctx).Err()
	if err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "local-edits-not-persisted",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "mirrored",
	}
}

func collectionStatus(d deps.Deps) componentStatus {
	if d.Collection == nil {
		return componentStatus{OK: false, Error: "collection not initialized"}
	}

	counts := d.Collection.Counts()
	bookings := make(map[string]int, len(counts))
	total := 0
	for bt, n := range counts {
		bookings[string(bt)] = n
		total += n
	}

	lastReload := "never"
	if t := d.Collection.LastReload(); !t.IsZero() {
		lastReload = t.Format("2006-01-02 15:04:05")
	}

	return componentStatus{
		OK:         total > 0,
		Bookings:   bookings,
		LastReload: lastReload,
	}
}
