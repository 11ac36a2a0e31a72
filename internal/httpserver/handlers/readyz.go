package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready       bool   `json:"ready"`
	BackendMode string `json:"backend_mode,omitempty"`
}

// Readyz reports whether the service can take searches. A backend outage
// does not make it unready since searches fall back to local data.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		resp := readyzResponse{Ready: d.Sessions != nil && d.Collection != nil}
		if d.Probe != nil {
			resp.BackendMode = string(d.Probe.Last().Mode)
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
