package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// Reload asks the snapshot reloader to pull the backend's bookings now
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			respond.Error(w, http.StatusServiceUnavailable, "Snapshot reload is disabled", nil)
			return
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual snapshot reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			respond.JSONMessage(w, http.StatusAccepted, nil, "Reload triggered successfully")
		default:
			d.Logger.Warn("snapshot reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			respond.Error(w, http.StatusTooManyRequests, "Reload already in progress, please wait", nil)
		}
	}
}
