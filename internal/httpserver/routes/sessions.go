package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/mw"
)

func init() { Register("sessions", registerSessions) }

func registerSessions(r chi.Router, d deps.Deps) {
	// one limiter shared by search and commit, the routes that reach the backend
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimit.Burst,
		RefillPerIPPerMin: d.RateLimit.PerMinute,
		MaxEntries:        d.RateLimit.MaxEntries,
		SweepInterval:     time.Minute,
		IdleTTL:           15 * time.Minute,
		TrustProxy:        d.TrustProxy,
		OnReject:          func(string) { d.Metrics.RateLimit() },
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handlers.CreateSession(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetSession(d))
			r.Delete("/", handlers.DeleteSession(d))
			r.With(limit).Post("/search", handlers.Search(d))
			r.Post("/select", handlers.Select(d))
			r.Post("/edit", handlers.Edit(d))
			r.Post("/cancel", handlers.CancelEdit(d))
			r.With(limit).Post("/commit", handlers.Commit(d))
			r.Post("/reset", handlers.Reset(d))
		})
	})
}
