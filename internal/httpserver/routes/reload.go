package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/mw"
)

func init() { Register("admin", registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	admin := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	admin.Post("/reload", handlers.Reload(d))
	admin.Get("/infra", handlers.Infra(d))
}
