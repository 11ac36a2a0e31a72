package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/handlers"
)

func init() { Register("local-bookings", registerBookings) }

func registerBookings(r chi.Router, d deps.Deps) {
	r.Post("/local-bookings", handlers.AppendLocalBooking(d))
	r.Get("/local-bookings/{type}", handlers.ListLocalBookings(d))
}
