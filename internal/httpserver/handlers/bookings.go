package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

type appendRequest struct {
	BookingType string        `json:"bookingType"`
	Record      domain.Record `json:"record"`
}

// AppendLocalBooking stores a form submission in the local collection,
// used by the forms when the backend cannot be reached.
func AppendLocalBooking(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appendRequest
		if err := decodeBody(w, r, d, &req); err != nil {
			writeError(w, d, err, nil)
			return
		}
		bt, err := domain.ParseBookingType(req.BookingType)
		if err != nil {
			writeError(w, d, fmt.Errorf("%w: %v", errBadRequest, err), nil)
			return
		}

		rec, err := d.Collection.Append(bt, req.Record)
		if err != nil {
			writeError(w, d, err, nil)
			return
		}

		d.Logger.Info("booking appended to local collection",
			logger.String("booking_type", string(bt)),
			logger.String("ticket_id", rec.TicketKey()))
		respond.JSON(w, http.StatusCreated, rec)
	}
}

// ListLocalBookings returns one type's local records in collection order.
func ListLocalBookings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bt, err := domain.ParseBookingType(chi.URLParam(r, "type"))
		if err != nil {
			writeError(w, d, fmt.Errorf("%w: %v", errBadRequest, err), nil)
			return
		}
		respond.JSON(w, http.StatusOK, d.Collection.Snapshot(bt))
	}
}
