package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/session"
)

type searchRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type selectRequest struct {
	Key         string `json:"key"`
	BookingType string `json:"bookingType,omitempty"`
}

type commitRequest struct {
	Fields domain.Record `json:"fields"`
}

// sessionHandler resolves {id} before calling fn.
func sessionHandler(d deps.Deps, fn func(w http.ResponseWriter, r *http.Request, s *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err, nil)
			return
		}
		fn(w, r, s)
	}
}

// CreateSession opens a search screen. The backend is probed once; the
// view's mode tells the UI which indicator to show.
func CreateSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Sessions.Create(r.Context())
		d.Logger.Info("session opened",
			logger.String("session", s.ID()),
			logger.String("mode", string(s.Mode())))
		respond.JSON(w, http.StatusCreated, s.View())
	}
}

func GetSession(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respond.JSON(w, http.StatusOK, s.View())
	})
}

func DeleteSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, d, err, nil)
			return
		}
		respond.JSON(w, http.StatusOK, nil)
	}
}

// Search runs a federated search on the session. The outcome (results, no
// results, auto-selected single hit, error) is carried by the view.
func Search(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req searchRequest
		if err := decodeBody(w, r, d, &req); err != nil {
			writeError(w, d, err, nil)
			return
		}

		st := domain.SearchTicketID
		if req.Type != "" {
			parsed, err := domain.ParseSearchType(req.Type)
			if err != nil {
				writeError(w, d, fmt.Errorf("%w: %v", errBadRequest, err), nil)
				return
			}
			st = parsed
		}

		view, err := s.Search(r.Context(), st, req.Value)
		if err != nil {
			writeError(w, d, err, nil)
			return
		}

		d.Logger.Debug("search completed",
			logger.String("session", s.ID()),
			logger.String("search_type", string(st)),
			logger.String("state", string(view.State)),
			logger.Int("results", len(view.Results)))
		respond.JSONMessage(w, http.StatusOK, view, view.Message)
	})
}

func Select(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req selectRequest
		if err := decodeBody(w, r, d, &req); err != nil {
			writeError(w, d, err, nil)
			return
		}
		if req.Key == "" {
			writeError(w, d, fmt.Errorf("%w: key is required", errBadRequest), nil)
			return
		}

		var bt domain.BookingType
		if req.BookingType != "" {
			parsed, err := domain.ParseBookingType(req.BookingType)
			if err != nil {
				writeError(w, d, fmt.Errorf("%w: %v", errBadRequest, err), nil)
				return
			}
			bt = parsed
		}

		view, err := s.Select(req.Key, bt)
		if err != nil {
			writeError(w, d, err, nil)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	})
}

// Edit returns the props for the booking-type form.
func Edit(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		props, err := s.Edit()
		if err != nil {
			writeError(w, d, err, nil)
			return
		}
		respond.JSON(w, http.StatusOK, props)
	})
}

func CancelEdit(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		view, err := s.CancelEdit()
		if err != nil {
			writeError(w, d, err, nil)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	})
}

// Commit writes the edited fields through the backend or the local
// collection. A failed commit answers 502 with the session view, which is
// still in editing.
func Commit(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req commitRequest
		if err := decodeBody(w, r, d, &req); err != nil {
			writeError(w, d, err, nil)
			return
		}
		if req.Fields == nil {
			writeError(w, d, fmt.Errorf("%w: fields are required", errBadRequest), nil)
			return
		}

		view, err := s.Commit(r.Context(), req.Fields)
		if err != nil {
			var data any
			if view.ID != "" {
				data = view
			}
			writeError(w, d, err, data)
			return
		}
		respond.JSONMessage(w, http.StatusOK, view, view.Message)
	})
}

// Reset starts a new search on the same session.
func Reset(d deps.Deps) http.HandlerFunc {
	return sessionHandler(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		view, err := s.Reset()
		if err != nil {
			writeError(w, d, err, nil)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	})
}
