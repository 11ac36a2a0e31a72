package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/tripdesk/internal/collection"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/reconcile"
	"github.com/MrSnakeDoc/tripdesk/internal/session"
)

const defaultMaxBody = 1 << 20

var errBadRequest = errors.New("bad request")

// writeError maps domain errors to HTTP statuses. data carries the state
// the failure left behind, if any.
func writeError(w http.ResponseWriter, d deps.Deps, err error, data any) {
	switch {
	case errors.Is(err, errBadRequest):
		respond.Error(w, http.StatusBadRequest, err.Error(), data)
	case errors.Is(err, session.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "session not found", data)
	case errors.Is(err, session.ErrRecordNotFound), errors.Is(err, collection.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error(), data)
	case errors.Is(err, session.ErrBusy):
		respond.Error(w, http.StatusConflict, session.ErrBusy.Error(), data)
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, collection.ErrDuplicate):
		respond.Error(w, http.StatusConflict, err.Error(), data)
	case errors.Is(err, collection.ErrMissingKey), errors.Is(err, collection.ErrUnknownType):
		respond.Error(w, http.StatusBadRequest, err.Error(), data)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(w, http.StatusGatewayTimeout, "request timed out", data)
	case errors.Is(err, context.Canceled):
		respond.Error(w, http.StatusServiceUnavailable, "request cancelled", data)
	case errors.Is(err, reconcile.ErrCommitFailed):
		respond.Error(w, http.StatusBadGateway, err.Error(), data)
	default:
		d.Logger.Error("unhandled request error", logger.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error", data)
	}
}

// decodeBody reads a JSON request body. Numbers are kept as json.Number so
// identifiers and phone numbers round-trip exactly.
func decodeBody(w http.ResponseWriter, r *http.Request, d deps.Deps, dst any) error {
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}
