// Package reconcile commits an edited booking through whichever channel is
// available and keeps the displayed record and the result list in step.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
)

// ISOTime is the timestamp layout written to lastModified.
const ISOTime = "2006-01-02T15:04:05.000Z07:00"

// ErrCommitFailed matches every error returned by Writer.Commit.
var ErrCommitFailed = errors.New("commit failed")

// RemoteUpdater persists an edit on the backend.
type RemoteUpdater interface {
	Update(ctx context.Context, t domain.BookingType, id string, fields domain.Record) (domain.Record, error)
}

// LocalUpdater is the local-collection update callback.
type LocalUpdater interface {
	UpdateBooking(t domain.BookingType, key string, fields domain.Record) error
}

// LocalUpdateFunc adapts a function to LocalUpdater.
type LocalUpdateFunc func(t domain.BookingType, key string, fields domain.Record) error

func (f LocalUpdateFunc) UpdateBooking(t domain.BookingType, key string, fields domain.Record) error {
	return f(t, key, fields)
}

// Write paths reported in Result.Path.
const (
	PathRemote = "remote"
	PathLocal  = "local"
)

// Result is a successful commit.
type Result struct {
	Record domain.SearchableRecord
	Path   string
	// RemoteErr is the remote failure absorbed by the local fallback, if any.
	RemoteErr error
}

// CommitError is the single user-facing failure of a commit.
type CommitError struct {
	Err       error // root cause, from the last write path tried
	RemoteErr error // absorbed remote failure, if the remote path was tried
}

func (e *CommitError) Error() string {
	return "Failed to update booking: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error { return e.Err }

func (e *CommitError) Is(target error) bool { return target == ErrCommitFailed }

// Writer applies edits. Fields that identify a persisted record (_id,
// submittedAt, bookingType) are never taken from the edit.
type Writer struct {
	remote  RemoteUpdater
	local   LocalUpdater
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewWriter builds a writer. remote may be nil (local-only); m may be nil.
func NewWriter(remote RemoteUpdater, local LocalUpdater, log logger.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		remote:  remote,
		local:   local,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the commit-time source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Commit writes edited onto selected. In remote mode a persisted record is
// sent to the backend first; a remote failure falls back silently to the
// local update callback, unless ctx itself is done, in which case nothing is
// written and the context error is returned. Only when the local path fails
// too does Commit return a *CommitError wrapping the local failure.
func (w *Writer) Commit(ctx context.Context, selected domain.SearchableRecord, edited domain.Record, mode domain.ConnectivityMode) (Result, error) {
	stamp := w.now().UTC().Format(ISOTime)
	fields := editableFields(edited)
	fields[domain.FieldLastModified] = stamp

	var remoteErr error
	if mode == domain.ModeRemote && selected.Persisted() && w.remote != nil {
		resp, err := w.remote.Update(ctx, selected.BookingType, selected.StorageID, fields)
		if err == nil {
			w.metrics.Commit(PathRemote)
			return Result{
				Record: domain.Normalize(fillSpine(resp, selected, fields, stamp), selected.BookingType),
				Path:   PathRemote,
			}, nil
		}
		remoteErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.logger.Debug("commit abandoned by caller",
				logger.String("booking_type", string(selected.BookingType)),
				logger.String("id", selected.StorageID),
				logger.Error(ctxErr))
			return Result{RemoteErr: remoteErr}, fmt.Errorf("commit abandoned: %w", ctxErr)
		}
		w.logger.Warn("backend update failed, using local fallback",
			logger.String("booking_type", string(selected.BookingType)),
			logger.String("id", selected.StorageID),
			logger.Error(err))
	}

	if err := w.commitLocal(selected, fields); err != nil {
		w.metrics.Commit("failed")
		w.logger.Error("booking update failed",
			logger.String("booking_type", string(selected.BookingType)),
			logger.String("key", selected.LocalKey()),
			logger.Error(err))
		return Result{}, &CommitError{Err: err, RemoteErr: remoteErr}
	}

	w.metrics.Commit(PathLocal)
	return Result{
		Record:    domain.Normalize(selected.Raw.Merge(fields), selected.BookingType),
		Path:      PathLocal,
		RemoteErr: remoteErr,
	}, nil
}

func (w *Writer) commitLocal(selected domain.SearchableRecord, fields domain.Record) error {
	if w.local == nil {
		return errors.New("no local collection available")
	}
	key := selected.LocalKey()
	if key == "" {
		return errors.New("booking has no ticketId or _id")
	}
	if err := w.local.UpdateBooking(selected.BookingType, key, fields.Clone()); err != nil {
		return fmt.Errorf("local update of %s: %w", key, err)
	}
	return nil
}

// editableFields copies the edit without the fields a commit must preserve.
func editableFields(edited domain.Record) domain.Record {
	out := edited.Clone()
	if out == nil {
		out = domain.Record{}
	}
	delete(out, domain.FieldStorageID)
	delete(out, domain.FieldSubmittedAt)
	delete(out, domain.FieldBookingType)
	return out
}

// fillSpine completes a backend response with what the backend omitted:
// the commit stamp and the identity of the record that was edited. An empty
// response stands for "accepted as sent".
func fillSpine(resp domain.Record, selected domain.SearchableRecord, fields domain.Record, stamp string) domain.Record {
	out := resp.Clone()
	if len(out) == 0 {
		out = selected.Raw.Merge(fields)
	}
	if !out.Has(domain.FieldLastModified) {
		out[domain.FieldLastModified] = stamp
	}
	for _, f := range []string{domain.FieldStorageID, domain.FieldSubmittedAt, domain.FieldTicketID} {
		if !out.Has(f) && selected.Raw.Has(f) {
			out[f] = selected.Raw[f]
		}
	}
	return out
}
