// Package session holds the server-side state of one search screen: the
// query, the merged results, the selection and the connectivity mode.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/gateway"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
	"github.com/MrSnakeDoc/tripdesk/internal/reconcile"
	"github.com/MrSnakeDoc/tripdesk/internal/search"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrBusy              = errors.New("search already in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRecordNotFound    = errors.New("booking not in results")
)

// User-facing messages.
const (
	MsgEmptySearch = "Please enter a search term"
	MsgSearchError = "An error occurred while searching. Please try again."
)

// State of the search screen.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateNoResults State = "no_results"
	StateError     State = "error"
	StateSelected  State = "selected"
	StateEditing   State = "editing"
)

// Searcher runs federated searches.
type Searcher interface {
	Search(ctx context.Context, q domain.Query, mode domain.ConnectivityMode) (search.Outcome, error)
	Local(q domain.Query) search.Outcome
}

// Committer applies edits.
type Committer interface {
	Commit(ctx context.Context, selected domain.SearchableRecord, edited domain.Record, mode domain.ConnectivityMode) (reconcile.Result, error)
}

// Engine bundles what every session uses.
type Engine struct {
	Searcher  Searcher
	Committer Committer
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

// View is a consistent snapshot of a session.
type View struct {
	ID          string                    `json:"id"`
	State       State                     `json:"state"`
	Mode        domain.ConnectivityMode   `json:"mode"`
	ModeLabel   string                    `json:"modeLabel"`
	SearchType  domain.SearchType         `json:"searchType"`
	SearchValue string                    `json:"searchValue"`
	Message     string                    `json:"message,omitempty"`
	Results     []domain.SearchableRecord `json:"results"`
	Selected    *domain.SearchableRecord  `json:"selected,omitempty"`
	IsEditing   bool                      `json:"isEditing"`
	Busy        bool                      `json:"busy"`
	LastActive  time.Time                 `json:"lastActive"`
}

// FormProps is handed to the booking-type form component on edit.
type FormProps struct {
	BookingType domain.BookingType `json:"bookingType"`
	InitialData domain.Record      `json:"initialData"`
	IsEditing   bool               `json:"isEditing"`
}

// Session is safe for concurrent use. Long operations (search, commit) mark
// the session busy; any other mutation attempted meanwhile gets ErrBusy.
type Session struct {
	id     string
	engine *Engine
	now    func() time.Time

	mu          sync.Mutex
	busy        bool
	state       State
	mode        domain.ConnectivityMode
	searchType  domain.SearchType
	searchValue string
	message     string
	results     []domain.SearchableRecord
	selected    *domain.SearchableRecord
	lastActive  time.Time
}

func newSession(id string, mode domain.ConnectivityMode, engine *Engine, now func() time.Time) *Session {
	return &Session{
		id:         id,
		engine:     engine,
		now:        now,
		state:      StateIdle,
		mode:       mode,
		searchType: domain.SearchTicketID,
		results:    []domain.SearchableRecord{},
		lastActive: now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:          s.id,
		State:       s.state,
		Mode:        s.mode,
		ModeLabel:   s.mode.Label(),
		SearchType:  s.searchType,
		SearchValue: s.searchValue,
		Message:     s.message,
		Results:     append([]domain.SearchableRecord{}, s.results...),
		IsEditing:   s.state == StateEditing,
		Busy:        s.busy,
		LastActive:  s.lastActive,
	}
	if s.selected != nil {
		sel := *s.selected
		v.Selected = &sel
	}
	return v
}

// Mode returns the current connectivity mode.
func (s *Session) Mode() domain.ConnectivityMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive), s.busy
}

// lock acquires the session for a mutation. It fails while a long
// operation is running or when the current state is not in allowed.
func (s *Session) lock(allowed ...State) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(allowed) > 0 && !hasState(allowed, s.state) {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: not allowed from %s", ErrInvalidTransition, st)
	}
	s.lastActive = s.now()
	return nil
}

func hasState(list []State, st State) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

// Search runs a federated search and moves the session to results,
// no_results, selected (exactly one hit) or error. An empty value returns
// to idle with a message and performs no I/O.
func (s *Session) Search(ctx context.Context, st domain.SearchType, value string) (View, error) {
	if err := s.lock(StateIdle, StateResults, StateNoResults, StateError, StateSelected); err != nil {
		return View{}, err
	}

	prev := s.snapshotLocked()
	q := domain.NewQuery(st, value)
	s.searchType = st
	s.searchValue = value
	s.results = []domain.SearchableRecord{}
	s.selected = nil

	if q.Empty() {
		s.state = StateIdle
		s.message = MsgEmptySearch
		defer s.mu.Unlock()
		return s.viewLocked(), nil
	}

	s.state = StateSearching
	s.message = ""
	s.busy = true
	mode := s.mode
	s.mu.Unlock()

	out, err := s.engine.Searcher.Search(ctx, q, mode)
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.busy = false
		s.restoreLocked(prev)
		s.lastActive = s.now()
		s.engine.Logger.Debug("search abandoned by caller",
			logger.String("session", s.id),
			logger.Error(ctxErr))
		return s.viewLocked(), fmt.Errorf("search abandoned: %w", ctxErr)
	}
	if errors.Is(err, search.ErrAllSourcesFailed) && mode == domain.ModeRemote {
		s.engine.Logger.Warn("backend search failed, falling back to local data",
			logger.String("session", s.id),
			logger.Error(err))
		s.engine.Metrics.ModeSwitched()
		mode = domain.ModeLocal
		out, err = s.engine.Searcher.Local(q), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.mode = mode
	s.lastActive = s.now()

	if err != nil {
		s.engine.Logger.Error("search failed",
			logger.String("session", s.id),
			logger.Error(err))
		s.state = StateError
		s.message = MsgSearchError
		return s.viewLocked(), nil
	}

	s.results = out.Records
	switch {
	case len(out.Records) == 0:
		s.state = StateNoResults
		s.message = fmt.Sprintf("No bookings found for %q in %s", value, st.Label())
	default:
		s.state = StateResults
		if only, ok := search.AutoSelect(out.Records); ok {
			s.selected = &only
			s.state = StateSelected
		}
	}
	return s.viewLocked(), nil
}

// searchSnapshot is what a search replaces, kept to undo an abandoned one.
type searchSnapshot struct {
	state       State
	searchType  domain.SearchType
	searchValue string
	message     string
	results     []domain.SearchableRecord
	selected    *domain.SearchableRecord
}

func (s *Session) snapshotLocked() searchSnapshot {
	return searchSnapshot{
		state:       s.state,
		searchType:  s.searchType,
		searchValue: s.searchValue,
		message:     s.message,
		results:     s.results,
		selected:    s.selected,
	}
}

func (s *Session) restoreLocked(p searchSnapshot) {
	s.state = p.state
	s.searchType = p.searchType
	s.searchValue = p.searchValue
	s.message = p.message
	s.results = p.results
	s.selected = p.selected
}

// Select picks a record from the current results by ticketId, bookingId
// alias or _id. bookingType may be empty; when set it disambiguates
// ticket ids shared across types.
func (s *Session) Select(key string, bookingType domain.BookingType) (View, error) {
	if err := s.lock(StateResults, StateSelected); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	for _, r := range s.results {
		if bookingType != "" && r.BookingType != bookingType {
			continue
		}
		if key != "" && (r.TicketID == key || r.StorageID == key || r.Raw.String(domain.FieldBookingID) == key) {
			sel := r
			s.selected = &sel
			s.state = StateSelected
			s.message = ""
			return s.viewLocked(), nil
		}
	}
	return View{}, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
}

// Edit enters editing on the selected record and returns the form props.
func (s *Session) Edit() (FormProps, error) {
	if err := s.lock(StateSelected); err != nil {
		return FormProps{}, err
	}
	defer s.mu.Unlock()

	s.state = StateEditing
	s.message = ""
	return FormProps{
		BookingType: s.selected.BookingType,
		InitialData: s.selected.Raw.Clone(),
		IsEditing:   true,
	}, nil
}

// CancelEdit leaves editing without touching the record.
func (s *Session) CancelEdit() (View, error) {
	if err := s.lock(StateEditing); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	s.state = StateSelected
	s.message = ""
	return s.viewLocked(), nil
}

// Commit writes the edited fields. On success the selected record and its
// entry in the results both become the committed record and the session
// returns to selected. On failure nothing changes except the message.
func (s *Session) Commit(ctx context.Context, edited domain.Record) (View, error) {
	if err := s.lock(StateEditing); err != nil {
		return View{}, err
	}
	selected := *s.selected
	mode := s.mode
	s.busy = true
	s.mu.Unlock()

	res, err := s.engine.Committer.Commit(ctx, selected, edited, mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = s.now()

	remoteErr := res.RemoteErr
	var ce *reconcile.CommitError
	if errors.As(err, &ce) {
		remoteErr = ce.RemoteErr
	}
	// a caller that went away says nothing about the backend
	if mode == domain.ModeRemote && ctx.Err() == nil && gateway.IsConnectivity(remoteErr) {
		s.engine.Logger.Warn("backend unreachable during commit, switching session to local data",
			logger.String("session", s.id))
		s.engine.Metrics.ModeSwitched()
		s.mode = domain.ModeLocal
	}

	if err != nil {
		s.message = err.Error()
		return s.viewLocked(), err
	}

	committed := res.Record
	s.results = reconcile.ReplaceInResults(s.results, selected, committed)
	s.selected = &committed
	s.state = StateSelected
	s.message = "Booking updated successfully!"
	return s.viewLocked(), nil
}

// Reset starts a new search: query, results, selection and message are
// cleared; the connectivity mode is kept.
func (s *Session) Reset() (View, error) {
	if err := s.lock(); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	s.state = StateIdle
	s.searchValue = ""
	s.message = ""
	s.results = []domain.SearchableRecord{}
	s.selected = nil
	return s.viewLocked(), nil
}
