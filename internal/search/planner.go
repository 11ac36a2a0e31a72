// Package search runs one logical query across every booking collection,
// remotely through the gateway or against the local collection, and merges
// the per-type answers.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
)

// ErrAllSourcesFailed is returned when every per-type sub-query failed.
var ErrAllSourcesFailed = errors.New("all booking sources failed")

// Gateway is the part of the backend client the planner needs.
type Gateway interface {
	List(ctx context.Context, t domain.BookingType) ([]domain.Record, error)
	SearchByKey(ctx context.Context, t domain.BookingType, key string) ([]domain.Record, error)
}

// Outcome is the merged answer of one search.
type Outcome struct {
	Records []domain.SearchableRecord
	Mode    domain.ConnectivityMode // channel that produced Records
	Failed  []domain.BookingType    // types whose sub-query failed (remote only)
}

// Planner fans a query out over the searchable booking types.
type Planner struct {
	gateway Gateway
	local   LocalSource
	types   []domain.BookingType
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewPlanner builds a planner over domain.SearchOrder. m may be nil.
func NewPlanner(gw Gateway, local LocalSource, log logger.Logger, m *metrics.Metrics) *Planner {
	return &Planner{
		gateway: gw,
		local:   local,
		types:   domain.SearchOrder,
		logger:  log,
		metrics: m,
	}
}

// Search answers q through the channel selected by mode. An empty query
// returns no records and performs no I/O. In remote mode a failing type
// contributes nothing; ErrAllSourcesFailed is returned only when every type
// failed, so the caller can decide to switch to local data. A done ctx yields
// ctx.Err() instead, since it says nothing about the backend.
func (p *Planner) Search(ctx context.Context, q domain.Query, mode domain.ConnectivityMode) (Outcome, error) {
	if q.Empty() {
		return Outcome{Records: []domain.SearchableRecord{}, Mode: mode}, nil
	}

	start := time.Now()
	var out Outcome
	var err error
	if mode == domain.ModeRemote && p.gateway != nil {
		out, err = p.searchRemote(ctx, q)
	} else {
		out = p.Local(q)
	}
	p.metrics.ObserveSearch(string(q.Type), string(out.Mode), time.Since(start))
	return out, err
}

// Local answers q from the local collection only.
func (p *Planner) Local(q domain.Query) Outcome {
	perType := make([][]domain.SearchableRecord, len(p.types))
	if !q.Empty() && p.local != nil {
		for i, t := range p.types {
			perType[i] = FilterLocal(q, p.local, t)
		}
	}
	return Outcome{Records: Consolidate(perType), Mode: domain.ModeLocal}
}

func (p *Planner) searchRemote(ctx context.Context, q domain.Query) (Outcome, error) {
	perType := make([][]domain.SearchableRecord, len(p.types))
	errs := make([]error, len(p.types))

	var wg sync.WaitGroup
	for i, t := range p.types {
		wg.Add(1)
		go func(i int, t domain.BookingType) {
			defer wg.Done()
			perType[i], errs[i] = p.searchType(ctx, q, t)
		}(i, t)
	}
	wg.Wait()

	out := Outcome{Mode: domain.ModeRemote}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		out.Failed = append(out.Failed, p.types[i])
		p.logger.Warn("booking sub-query failed",
			logger.String("booking_type", string(p.types[i])),
			logger.Error(err))
	}
	if len(out.Failed) == len(p.types) {
		return out, ErrAllSourcesFailed
	}

	out.Records = Consolidate(perType)
	return out, nil
}

// searchType runs the sub-query for one type. Ticket searches try the
// backend search route first and fall back to fetch-all for this type only.
func (p *Planner) searchType(ctx context.Context, q domain.Query, t domain.BookingType) ([]domain.SearchableRecord, error) {
	if q.Type == domain.SearchTicketID {
		recs, err := p.gateway.SearchByKey(ctx, t, q.Value)
		if err == nil {
			out := make([]domain.SearchableRecord, 0, len(recs))
			for _, r := range recs {
				out = append(out, domain.Normalize(r, t))
			}
			return out, nil
		}
		p.metrics.SubQueryFailed(string(t), "search")
		p.metrics.Fallback(string(t))
		p.logger.Debug("search endpoint not available, trying fallback",
			logger.String("booking_type", string(t)),
			logger.Error(err))
	}

	recs, err := p.gateway.List(ctx, t)
	if err != nil {
		p.metrics.SubQueryFailed(string(t), "list")
		return nil, err
	}
	return q.Filter(recs, t), nil
}
