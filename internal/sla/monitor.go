package sla

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
)

// ErrSweepInProgress is returned when a sweep is requested while one runs.
var ErrSweepInProgress = errors.New("sla sweep already in progress")

// TicketStore is the persistence the monitor needs.
type TicketStore interface {
	ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	// UpdateSLAStatuses writes both status fields for every ticket in one
	// batch and returns the ids whose row changed underneath (version mismatch).
	UpdateSLAStatuses(ctx context.Context, tickets []domain.Ticket) ([]string, error)
}

// BreachSink receives breach edges.
type BreachSink interface {
	SLABreached(ctx context.Context, e events.SLABreached)
}

// SweepObserver is told about every finished sweep.
type SweepObserver interface {
	RecordSweep(result SweepResult, elapsed time.Duration)
}

// TicketFailure records a ticket the sweep could not evaluate.
type TicketFailure struct {
	TicketID string
	Err      error
}

// SweepResult summarizes one monitor pass.
type SweepResult struct {
	Scanned      int
	UpdatedCount int
	AtRisk       int
	Stale        int
	Failed       int
	Failures     []TicketFailure
	BreachEvents []events.SLABreached
}

// Monitor periodically reconciles SLA state of open tickets.
type Monitor struct {
	store    TicketStore
	calc     *Calculator
	sink     BreachSink
	observer SweepObserver
	logger   *zap.Logger
	running  sync.Mutex
}

// MonitorDependencies bundles monitor collaborators.
type MonitorDependencies struct {
	Store      TicketStore
	Calculator *Calculator
	Sink       BreachSink
	Observer   SweepObserver
	Logger     *zap.Logger
}

// NewMonitor creates the monitor.
func NewMonitor(deps MonitorDependencies) *Monitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:    deps.Store,
		calc:     deps.Calculator,
		sink:     deps.Sink,
		observer: deps.Observer,
		logger:   logger,
	}
}

// Sweep recomputes every open ticket, persists the ones whose status moved and
// emits one breach event per track that moved into breached. Events for rows
// that changed concurrently are held back; the next sweep sees them again.
// Events are delivered after the sweep lock is released and are not bound by
// the sweep deadline.
func (m *Monitor) Sweep(ctx context.Context) (SweepResult, error) {
	result, err := m.reconcile(ctx)
	if err != nil {
		return result, err
	}
	if m.sink != nil && len(result.BreachEvents) > 0 {
		deliverCtx := context.WithoutCancel(ctx)
		for _, e := range result.BreachEvents {
			m.sink.SLABreached(deliverCtx, e)
		}
	}
	return result, nil
}

func (m *Monitor) reconcile(ctx context.Context) (SweepResult, error) {
	if !m.running.TryLock() {
		return SweepResult{}, ErrSweepInProgress
	}
	defer m.running.Unlock()

	started := time.Now()
	var result SweepResult

	tickets, err := m.store.ListByStatuses(ctx, domain.OpenTicketStatuses)
	if err != nil {
		return result, fmt.Errorf("load open tickets: %w", err)
	}
	result.Scanned = len(tickets)

	detectedAt := m.calc.Now()
	changed := make([]domain.Ticket, 0)
	pending := map[string][]events.SLABreached{}
	var order []string

	for i := range tickets {
		ticket := &tickets[i]
		before := StatusesOf(ticket)

		if err := m.calc.Refresh(ticket); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, TicketFailure{TicketID: ticket.ID, Err: err})
			m.logger.Warn("sla recompute failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}

		if edges := BreachEdges(before, ticket, detectedAt); len(edges) > 0 {
			pending[ticket.ID] = edges
			order = append(order, ticket.ID)
		}
		if ticket.HasRisk() {
			result.AtRisk++
		}
		if before.Changed(ticket) {
			changed = append(changed, *ticket)
		}
	}

	stale := map[string]struct{}{}
	if len(changed) > 0 {
		staleIDs, err := m.store.UpdateSLAStatuses(ctx, changed)
		if err != nil {
			return result, fmt.Errorf("persist sla statuses: %w", err)
		}
		for _, id := range staleIDs {
			stale[id] = struct{}{}
		}
	}
	result.Stale = len(stale)
	result.UpdatedCount = len(changed) - len(stale)

	for _, id := range order {
		if _, skip := stale[id]; skip {
			continue
		}
		result.BreachEvents = append(result.BreachEvents, pending[id]...)
	}

	elapsed := time.Since(started)
	if m.observer != nil {
		m.observer.RecordSweep(result, elapsed)
	}
	m.logger.Info("sla sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("breaches", len(result.BreachEvents)),
		zap.Int("at_risk", result.AtRisk),
		zap.Int("failed", result.Failed),
		zap.Int("stale", result.Stale),
		zap.Duration("elapsed", elapsed))
	return result, nil
}
