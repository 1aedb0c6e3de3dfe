// Package sla computes SLA state for tickets and reconciles it periodically.
package sla

import (
	"errors"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

const (
	DefaultFirstResponseRisk = 2 * time.Hour
	DefaultResolutionRisk    = 4 * time.Hour
)

// ErrMissingDueDate marks a ticket whose due dates were never set.
var ErrMissingDueDate = errors.New("ticket has no SLA due dates")

// Thresholds is how close to a due date a track becomes at risk.
type Thresholds struct {
	FirstResponse time.Duration
	Resolution    time.Duration
}

// DefaultThresholds returns the 2h/4h risk windows.
func DefaultThresholds() Thresholds {
	return Thresholds{FirstResponse: DefaultFirstResponseRisk, Resolution: DefaultResolutionRisk}
}

// Calculator derives SLA statuses from due dates against a clock.
type Calculator struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewCalculator builds a calculator. A nil clock means time.Now.
func NewCalculator(thresholds Thresholds, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{thresholds: thresholds, now: now}
}

// Thresholds returns the configured risk windows.
func (c *Calculator) Thresholds() Thresholds {
	return c.thresholds
}

// Now returns the calculator's current time.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// StatusAt is the pure status function. A completed track is on time iff it
// completed no later than due; an open track is breached strictly after due
// and at risk while the remaining time is within threshold.
func StatusAt(now, due time.Time, completedAt *time.Time, threshold time.Duration) domain.SLAStatus {
	if completedAt != nil {
		if completedAt.After(due) {
			return domain.SLAStatusBreached
		}
		return domain.SLAStatusOnTime
	}
	if now.After(due) {
		return domain.SLAStatusBreached
	}
	if due.Sub(now) <= threshold {
		return domain.SLAStatusAtRisk
	}
	return domain.SLAStatusOnTime
}

// CalculateStatus evaluates one track at the calculator's current time.
func (c *Calculator) CalculateStatus(due time.Time, completedAt *time.Time, threshold time.Duration) domain.SLAStatus {
	return StatusAt(c.now(), due, completedAt, threshold)
}

// UpdateTicketSLAStatus recomputes both status fields of t in place and
// touches nothing else. The resolution track is frozen once the ticket is
// closed or cancelled.
func (c *Calculator) UpdateTicketSLAStatus(t *domain.Ticket) {
	c.updateAt(c.now(), t)
}

// Refresh is UpdateTicketSLAStatus with a sanity check on the due dates.
func (c *Calculator) Refresh(t *domain.Ticket) error {
	if t.FirstResponseDue.IsZero() || t.ResolutionDue.IsZero() {
		return ErrMissingDueDate
	}
	c.updateAt(c.now(), t)
	return nil
}

func (c *Calculator) updateAt(now time.Time, t *domain.Ticket) {
	t.FirstResponseSLAStatus = StatusAt(now, t.FirstResponseDue, t.FirstResponseAt, c.thresholds.FirstResponse)
	if resolutionFrozen(t.Status) {
		return
	}
	t.ResolutionSLAStatus = StatusAt(now, t.ResolutionDue, t.ResolvedAt, c.thresholds.Resolution)
}

func resolutionFrozen(status domain.TicketStatus) bool {
	return status == domain.TicketStatusClosed || status == domain.TicketStatusCancelled
}
