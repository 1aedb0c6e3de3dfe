package lifecycle

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// Machine applies status transitions and their timestamp side effects.
type Machine struct {
	calc *sla.Calculator
}

// NewMachine builds a state machine that recomputes SLA through calc.
func NewMachine(calc *sla.Calculator) *Machine {
	return &Machine{calc: calc}
}

// Transition moves t to target in place. Requesters may never cancel.
func (m *Machine) Transition(t *domain.Ticket, target domain.TicketStatus, role domain.UserRole) error {
	if !target.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": string(target)})
	}
	from := t.Status
	if !CanTransition(from, target) {
		return apperrors.NewInvalidTransition(string(from), string(target))
	}
	if target == domain.TicketStatusCancelled && role == domain.UserRoleRequester {
		return apperrors.NewForbidden("requesters cannot cancel tickets")
	}

	now := m.calc.Now()
	switch {
	case target == domain.TicketStatusResolved:
		if t.ResolvedAt == nil {
			t.ResolvedAt = timePtr(now)
		}
	case from == domain.TicketStatusResolved && target == domain.TicketStatusInProgress:
		t.ResolvedAt = nil
	case from == domain.TicketStatusClosed && target == domain.TicketStatusOpen:
		t.ResolvedAt = nil
	}

	t.Status = target
	t.UpdatedAt = now
	m.calc.UpdateTicketSLAStatus(t)
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
