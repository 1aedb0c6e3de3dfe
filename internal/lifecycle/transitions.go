// Package lifecycle owns the ticket status state machine.
package lifecycle

import "github.com/spec-kit/servicedesk/internal/domain"

var transitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen: {
		domain.TicketStatusInProgress,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusResolved,
		domain.TicketStatusPendingCustomer,
		domain.TicketStatusPendingVendor,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusPendingCustomer: {
		domain.TicketStatusInProgress,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusPendingVendor: {
		domain.TicketStatusInProgress,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusResolved: {
		domain.TicketStatusClosed,
		domain.TicketStatusInProgress,
	},
	domain.TicketStatusClosed: {
		domain.TicketStatusOpen,
	},
	domain.TicketStatusCancelled: {},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to domain.TicketStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns a copy of the statuses reachable from from.
func AllowedTargets(from domain.TicketStatus) []domain.TicketStatus {
	targets := transitions[from]
	out := make([]domain.TicketStatus, len(targets))
	copy(out, targets)
	return out
}
