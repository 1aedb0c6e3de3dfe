package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusPendingCustomer TicketStatus = "pending_customer"
	TicketStatusPendingVendor   TicketStatus = "pending_vendor"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// AllTicketStatuses lists every status in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPendingCustomer,
	TicketStatusPendingVendor,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// OpenTicketStatuses is the open family watched by the SLA monitor.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPendingCustomer,
	TicketStatusPendingVendor,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpenFamily reports whether s is one of the open statuses.
func (s TicketStatus) IsOpenFamily() bool {
	for _, candidate := range OpenTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority is informational only; it does not affect SLA math.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// SLAStatus is the derived state of one SLA track.
type SLAStatus string

const (
	SLAStatusOnTime   SLAStatus = "on_time"
	SLAStatusAtRisk   SLAStatus = "at_risk"
	SLAStatusBreached SLAStatus = "breached"
)

// SLATrack identifies which SLA obligation a status or event refers to.
type SLATrack string

const (
	SLATrackFirstResponse SLATrack = "first_response"
	SLATrackResolution    SLATrack = "resolution"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	TicketNumber    string
	RequesterID     string
	CategoryID      string
	AssignedAgentID *string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	AdditionalData  map[string]any

	// Due dates are fixed at creation from the category snapshot.
	FirstResponseDue time.Time
	ResolutionDue    time.Time
	FirstResponseAt  *time.Time
	ResolvedAt       *time.Time

	FirstResponseSLAStatus SLAStatus
	ResolutionSLAStatus    SLAStatus

	CategorySnapshot CategorySnapshot
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOpen reports whether the ticket is still being worked.
func (t *Ticket) IsOpen() bool {
	return t.Status.IsOpenFamily()
}

// IsClosed reports whether the ticket left the open family.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed || t.Status == TicketStatusCancelled
}

// CanBeAssigned reports whether an agent may be assigned.
func (t *Ticket) CanBeAssigned() bool {
	return t.IsOpen()
}

// CanBeResolved reports whether the ticket may move to resolved.
func (t *Ticket) CanBeResolved() bool {
	return t.Status == TicketStatusInProgress
}

// HasBreach reports whether either SLA track is breached.
func (t *Ticket) HasBreach() bool {
	return t.FirstResponseSLAStatus == SLAStatusBreached || t.ResolutionSLAStatus == SLAStatusBreached
}

// HasRisk reports whether either SLA track is at risk.
func (t *Ticket) HasRisk() bool {
	return t.FirstResponseSLAStatus == SLAStatusAtRisk || t.ResolutionSLAStatus == SLAStatusAtRisk
}
