package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketFirstResponse EventType = "ticket.first.response"
	EventTicketResolved      EventType = "ticket.resolved"
	EventTicketCommented     EventType = "ticket.commented"
	EventTicketSLABreached   EventType = "ticket.sla.breached"

	EventTicketClosed        EventType = "ticket.closed"
	EventTicketReopened      EventType = "ticket.reopened"
	EventTicketStatusChanged EventType = "ticket.status.changed"
)

// AllEventTypes lists every event the service publishes.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketFirstResponse,
	EventTicketResolved,
	EventTicketCommented,
	EventTicketSLABreached,
	EventTicketClosed,
	EventTicketReopened,
	EventTicketStatusChanged,
}

// Event is the envelope handed to dispatcher subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketRef is the ticket summary carried by every payload.
type TicketRef struct {
	ID              string                `json:"id"`
	TicketNumber    string                `json:"ticket_number"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	RequesterID     string                `json:"requester_id"`
	AssignedAgentID *string               `json:"assigned_agent_id,omitempty"`
}

// RefOf summarizes t.
func RefOf(t *domain.Ticket) TicketRef {
	return TicketRef{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		Title:           t.Title,
		Status:          t.Status,
		Priority:        t.Priority,
		RequesterID:     t.RequesterID,
		AssignedAgentID: t.AssignedAgentID,
	}
}

// TicketCreated payload.
type TicketCreated struct {
	Ticket     TicketRef `json:"ticket"`
	CategoryID string    `json:"category_id"`
	ActorID    string    `json:"actor_id"`
}

// TicketAssigned payload.
type TicketAssigned struct {
	Ticket       TicketRef `json:"ticket"`
	AgentID      string    `json:"agent_id"`
	AgentName    string    `json:"agent_name"`
	AssignedByID string    `json:"assigned_by_id"`
}

// FirstResponse payload.
type FirstResponse struct {
	Ticket      TicketRef `json:"ticket"`
	CommentID   string    `json:"comment_id"`
	ActorID     string    `json:"actor_id"`
	RespondedAt time.Time `json:"responded_at"`
}

// TicketResolved payload.
type TicketResolved struct {
	Ticket     TicketRef `json:"ticket"`
	ActorID    string    `json:"actor_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// TicketCommented payload.
type TicketCommented struct {
	Ticket      TicketRef          `json:"ticket"`
	CommentID   string             `json:"comment_id"`
	CommentType domain.CommentType `json:"comment_type"`
	ActorID     string             `json:"actor_id"`
	Preview     string             `json:"preview"`
}

// SLABreached payload, one per track transition into breached.
type SLABreached struct {
	Ticket     TicketRef       `json:"ticket"`
	Track      domain.SLATrack `json:"sla_type"`
	DueAt      time.Time       `json:"due_at"`
	DetectedAt time.Time       `json:"detected_at"`
}

// TicketStatusChanged payload for close, reopen and other status moves.
type TicketStatusChanged struct {
	Ticket  TicketRef           `json:"ticket"`
	From    domain.TicketStatus `json:"from"`
	To      domain.TicketStatus `json:"to"`
	ActorID string              `json:"actor_id"`
}
