package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Sink is the set of events the ticket core produces.
type Sink interface {
	TicketCreated(ctx context.Context, e TicketCreated)
	TicketAssigned(ctx context.Context, e TicketAssigned)
	FirstResponse(ctx context.Context, e FirstResponse)
	TicketResolved(ctx context.Context, e TicketResolved)
	TicketCommented(ctx context.Context, e TicketCommented)
	SLABreached(ctx context.Context, e SLABreached)
	TicketStatusChanged(ctx context.Context, e TicketStatusChanged)
}

// DispatcherSink wraps typed payloads into envelopes on a Dispatcher.
type DispatcherSink struct {
	dispatcher Dispatcher
	now        func() time.Time
}

// NewDispatcherSink builds a Sink publishing to d.
func NewDispatcherSink(d Dispatcher) *DispatcherSink {
	return &DispatcherSink{dispatcher: d, now: time.Now}
}

func (s *DispatcherSink) TicketCreated(ctx context.Context, e TicketCreated) {
	s.publish(ctx, EventTicketCreated, e.Ticket.ID, e.ActorID, e)
}

func (s *DispatcherSink) TicketAssigned(ctx context.Context, e TicketAssigned) {
	s.publish(ctx, EventTicketAssigned, e.Ticket.ID, e.AssignedByID, e)
}

func (s *DispatcherSink) FirstResponse(ctx context.Context, e FirstResponse) {
	s.publish(ctx, EventTicketFirstResponse, e.Ticket.ID, e.ActorID, e)
}

func (s *DispatcherSink) TicketResolved(ctx context.Context, e TicketResolved) {
	s.publish(ctx, EventTicketResolved, e.Ticket.ID, e.ActorID, e)
}

func (s *DispatcherSink) TicketCommented(ctx context.Context, e TicketCommented) {
	s.publish(ctx, EventTicketCommented, e.Ticket.ID, e.ActorID, e)
}

func (s *DispatcherSink) SLABreached(ctx context.Context, e SLABreached) {
	s.publish(ctx, EventTicketSLABreached, e.Ticket.ID, "", e)
}

func (s *DispatcherSink) TicketStatusChanged(ctx context.Context, e TicketStatusChanged) {
	eventType := EventTicketStatusChanged
	switch {
	case e.To == domain.TicketStatusClosed:
		eventType = EventTicketClosed
	case e.From == domain.TicketStatusClosed && e.To == domain.TicketStatusOpen:
		eventType = EventTicketReopened
	}
	s.publish(ctx, eventType, e.Ticket.ID, e.ActorID, e)
}

func (s *DispatcherSink) publish(ctx context.Context, eventType EventType, ticketID, actorID string, payload any) {
	if s == nil || s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
