package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// AuditTrail records ticket history entries from published events.
type AuditTrail struct {
	history repository.TicketHistoryRepository
	logger  *zap.Logger
}

// NewAuditTrail builds the subscriber.
func NewAuditTrail(history repository.TicketHistoryRepository, logger *zap.Logger) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditTrail{history: history, logger: logger}
}

// RegisterHandlers subscribes to the events that produce history.
func (a *AuditTrail) RegisterHandlers(d events.Dispatcher) {
	if d == nil {
		return
	}
	d.Subscribe(events.EventTicketCreated, a.handle)
	d.Subscribe(events.EventTicketAssigned, a.handle)
	d.Subscribe(events.EventTicketStatusChanged, a.handle)
	d.Subscribe(events.EventTicketClosed, a.handle)
	d.Subscribe(events.EventTicketReopened, a.handle)
	d.Subscribe(events.EventTicketSLABreached, a.handle)
}

// handle never fails the publisher; history is best effort.
func (a *AuditTrail) handle(ctx context.Context, event events.Event) error {
	entry, ok := historyFor(event)
	if !ok {
		return nil
	}
	if err := a.history.Create(ctx, entry); err != nil {
		a.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

func historyFor(event events.Event) (*domain.TicketHistory, bool) {
	entry := &domain.TicketHistory{TicketID: event.TicketID, CreatedAt: event.Timestamp}
	if event.ActorID != "" {
		actor := event.ActorID
		entry.ChangedByID = &actor
	}

	switch p := event.Payload.(type) {
	case events.TicketCreated:
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue = map[string]any{"status": string(p.Ticket.Status), "ticketNumber": p.Ticket.TicketNumber}
		entry.Description = fmt.Sprintf("Ticket %s created", p.Ticket.TicketNumber)
	case events.TicketAssigned:
		entry.ChangeType = domain.ChangeTypeAssignee
		entry.NewValue = map[string]any{"assignedAgentId": p.AgentID}
		entry.Description = fmt.Sprintf("Assigned to %s", p.AgentName)
	case events.TicketStatusChanged:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": string(p.From)}
		entry.NewValue = map[string]any{"status": string(p.To)}
		entry.Description = fmt.Sprintf("Status changed from %s to %s", p.From, p.To)
	case events.SLABreached:
		entry.ChangeType = domain.ChangeTypeSLA
		entry.NewValue = map[string]any{"slaType": string(p.Track), "dueAt": p.DueAt}
		entry.Description = fmt.Sprintf("%s SLA breached", p.Track)
	default:
		return nil, false
	}
	return entry, true
}
