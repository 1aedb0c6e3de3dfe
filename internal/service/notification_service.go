package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotificationService fans domain events out to the webhook and escalation email.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	http       *resty.Client
	mailer     Mailer
}

// NewNotificationService creates the service. A nil mailer is replaced by
// SendGrid when an API key is configured.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, mailer Mailer) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.WebhookTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if mailer == nil && strings.TrimSpace(cfg.SendGridAPIKey) != "" {
		mailer = NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom)
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		http:       resty.New().SetTimeout(timeout),
		mailer:     mailer,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, n.handleWebhook)
	n.dispatcher.Subscribe(events.EventTicketSLABreached, n.handleSLABreached)
}

func (n *NotificationService) handleWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	resp, err := n.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Event-Type", string(event.Type)).
		SetBody(event).
		Post(url)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", event.Type, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s: unexpected status %d", event.Type, resp.StatusCode())
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("status", resp.StatusCode()))
	return nil
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreached)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Warn("sla breached",
		zap.String("ticket_id", payload.Ticket.ID),
		zap.String("ticket_number", payload.Ticket.TicketNumber),
		zap.String("sla_type", string(payload.Track)),
		zap.Time("due_at", payload.DueAt))

	to := strings.TrimSpace(n.cfg.EscalationEmail)
	if n.mailer == nil || to == "" {
		return nil
	}
	subject, body := breachEmail(payload)
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("breach email for %s: %w", payload.Ticket.TicketNumber, err)
	}
	return nil
}

func breachEmail(e events.SLABreached) (string, string) {
	track := strings.ReplaceAll(string(e.Track), "_", " ")
	subject := fmt.Sprintf("[SLA breach] %s %s", e.Ticket.TicketNumber, track)
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s (%s) breached its %s SLA.\n\n", e.Ticket.TicketNumber, e.Ticket.Title, track)
	fmt.Fprintf(&b, "Status: %s\nPriority: %s\n", e.Ticket.Status, e.Ticket.Priority)
	fmt.Fprintf(&b, "Due: %s\nDetected: %s\n", e.DueAt.UTC().Format(time.RFC3339), e.DetectedAt.UTC().Format(time.RFC3339))
	if e.Ticket.AssignedAgentID == nil {
		b.WriteString("Assignee: unassigned\n")
	}
	return subject, b.String()
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer builds a mailer for apiKey sending as from.
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Service Desk", from),
	}
}

// Send delivers a single plain-text message.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), body, "")
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
