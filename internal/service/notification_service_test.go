package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
)

type capturedMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func TestNotificationService_WebhookAndBreachEmail(t *testing.T) {
	var (
		mu       sync.Mutex
		received []events.Event
		types    []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event events.Event
		_ = json.NewDecoder(r.Body).Decode(&event)
		mu.Lock()
		received = append(received, event)
		types = append(types, r.Header.Get("X-Event-Type"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dispatcher := events.NewInMemoryDispatcher(nil)
	mailer := &fakeMailer{}
	svc := NewNotificationService(dispatcher, nil, config.NotificationConfig{
		WebhookURL:            server.URL,
		WebhookTimeoutSeconds: 2,
		EscalationEmail:       "oncall@example.com",
	}, mailer)
	svc.RegisterHandlers()

	sink := events.NewDispatcherSink(dispatcher)
	due := time.Date(2024, 5, 6, 13, 0, 0, 0, time.UTC)
	sink.SLABreached(context.Background(), events.SLABreached{
		Ticket:     events.TicketRef{ID: "t-1", TicketNumber: "SD-X-001", Title: "Printer", Status: domain.TicketStatusOpen},
		Track:      domain.SLATrackFirstResponse,
		DueAt:      due,
		DetectedAt: due.Add(time.Minute),
	})

	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, events.EventTicketSLABreached, received[0].Type)
	assert.Equal(t, "t-1", received[0].TicketID)
	assert.Equal(t, []string{"ticket.sla.breached"}, types)
	mu.Unlock()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "oncall@example.com", mailer.sent[0].to)
	assert.Equal(t, "[SLA breach] SD-X-001 first response", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "Assignee: unassigned")
	assert.Contains(t, mailer.sent[0].body, "Due: 2024-05-06T13:00:00Z")
}

func TestNotificationService_WebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewNotificationService(nil, nil, config.NotificationConfig{WebhookURL: server.URL}, nil)
	err := svc.handleWebhook(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotificationService_NoTargetsConfigured(t *testing.T) {
	svc := NewNotificationService(nil, nil, config.NotificationConfig{}, nil)
	ctx := context.Background()

	assert.NoError(t, svc.handleWebhook(ctx, events.Event{Type: events.EventTicketCreated}))
	assert.NoError(t, svc.handleSLABreached(ctx, events.Event{
		Type:    events.EventTicketSLABreached,
		Payload: events.SLABreached{Track: domain.SLATrackResolution},
	}))
	assert.Error(t, svc.handleSLABreached(ctx, events.Event{Type: events.EventTicketSLABreached, Payload: "bogus"}))
}
