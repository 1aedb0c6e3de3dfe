package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestDispatcher_ContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherSink_EventNames(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []EventType
	SubscribeAll(d, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "t-1", e.TicketID)
		assert.False(t, e.Timestamp.IsZero())
		return nil
	})
	sink := NewDispatcherSink(d)
	ref := TicketRef{ID: "t-1"}
	ctx := context.Background()

	sink.TicketCreated(ctx, TicketCreated{Ticket: ref})
	sink.TicketAssigned(ctx, TicketAssigned{Ticket: ref})
	sink.FirstResponse(ctx, FirstResponse{Ticket: ref})
	sink.TicketResolved(ctx, TicketResolved{Ticket: ref})
	sink.TicketCommented(ctx, TicketCommented{Ticket: ref})
	sink.SLABreached(ctx, SLABreached{Ticket: ref, Track: domain.SLATrackResolution})
	sink.TicketStatusChanged(ctx, TicketStatusChanged{Ticket: ref, From: domain.TicketStatusResolved, To: domain.TicketStatusClosed})
	sink.TicketStatusChanged(ctx, TicketStatusChanged{Ticket: ref, From: domain.TicketStatusClosed, To: domain.TicketStatusOpen})
	sink.TicketStatusChanged(ctx, TicketStatusChanged{Ticket: ref, From: domain.TicketStatusOpen, To: domain.TicketStatusCancelled})

	assert.Equal(t, []EventType{
		"ticket.created",
		"ticket.assigned",
		"ticket.first.response",
		"ticket.resolved",
		"ticket.commented",
		"ticket.sla.breached",
		"ticket.closed",
		"ticket.reopened",
		"ticket.status.changed",
	}, got)
}

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaForwarder_WritesKeyedMessage(t *testing.T) {
	writer := &recordingWriter{}
	forwarder := newKafkaForwarder(writer, nil)
	d := NewInMemoryDispatcher(nil)
	forwarder.Register(d)

	NewDispatcherSink(d).SLABreached(context.Background(), SLABreached{
		Ticket: TicketRef{ID: "t-9", TicketNumber: "SD-ABC-123"},
		Track:  domain.SLATrackFirstResponse,
	})

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, "t-9", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "ticket.sla.breached", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ticket.sla.breached", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "first_response", payload["sla_type"])

	require.NoError(t, forwarder.Close())
	assert.True(t, writer.closed)
}

func TestKafkaForwarder_PropagatesWriteError(t *testing.T) {
	forwarder := newKafkaForwarder(&recordingWriter{err: errors.New("broker down")}, nil)
	err := forwarder.handle(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
