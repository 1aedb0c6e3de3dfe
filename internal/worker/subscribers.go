package worker

import (
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/service"
)

// Subscribers are the in-process consumers of ticket events.
type Subscribers struct {
	Notifications *service.NotificationService
	Audit         *service.AuditTrail
	Forwarder     *events.KafkaForwarder
}

// StartEventSubscribers registers every configured consumer on dispatcher.
func StartEventSubscribers(dispatcher events.Dispatcher, subs Subscribers) {
	if dispatcher == nil {
		return
	}
	if subs.Audit != nil {
		subs.Audit.RegisterHandlers(dispatcher)
	}
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Forwarder != nil {
		subs.Forwarder.Register(dispatcher)
	}
}
