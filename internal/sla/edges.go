package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
)

// TrackStatuses holds both SLA statuses of a ticket as last persisted.
type TrackStatuses struct {
	FirstResponse domain.SLAStatus
	Resolution    domain.SLAStatus
}

// StatusesOf reads the current statuses of t.
func StatusesOf(t *domain.Ticket) TrackStatuses {
	return TrackStatuses{FirstResponse: t.FirstResponseSLAStatus, Resolution: t.ResolutionSLAStatus}
}

// Changed reports whether t no longer carries the statuses in s.
func (s TrackStatuses) Changed(t *domain.Ticket) bool {
	return s != StatusesOf(t)
}

// BreachEdges returns one event per track of t that moved into breached
// since before. Every writer of the status columns must emit these after its
// write succeeds, otherwise the edge is lost for good.
func BreachEdges(before TrackStatuses, t *domain.Ticket, detectedAt time.Time) []events.SLABreached {
	var out []events.SLABreached
	if enteredBreach(before.FirstResponse, t.FirstResponseSLAStatus) {
		out = append(out, events.SLABreached{
			Ticket:     events.RefOf(t),
			Track:      domain.SLATrackFirstResponse,
			DueAt:      t.FirstResponseDue,
			DetectedAt: detectedAt,
		})
	}
	if enteredBreach(before.Resolution, t.ResolutionSLAStatus) {
		out = append(out, events.SLABreached{
			Ticket:     events.RefOf(t),
			Track:      domain.SLATrackResolution,
			DueAt:      t.ResolutionDue,
			DetectedAt: detectedAt,
		})
	}
	return out
}

func enteredBreach(before, after domain.SLAStatus) bool {
	return before != domain.SLAStatusBreached && after == domain.SLAStatusBreached
}
