package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/category"
	"github.com/spec-kit/servicedesk/internal/domain"
)

var created = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(t time.Time) *time.Time { return &t }

func newTicket(firstResponseHours, resolutionHours float64) *domain.Ticket {
	firstDue, resolutionDue := category.DueDates(created, domain.SLAPolicy{
		FirstResponseHours: firstResponseHours,
		ResolutionHours:    resolutionHours,
	})
	return &domain.Ticket{
		ID:                     "t-1",
		Status:                 domain.TicketStatusOpen,
		FirstResponseDue:       firstDue,
		ResolutionDue:          resolutionDue,
		FirstResponseSLAStatus: domain.SLAStatusOnTime,
		ResolutionSLAStatus:    domain.SLAStatusOnTime,
		CreatedAt:              created,
	}
}

func TestStatusAt(t *testing.T) {
	due := created.Add(4 * time.Hour)
	threshold := 2 * time.Hour

	cases := []struct {
		name      string
		now       time.Time
		completed *time.Time
		want      domain.SLAStatus
	}{
		{"plenty of time", created, nil, domain.SLAStatusOnTime},
		{"just outside risk window", due.Add(-threshold - time.Second), nil, domain.SLAStatusOnTime},
		{"risk window boundary", due.Add(-threshold), nil, domain.SLAStatusAtRisk},
		{"exactly due", due, nil, domain.SLAStatusAtRisk},
		{"after due", due.Add(time.Second), nil, domain.SLAStatusBreached},
		{"completed on time", due.Add(48 * time.Hour), ptr(due.Add(-time.Minute)), domain.SLAStatusOnTime},
		{"completed exactly at due", due.Add(48 * time.Hour), ptr(due), domain.SLAStatusOnTime},
		{"completed late", created, ptr(due.Add(time.Minute)), domain.SLAStatusBreached},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusAt(tc.now, due, tc.completed, threshold))
		})
	}
}

func TestUpdateTicketSLAStatus_Idempotent(t *testing.T) {
	ticket := newTicket(2, 8)
	calc := NewCalculator(DefaultThresholds(), fixedClock(created.Add(5*time.Hour)))

	calc.UpdateTicketSLAStatus(ticket)
	first, resolution := ticket.FirstResponseSLAStatus, ticket.ResolutionSLAStatus
	calc.UpdateTicketSLAStatus(ticket)

	assert.Equal(t, first, ticket.FirstResponseSLAStatus)
	assert.Equal(t, resolution, ticket.ResolutionSLAStatus)
}

func TestUpdateTicketSLAStatus_TouchesOnlyStatuses(t *testing.T) {
	ticket := newTicket(2, 8)
	before := *ticket
	calc := NewCalculator(DefaultThresholds(), fixedClock(created.Add(10*time.Hour)))

	calc.UpdateTicketSLAStatus(ticket)

	assert.Equal(t, before.FirstResponseDue, ticket.FirstResponseDue)
	assert.Equal(t, before.ResolutionDue, ticket.ResolutionDue)
	assert.Equal(t, before.Status, ticket.Status)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.FirstResponseAt)
}

func TestScenario_UnansweredTicketDegrades(t *testing.T) {
	ticket := newTicket(2, 8)
	require.Equal(t, created.Add(2*time.Hour), ticket.FirstResponseDue)
	require.Equal(t, created.Add(8*time.Hour), ticket.ResolutionDue)

	calc := NewCalculator(DefaultThresholds(), fixedClock(created.Add(6*time.Hour+10*time.Minute)))
	calc.UpdateTicketSLAStatus(ticket)
	assert.Equal(t, domain.SLAStatusBreached, ticket.FirstResponseSLAStatus)
	assert.Equal(t, domain.SLAStatusAtRisk, ticket.ResolutionSLAStatus)

	calc = NewCalculator(DefaultThresholds(), fixedClock(created.Add(9*time.Hour)))
	calc.UpdateTicketSLAStatus(ticket)
	assert.Equal(t, domain.SLAStatusBreached, ticket.FirstResponseSLAStatus)
	assert.Equal(t, domain.SLAStatusBreached, ticket.ResolutionSLAStatus)
}

func TestScenario_ResolvedTicketStaysOnTime(t *testing.T) {
	ticket := newTicket(2, 8)
	ticket.FirstResponseAt = ptr(created.Add(30 * time.Minute))
	ticket.ResolvedAt = ptr(created.Add(3 * time.Hour))
	ticket.Status = domain.TicketStatusResolved

	calc := NewCalculator(DefaultThresholds(), fixedClock(created.Add(20*time.Hour)))
	calc.UpdateTicketSLAStatus(ticket)

	assert.Equal(t, domain.SLAStatusOnTime, ticket.FirstResponseSLAStatus)
	assert.Equal(t, domain.SLAStatusOnTime, ticket.ResolutionSLAStatus)
}

func TestUpdateTicketSLAStatus_ClosedFreezesResolution(t *testing.T) {
	ticket := newTicket(2, 8)
	ticket.Status = domain.TicketStatusCancelled
	ticket.ResolutionSLAStatus = domain.SLAStatusOnTime

	calc := NewCalculator(DefaultThresholds(), fixedClock(created.Add(30*time.Hour)))
	calc.UpdateTicketSLAStatus(ticket)

	assert.Equal(t, domain.SLAStatusOnTime, ticket.ResolutionSLAStatus)
	assert.Equal(t, domain.SLAStatusBreached, ticket.FirstResponseSLAStatus)
}

func TestRefresh_MissingDueDate(t *testing.T) {
	calc := NewCalculator(DefaultThresholds(), nil)
	err := calc.Refresh(&domain.Ticket{ID: "broken"})
	assert.ErrorIs(t, err, ErrMissingDueDate)
}
