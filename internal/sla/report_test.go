package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/servicedesk/internal/domain"
)

type windowSource struct {
	tickets  []domain.Ticket
	from, to time.Time
}

func (s *windowSource) ListCreatedBetween(_ context.Context, from, to time.Time) ([]domain.Ticket, error) {
	s.from, s.to = from, to
	return s.tickets, nil
}

type failingReportStore struct{ calls int }

func (s *failingReportStore) SaveDailyReport(context.Context, Report) error {
	s.calls++
	return errors.New("redis unavailable")
}

func TestCompliance(t *testing.T) {
	assert.Equal(t, 100.0, Compliance(0, 0))
	assert.Equal(t, 75.0, Compliance(4, 1))
	assert.Equal(t, 0.0, Compliance(3, 3))
}

func TestWindow_PreviousCalendarDay(t *testing.T) {
	from, to := Window(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), to)
}

func TestDailyReport(t *testing.T) {
	source := &windowSource{tickets: []domain.Ticket{
		{ID: "a", FirstResponseSLAStatus: domain.SLAStatusBreached, ResolutionSLAStatus: domain.SLAStatusOnTime},
		{ID: "b", FirstResponseSLAStatus: domain.SLAStatusOnTime, ResolutionSLAStatus: domain.SLAStatusAtRisk},
		{ID: "c", FirstResponseSLAStatus: domain.SLAStatusOnTime, ResolutionSLAStatus: domain.SLAStatusOnTime},
		{ID: "d", FirstResponseSLAStatus: domain.SLAStatusOnTime, ResolutionSLAStatus: domain.SLAStatusOnTime},
	}}
	store := &failingReportStore{}
	generated := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	reporter := NewReporter(source, store, nil, fixedClock(generated))

	report, err := reporter.DailyReport(context.Background(), generated)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", report.Date)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Breached)
	assert.Equal(t, 1, report.AtRisk)
	assert.Equal(t, 75.0, report.CompliancePercent)
	assert.Equal(t, generated, report.GeneratedAt)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), source.from)
	assert.Equal(t, 1, store.calls)
}

func TestDailyReport_EmptyDay(t *testing.T) {
	reporter := NewReporter(&windowSource{}, nil, nil, nil)
	report, err := reporter.DailyReport(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Equal(t, 100.0, report.CompliancePercent)
}

func TestDailyReport_LogsSummaryOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	source := &windowSource{tickets: []domain.Ticket{
		{ID: "a", FirstResponseSLAStatus: domain.SLAStatusOnTime, ResolutionSLAStatus: domain.SLAStatusAtRisk},
	}}
	reporter := NewReporter(source, nil, zap.New(core), fixedClock(created))

	_, err := reporter.DailyReport(context.Background(), created)
	require.NoError(t, err)
	entries := logs.FilterMessage("daily sla report").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["at_risk"])
	assert.Equal(t, "100.0%", entries[0].ContextMap()["compliance"])
}
