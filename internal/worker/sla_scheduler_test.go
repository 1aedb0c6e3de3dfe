package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/sla"
)

type countingSweeper struct {
	calls    atomic.Int32
	err      error
	deadline bool
}

func (s *countingSweeper) Sweep(ctx context.Context) (sla.SweepResult, error) {
	s.calls.Add(1)
	_, s.deadline = ctx.Deadline()
	return sla.SweepResult{}, s.err
}

type stubReporter struct {
	reference time.Time
	err       error
}

func (r *stubReporter) DailyReport(_ context.Context, reference time.Time) (sla.Report, error) {
	r.reference = reference
	return sla.Report{Date: "2024-05-05", Total: 4, Breached: 1, CompliancePercent: 75}, r.err
}

func schedulerConfig() config.SLAConfig {
	return config.SLAConfig{
		MonitorEnabled:      true,
		MonitorSchedule:     "@every 1m",
		ReportSchedule:      "0 9 * * *",
		SweepTimeoutSeconds: 5,
	}
}

func TestNewSLAScheduler_RegistersJobs(t *testing.T) {
	s, err := NewSLAScheduler(schedulerConfig(), &countingSweeper{}, &stubReporter{}, nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	cfg := schedulerConfig()
	cfg.MonitorEnabled = false
	s, err = NewSLAScheduler(cfg, &countingSweeper{}, &stubReporter{}, nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestNewSLAScheduler_RejectsBadSchedule(t *testing.T) {
	cfg := schedulerConfig()
	cfg.MonitorSchedule = "every now and then"
	_, err := NewSLAScheduler(cfg, &countingSweeper{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLA_MONITOR_SCHEDULE")
}

func TestRunSweep_BoundedAndQuietWhenBusy(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sweeper := &countingSweeper{err: sla.ErrSweepInProgress}
	s, err := NewSLAScheduler(schedulerConfig(), sweeper, nil, zap.New(core))
	require.NoError(t, err)

	s.runSweep()
	assert.EqualValues(t, 1, sweeper.calls.Load())
	assert.True(t, sweeper.deadline)
	assert.Equal(t, 0, logs.FilterLevelExact(zap.ErrorLevel).Len())

	sweeper.err = errors.New("db down")
	s.runSweep()
	assert.Equal(t, 1, logs.FilterMessage("sla sweep failed").Len())
}

func TestRunReport_UsesClock(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reporter := &stubReporter{}
	s, err := NewSLAScheduler(schedulerConfig(), nil, reporter, zap.New(core))
	require.NoError(t, err)
	fixed := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.runReport()
	assert.Equal(t, fixed, reporter.reference)
	assert.Zero(t, logs.FilterMessage("daily sla report").Len(), "the reporter logs the summary itself")

	reporter.err = errors.New("redis down")
	s.runReport()
	assert.Equal(t, 1, logs.FilterMessage("daily sla report failed").Len())
}

func TestStartStop(t *testing.T) {
	s, err := NewSLAScheduler(schedulerConfig(), &countingSweeper{}, &stubReporter{}, nil)
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
