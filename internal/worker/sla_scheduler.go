package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/sla"
)

// Sweeper runs one SLA monitor pass.
type Sweeper interface {
	Sweep(ctx context.Context) (sla.SweepResult, error)
}

// DailyReporter produces the compliance report for the day before reference.
type DailyReporter interface {
	DailyReport(ctx context.Context, reference time.Time) (sla.Report, error)
}

// SLAScheduler drives the SLA monitor and the daily report on cron schedules.
type SLAScheduler struct {
	cron     *cron.Cron
	monitor  Sweeper
	reporter DailyReporter
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSLAScheduler registers the jobs described by cfg. A disabled monitor
// registers only the report.
func NewSLAScheduler(cfg config.SLAConfig, monitor Sweeper, reporter DailyReporter, logger *zap.Logger) (*SLAScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger.Sugar()}
	s := &SLAScheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		monitor:  monitor,
		reporter: reporter,
		timeout:  cfg.SweepTimeout(),
		logger:   logger,
		now:      time.Now,
	}
	if cfg.MonitorEnabled && monitor != nil {
		if _, err := s.cron.AddFunc(cfg.MonitorSchedule, s.runSweep); err != nil {
			return nil, fmt.Errorf("invalid SLA_MONITOR_SCHEDULE %q: %w", cfg.MonitorSchedule, err)
		}
	}
	if reporter != nil {
		if _, err := s.cron.AddFunc(cfg.ReportSchedule, s.runReport); err != nil {
			return nil, fmt.Errorf("invalid SLA_REPORT_SCHEDULE %q: %w", cfg.ReportSchedule, err)
		}
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *SLAScheduler) Start() {
	s.cron.Start()
	s.logger.Info("sla scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first.
func (s *SLAScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("sla scheduler stop timed out")
	}
}

func (s *SLAScheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.monitor.Sweep(ctx)
	switch {
	case err == nil:
	case errors.Is(err, sla.ErrSweepInProgress):
		s.logger.Debug("sla sweep skipped, previous pass still running")
	default:
		s.logger.Error("sla sweep failed", zap.Error(err))
	}
}

func (s *SLAScheduler) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.reporter.DailyReport(ctx, s.now()); err != nil {
		s.logger.Error("daily sla report failed", zap.Error(err))
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
