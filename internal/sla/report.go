package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ReportSource lists tickets created inside a window.
type ReportSource interface {
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error)
}

// ReportStore keeps generated daily reports.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report Report) error
}

// Report is the daily breach and compliance summary.
type Report struct {
	Date              string    `json:"date"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	Total             int       `json:"total"`
	Breached          int       `json:"breached"`
	AtRisk            int       `json:"at_risk"`
	CompliancePercent float64   `json:"compliance_percent"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Compliance is the share of non-breached tickets, 100 when there are none.
func Compliance(total, breached int) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-breached) / float64(total) * 100
}

// Reporter builds the daily SLA report.
type Reporter struct {
	source ReportSource
	store  ReportStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReporter creates a reporter. store may be nil.
func NewReporter(source ReportSource, store ReportStore, logger *zap.Logger, clock func() time.Time) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Reporter{source: source, store: store, logger: logger, now: clock}
}

// Window returns the calendar day before reference: [yesterday 00:00, today 00:00).
func Window(reference time.Time) (time.Time, time.Time) {
	end := now.With(reference).BeginningOfDay()
	return end.AddDate(0, 0, -1), end
}

// DailyReport summarizes tickets created on the day before reference.
func (r *Reporter) DailyReport(ctx context.Context, reference time.Time) (Report, error) {
	from, to := Window(reference)
	tickets, err := r.source.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("load tickets for report: %w", err)
	}

	report := Report{
		Date:        from.Format("2006-01-02"),
		WindowStart: from,
		WindowEnd:   to,
		Total:       len(tickets),
		GeneratedAt: r.now(),
	}
	for i := range tickets {
		if tickets[i].HasBreach() {
			report.Breached++
		} else if tickets[i].HasRisk() {
			report.AtRisk++
		}
	}
	report.CompliancePercent = Compliance(report.Total, report.Breached)

	r.logger.Info("daily sla report",
		zap.String("date", report.Date),
		zap.Int("total", report.Total),
		zap.Int("breached", report.Breached),
		zap.Int("at_risk", report.AtRisk),
		zap.String("compliance", fmt.Sprintf("%.1f%%", report.CompliancePercent)))

	if r.store != nil {
		if err := r.store.SaveDailyReport(ctx, report); err != nil {
			r.logger.Warn("failed to store daily sla report", zap.String("date", report.Date), zap.Error(err))
		}
	}
	return report, nil
}
