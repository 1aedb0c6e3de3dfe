package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// Sweeper runs one SLA monitor pass.
type Sweeper interface {
	Sweep(ctx context.Context) (sla.SweepResult, error)
}

// ReportReader loads stored daily reports. An empty date means the latest.
type ReportReader interface {
	DailyReport(ctx context.Context, date string) (sla.Report, bool, error)
}

// SLAHandler exposes manual sweeps and the daily compliance report.
type SLAHandler struct {
	monitor Sweeper
	reports ReportReader
}

// NewSLAHandler constructs handler.
func NewSLAHandler(monitor Sweeper, reports ReportReader) *SLAHandler {
	return &SLAHandler{monitor: monitor, reports: reports}
}

// Sweep POST /sla/sweep.
func (h *SLAHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.monitor.Sweep(c.UserContext())
	if errors.Is(err, sla.ErrSweepInProgress) {
		return apperrors.NewConflict("an SLA sweep is already running", nil)
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewSweepResponse(result)})
}

// Report GET /sla/report?date=YYYY-MM-DD.
func (h *SLAHandler) Report(c *fiber.Ctx) error {
	var query dto.ReportQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(query); err != nil {
		return err
	}
	report, found, err := h.reports.DailyReport(c.UserContext(), query.Date)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !found {
		details := map[string]any{}
		if query.Date != "" {
			details["date"] = query.Date
		}
		return apperrors.NewNotFound("sla report", details)
	}
	return c.JSON(fiber.Map{"data": report})
}
