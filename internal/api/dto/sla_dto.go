package dto

import "github.com/spec-kit/servicedesk/internal/sla"

// ReportQuery selects a stored daily report.
type ReportQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SweepResponse summarizes a manual monitor pass.
type SweepResponse struct {
	Scanned  int `json:"scanned"`
	Updated  int `json:"updated"`
	AtRisk   int `json:"at_risk"`
	Breaches int `json:"breaches"`
	Stale    int `json:"stale"`
	Failed   int `json:"failed"`
}

// NewSweepResponse maps a sweep result.
func NewSweepResponse(r sla.SweepResult) SweepResponse {
	return SweepResponse{
		Scanned:  r.Scanned,
		Updated:  r.UpdatedCount,
		AtRisk:   r.AtRisk,
		Breaches: len(r.BreachEvents),
		Stale:    r.Stale,
		Failed:   r.Failed,
	}
}
