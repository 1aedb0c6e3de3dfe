// Package category holds the per-category SLA policy rules and the
// validation of requester-supplied additional fields.
package category

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const (
	// MinFirstResponseHours is the smallest first-response budget a category may define.
	MinFirstResponseHours = 0.5
	// MinResolutionHours is the smallest resolution budget a category may define.
	MinResolutionHours = 1.0
)

// ValidatePolicy checks hour budgets when a policy is defined.
func ValidatePolicy(p domain.SLAPolicy) error {
	details := map[string]any{}
	if p.FirstResponseHours < MinFirstResponseHours {
		details["firstResponseHours"] = fmt.Sprintf("must be at least %.1f hours", MinFirstResponseHours)
	}
	if p.ResolutionHours < MinResolutionHours {
		details["resolutionHours"] = fmt.Sprintf("must be at least %.0f hour", MinResolutionHours)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid SLA policy", details)
	}
	return nil
}

// DueDates adds the policy budgets to createdAt in calendar time.
// Fractional hours are honoured to the nanosecond.
func DueDates(createdAt time.Time, p domain.SLAPolicy) (firstResponseDue, resolutionDue time.Time) {
	return createdAt.Add(hoursToDuration(p.FirstResponseHours)),
		createdAt.Add(hoursToDuration(p.ResolutionHours))
}

// Snapshot copies the parts of c a ticket keeps for its whole life.
func Snapshot(c *domain.Category) domain.CategorySnapshot {
	fields := make([]domain.CategoryField, len(c.AdditionalFields))
	copy(fields, c.AdditionalFields)
	return domain.CategorySnapshot{
		ID:               c.ID,
		Name:             c.Name,
		SLA:              c.SLA,
		AdditionalFields: fields,
	}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// ValidateFieldDefinitions checks a category's additional field declarations.
func ValidateFieldDefinitions(fields []domain.CategoryField) error {
	details := map[string]any{}
	seen := map[string]bool{}
	for i, field := range fields {
		key := fmt.Sprintf("additionalFields[%d]", i)
		switch {
		case strings.TrimSpace(field.Name) == "" || strings.TrimSpace(field.Label) == "":
			details[key] = "name and label are required"
		case seen[field.Name]:
			details[key] = fmt.Sprintf("duplicate field name %q", field.Name)
		case fieldValidators[field.Type] == nil:
			details[key] = fmt.Sprintf("unsupported type %q", field.Type)
		case field.Type == domain.FieldTypeSelect && len(field.Options) == 0:
			details[key] = "select fields need options"
		}
		seen[field.Name] = true
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid additional fields", details)
	}
	return nil
}
