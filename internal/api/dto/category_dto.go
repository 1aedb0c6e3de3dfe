package dto

import "github.com/spec-kit/servicedesk/internal/domain"

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name             string                 `json:"name" validate:"required,max=100"`
	Description      string                 `json:"description"`
	SLA              SLAPolicyRequest       `json:"sla"`
	AdditionalFields []domain.CategoryField `json:"additional_fields"`
}

// SLAPolicyRequest carries hour budgets. Minimums are checked by the service.
type SLAPolicyRequest struct {
	FirstResponseHours float64 `json:"first_response_hours" validate:"gt=0"`
	ResolutionHours    float64 `json:"resolution_hours" validate:"gt=0"`
}

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	IsActive         bool                   `json:"is_active"`
	SLA              domain.SLAPolicy       `json:"sla"`
	AdditionalFields []domain.CategoryField `json:"additional_fields"`
}

// NewCategoryResponse maps a category.
func NewCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		IsActive:         c.IsActive,
		SLA:              c.SLA,
		AdditionalFields: c.AdditionalFields,
	}
}
