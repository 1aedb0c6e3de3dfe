package domain

import "time"

// SLAPolicy holds the hour budgets a category promises.
type SLAPolicy struct {
	FirstResponseHours float64 `json:"firstResponseHours"`
	ResolutionHours    float64 `json:"resolutionHours"`
}

// FieldType tags the shape of a category's additional field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeBoolean  FieldType = "boolean"
)

// FieldRules are optional per-field constraints.
type FieldRules struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// CategoryField describes one requester-supplied field.
type CategoryField struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Type       FieldType   `json:"type"`
	Required   bool        `json:"required"`
	Options    []string    `json:"options,omitempty"`
	Validation *FieldRules `json:"validation,omitempty"`
}

// Category groups tickets and owns their SLA policy.
type Category struct {
	ID               string
	Name             string
	Description      string
	IsActive         bool
	SLA              SLAPolicy
	AdditionalFields []CategoryField
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CategorySnapshot freezes a category's contract on a ticket at creation.
type CategorySnapshot struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	SLA              SLAPolicy       `json:"sla"`
	AdditionalFields []CategoryField `json:"additionalFields"`
}
