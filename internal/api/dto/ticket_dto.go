package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CategoryID     string                `json:"category_id" validate:"required"`
	Title          string                `json:"title" validate:"required,max=200"`
	Description    string                `json:"description" validate:"required"`
	Priority       domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	AdditionalData map[string]any        `json:"additional_data"`
}

// StatusRequest payload for status transitions.
type StatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=open in_progress pending_customer pending_vendor resolved closed cancelled"`
}

// AssignRequest payload.
type AssignRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// CommentRequest payload.
type CommentRequest struct {
	Content string             `json:"content" validate:"required"`
	Type    domain.CommentType `json:"type" validate:"omitempty,oneof=public internal"`
}

// updateFieldNames maps request keys to the names the ticket service edits.
var updateFieldNames = map[string]string{
	"title":           "title",
	"description":     "description",
	"priority":        "priority",
	"additional_data": "additionalData",
}

// NormalizeUpdate renames known keys of a PATCH body. Unknown keys pass
// through so the service can reject them by name.
func NormalizeUpdate(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for key, value := range body {
		if mapped, ok := updateFieldNames[key]; ok {
			out[mapped] = value
			continue
		}
		out[key] = value
	}
	return out
}

// TicketResponse is the full ticket view including SLA state.
type TicketResponse struct {
	ID                     string                `json:"id"`
	TicketNumber           string                `json:"ticket_number"`
	RequesterID            string                `json:"requester_id"`
	CategoryID             string                `json:"category_id"`
	CategoryName           string                `json:"category_name"`
	AssignedAgentID        *string               `json:"assigned_agent_id"`
	Title                  string                `json:"title"`
	Description            string                `json:"description"`
	Status                 domain.TicketStatus   `json:"status"`
	Priority               domain.TicketPriority `json:"priority"`
	AdditionalData         map[string]any        `json:"additional_data"`
	FirstResponseDue       time.Time             `json:"first_response_due"`
	ResolutionDue          time.Time             `json:"resolution_due"`
	FirstResponseAt        *time.Time            `json:"first_response_at"`
	ResolvedAt             *time.Time            `json:"resolved_at"`
	FirstResponseSLAStatus domain.SLAStatus      `json:"first_response_sla_status"`
	ResolutionSLAStatus    domain.SLAStatus      `json:"resolution_sla_status"`
	Version                int                   `json:"version"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                     t.ID,
		TicketNumber:           t.TicketNumber,
		RequesterID:            t.RequesterID,
		CategoryID:             t.CategoryID,
		CategoryName:           t.CategorySnapshot.Name,
		AssignedAgentID:        t.AssignedAgentID,
		Title:                  t.Title,
		Description:            t.Description,
		Status:                 t.Status,
		Priority:               t.Priority,
		AdditionalData:         t.AdditionalData,
		FirstResponseDue:       t.FirstResponseDue,
		ResolutionDue:          t.ResolutionDue,
		FirstResponseAt:        t.FirstResponseAt,
		ResolvedAt:             t.ResolvedAt,
		FirstResponseSLAStatus: t.FirstResponseSLAStatus,
		ResolutionSLAStatus:    t.ResolutionSLAStatus,
		Version:                t.Version,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID              string             `json:"id"`
	TicketID        string             `json:"ticket_id"`
	AuthorID        string             `json:"author_id"`
	Type            domain.CommentType `json:"type"`
	Content         string             `json:"content"`
	IsFirstResponse bool               `json:"is_first_response"`
	CreatedAt       time.Time          `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.TicketComment) CommentResponse {
	return CommentResponse{
		ID:              c.ID,
		TicketID:        c.TicketID,
		AuthorID:        c.AuthorID,
		Type:            c.Type,
		Content:         c.Content,
		IsFirstResponse: c.IsFirstResponse,
		CreatedAt:       c.CreatedAt,
	}
}
