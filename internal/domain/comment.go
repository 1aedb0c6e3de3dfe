package domain

import "time"

// CommentType differentiates between replies, notes and system entries.
type CommentType string

const (
	CommentTypePublic   CommentType = "public"
	CommentTypeInternal CommentType = "internal"
	CommentTypeSystem   CommentType = "system"
)

// Valid reports whether t is a known comment type.
func (t CommentType) Valid() bool {
	switch t {
	case CommentTypePublic, CommentTypeInternal, CommentTypeSystem:
		return true
	}
	return false
}

// TicketComment captures communications in a ticket thread.
type TicketComment struct {
	ID              string
	TicketID        string
	AuthorID        string
	Type            CommentType
	Content         string
	IsFirstResponse bool
	CreatedAt       time.Time
}
