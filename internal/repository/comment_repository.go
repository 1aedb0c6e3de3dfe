package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	ListByTicket(ctx context.Context, ticketID string, types []domain.CommentType) ([]domain.TicketComment, error)
	CountPublic(ctx context.Context, ticketID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, type, content, is_first_response, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Type,
		comment.Content,
		comment.IsFirstResponse,
		comment.CreatedAt,
	).Scan(&comment.ID, &comment.CreatedAt)
}

// ListByTicket returns comments oldest first, limited to types when given.
func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, types []domain.CommentType) ([]domain.TicketComment, error) {
	query := `
        SELECT id, ticket_id, author_id, type, content, is_first_response, created_at
        FROM ticket_comments WHERE ticket_id=$1`
	args := []any{ticketID}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		args = append(args, names)
		query += ` AND type = ANY($2)`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Type,
			&comment.Content,
			&comment.IsFirstResponse,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) CountPublic(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket_comments WHERE ticket_id=$1 AND type='public'`, ticketID).Scan(&count)
	return count, err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ticket_comments WHERE id=$1`, id)
	return err
}
