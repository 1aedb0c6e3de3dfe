package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

const uniqueViolation = "23505"

var (
	// ErrDuplicateTicketNumber is returned by Create when the number is taken.
	ErrDuplicateTicketNumber = errors.New("ticket number already exists")
	// ErrStaleTicket is returned by Update when the row version moved on.
	ErrStaleTicket = errors.New("ticket was modified concurrently")
)

// TicketFilter captures list parameters. Scoping fields are combined with AND.
type TicketFilter struct {
	RequesterID *string
	// AgentScopeID limits to tickets assigned to the agent or unassigned.
	AgentScopeID    *string
	AssignedAgentID *string
	CategoryID      *string
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error)
	UpdateSLAStatuses(ctx context.Context, tickets []domain.Ticket) ([]string, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, requester_id, category_id, assigned_agent_id, title, description,
               status, priority, additional_data, first_response_due, resolution_due, first_response_at,
               resolved_at, first_response_sla_status, resolution_sla_status, category_snapshot, version,
               created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, requester_id, category_id, assigned_agent_id, title, description,
            status, priority, additional_data, first_response_due, resolution_due, first_response_sla_status,
            resolution_sla_status, category_snapshot, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
        RETURNING id, version, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.RequesterID,
		ticket.CategoryID,
		ticket.AssignedAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		additionalData(ticket.AdditionalData),
		ticket.FirstResponseDue,
		ticket.ResolutionDue,
		ticket.FirstResponseSLAStatus,
		ticket.ResolutionSLAStatus,
		ticket.CategorySnapshot,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err, "ticket_number") {
		return ErrDuplicateTicketNumber
	}
	return err
}

// Update writes every mutable field when the stored version matches and
// bumps the version on success. Due dates are never rewritten.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assigned_agent_id=$1, title=$2, description=$3, status=$4, priority=$5,
            additional_data=$6, first_response_at=$7, resolved_at=$8, first_response_sla_status=$9,
            resolution_sla_status=$10, version=version+1, updated_at=NOW()
        WHERE id=$11 AND version=$12
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.AssignedAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		additionalData(ticket.AdditionalData),
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.FirstResponseSLAStatus,
		ticket.ResolutionSLAStatus,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		exists, existsErr := r.exists(ctx, ticket.ID)
		if existsErr != nil {
			return existsErr
		}
		if exists {
			return ErrStaleTicket
		}
		return pgx.ErrNoRows
	}
	return err
}

func (r *ticketRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_number=$1)`, number).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status = ANY($1) ORDER BY created_at ASC`
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// UpdateSLAStatuses writes the two SLA status columns in a single batch.
// Rows are matched on id and version; the version is left untouched so a
// request holding the same row can still save. Unmatched ids are returned.
func (r *ticketRepository) UpdateSLAStatuses(ctx context.Context, tickets []domain.Ticket) ([]string, error) {
	if len(tickets) == 0 {
		return nil, nil
	}
	const query = `
        UPDATE tickets SET first_response_sla_status=$1, resolution_sla_status=$2
        WHERE id=$3 AND version=$4`

	batch := &pgx.Batch{}
	for i := range tickets {
		batch.Queue(query,
			tickets[i].FirstResponseSLAStatus,
			tickets[i].ResolutionSLAStatus,
			tickets[i].ID,
			tickets[i].Version,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var stale []string
	for i := range tickets {
		tag, err := results.Exec()
		if err != nil {
			return nil, fmt.Errorf("update sla status for %s: %w", tickets[i].ID, err)
		}
		if tag.RowsAffected() == 0 {
			stale = append(stale, tickets[i].ID)
		}
	}
	return stale, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AgentScopeID != nil {
		args = append(args, *filter.AgentScopeID)
		clauses = append(clauses, fmt.Sprintf("(assigned_agent_id=$%d OR assigned_agent_id IS NULL)", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(ticket_number) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.RequesterID,
		&ticket.CategoryID,
		&ticket.AssignedAgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AdditionalData,
		&ticket.FirstResponseDue,
		&ticket.ResolutionDue,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.FirstResponseSLAStatus,
		&ticket.ResolutionSLAStatus,
		&ticket.CategorySnapshot,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func additionalData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func isUniqueViolation(err error, constraintHint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraintHint == "" || strings.Contains(pgErr.ConstraintName, constraintHint)
}
