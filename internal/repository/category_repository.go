package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ErrDuplicateCategoryName is returned by Create when the name is taken.
var ErrDuplicateCategoryName = errors.New("category name already exists")

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, is_active, sla, additional_fields)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	fields := category.AdditionalFields
	if fields == nil {
		fields = []domain.CategoryField{}
	}
	err := r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.IsActive,
		category.SLA,
		fields,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if isUniqueViolation(err, "name") {
		return ErrDuplicateCategoryName
	}
	return err
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, is_active, sla, additional_fields, created_at, updated_at
        FROM categories WHERE id=$1`
	return scanCategory(r.pool.QueryRow(ctx, query, id))
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, name, description, is_active, sla, additional_fields, created_at, updated_at
        FROM categories WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.IsActive,
		&category.SLA,
		&category.AdditionalFields,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
