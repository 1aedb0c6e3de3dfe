package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/category"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// CategoryService manages the ticket category catalogue.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CategoryInput describes a new category.
type CategoryInput struct {
	Name             string
	Description      string
	SLA              domain.SLAPolicy
	AdditionalFields []domain.CategoryField
}

func requireManager(actor domain.Actor) error {
	if actor.Role != domain.UserRoleManager {
		return apperrors.NewForbidden("manager role required")
	}
	return nil
}

// CreateCategory validates the policy and field declarations and stores an
// active category.
func (s *CategoryService) CreateCategory(ctx context.Context, actor domain.Actor, input CategoryInput) (*domain.Category, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}
	if err := category.ValidatePolicy(input.SLA); err != nil {
		return nil, err
	}
	if err := category.ValidateFieldDefinitions(input.AdditionalFields); err != nil {
		return nil, err
	}
	fields := input.AdditionalFields
	if fields == nil {
		fields = []domain.CategoryField{}
	}
	cat := &domain.Category{
		Name:             name,
		Description:      strings.TrimSpace(input.Description),
		IsActive:         true,
		SLA:              input.SLA,
		AdditionalFields: fields,
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		if errors.Is(err, repository.ErrDuplicateCategoryName) {
			return nil, apperrors.NewConflict("category name already exists", map[string]any{"name": name})
		}
		return nil, apperrors.MapError(err)
	}
	return cat, nil
}

// ListCategories returns the active categories requesters can file against.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cats, nil
}

// GetCategory fetches one category.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return cat, nil
}
