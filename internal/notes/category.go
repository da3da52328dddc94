package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/noteboard/internal/errs"
	"github.com/kuitang/noteboard/internal/store"
)

// CategoryService handles category CRUD. Unlike notes, categories carry no
// ownership: any authenticated user may edit or delete any category.
type CategoryService struct {
	categories *store.CategoryStore
}

func NewCategoryService(categories *store.CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

// List returns all categories in insertion order.
func (s *CategoryService) List(ctx context.Context) ([]store.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list categories", err)
	}
	return cats, nil
}

// Get returns a single category by ID.
func (s *CategoryService) Get(ctx context.Context, id string) (*store.Category, error) {
	cat, err := s.categories.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.New(errs.NotFound, "category not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "get category", err)
	}
	return cat, nil
}

// Create persists a new category. Duplicate names are rejected by the
// unique constraint.
func (s *CategoryService) Create(ctx context.Context, name string) (*store.Category, error) {
	cat := &store.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	err := s.categories.Create(ctx, cat)
	if errors.Is(err, store.ErrConflict) {
		return nil, errs.New(errs.Conflict, "A category with that name already exists.")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "create category", err)
	}
	return cat, nil
}

// Edit renames a category.
func (s *CategoryService) Edit(ctx context.Context, id, name string) error {
	err := s.categories.Update(ctx, id, name)
	if errors.Is(err, store.ErrNotFound) {
		return errs.New(errs.NotFound, "category not found")
	}
	if errors.Is(err, store.ErrConflict) {
		return errs.New(errs.Conflict, "A category with that name already exists.")
	}
	if err != nil {
		return errs.Wrap(errs.Internal, "update category", err)
	}
	return nil
}

// Delete removes a category. A category still attached to notes cannot be
// deleted; the foreign key violation surfaces as a retryable failure and
// the category is left intact.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	err := s.categories.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errs.New(errs.NotFound, "category not found")
	}
	if errors.Is(err, store.ErrConstraint) {
		return errs.Wrap(errs.FailedPrecondition, "category deletion failed", err)
	}
	if err != nil {
		return errs.Wrap(errs.Internal, "delete category", err)
	}
	return nil
}
