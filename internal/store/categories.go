package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CategoryStore persists categories. Categories are shared across users:
// no method here takes an owner.
type CategoryStore struct {
	db *sql.DB
}

// Create inserts a new category. A duplicate name returns ErrConflict.
func (s *CategoryStore) Create(ctx context.Context, c *Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt.Unix(),
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

// GetByID fetches a category by primary key.
func (s *CategoryStore) GetByID(ctx context.Context, id string) (*Category, error) {
	var c Category
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

// List returns all categories in insertion order.
func (s *CategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// Update renames a category. A duplicate name returns ErrConflict;
// a missing category returns ErrNotFound.
func (s *CategoryStore) Update(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a category. Join rows are intentionally not cleared first:
// deleting a category still attached to notes violates the foreign key and
// returns ErrConstraint, which callers surface as a retryable failure.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
