package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NoteStore persists notes and their category relationships.
type NoteStore struct {
	db *sql.DB
}

// Create inserts a new note.
func (s *NoteStore) Create(ctx context.Context, n *Note) error {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, n.UserID, n.CreatedAt.Unix(), n.UpdatedAt.Unix(),
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

// GetByID fetches a note by primary key.
func (s *NoteStore) GetByID(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, user_id, created_at, updated_at
		 FROM notes WHERE id = ?`, id)
	return scanNote(row)
}

// List returns all notes in insertion order.
func (s *NoteStore) List(ctx context.Context) ([]Note, error) {
	return s.queryNotes(ctx,
		`SELECT id, title, content, user_id, created_at, updated_at
		 FROM notes ORDER BY rowid`)
}

// ListByCategory returns all notes tagged with the given category,
// in insertion order.
func (s *NoteStore) ListByCategory(ctx context.Context, categoryID string) ([]Note, error) {
	return s.queryNotes(ctx,
		`SELECT n.id, n.title, n.content, n.user_id, n.created_at, n.updated_at
		 FROM notes n
		 JOIN note_categories nc ON nc.note_id = n.id
		 WHERE nc.category_id = ?
		 ORDER BY n.rowid`, categoryID)
}

// SearchTitle returns notes whose title contains q as an exact,
// case-sensitive substring. instr() is used instead of LIKE because
// LIKE is case-insensitive for ASCII in SQLite.
func (s *NoteStore) SearchTitle(ctx context.Context, q string) ([]Note, error) {
	return s.queryNotes(ctx,
		`SELECT id, title, content, user_id, created_at, updated_at
		 FROM notes WHERE instr(title, ?) > 0 ORDER BY rowid`, q)
}

// Update rewrites a note's title and content. The id and owner are never
// touched. Returns ErrNotFound when the note does not exist.
func (s *NoteStore) Update(ctx context.Context, id, title, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title, content, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update note rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a note and its category join rows in one transaction.
// Returns ErrNotFound when the note does not exist.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_categories WHERE note_id = ?`, id); err != nil {
			return mapConstraintErr(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return mapConstraintErr(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete note rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Tag attaches a category to a note. Tagging twice is a no-op.
func (s *NoteStore) Tag(ctx context.Context, noteID, categoryID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO note_categories (note_id, category_id) VALUES (?, ?)`,
		noteID, categoryID,
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

// Untag removes a category from a note.
func (s *NoteStore) Untag(ctx context.Context, noteID, categoryID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM note_categories WHERE note_id = ? AND category_id = ?`,
		noteID, categoryID,
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

// SetCategories replaces a note's category set in one transaction.
func (s *NoteStore) SetCategories(ctx context.Context, noteID string, categoryIDs []string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_categories WHERE note_id = ?`, noteID); err != nil {
			return mapConstraintErr(err)
		}
		for _, categoryID := range categoryIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO note_categories (note_id, category_id) VALUES (?, ?)`,
				noteID, categoryID); err != nil {
				return mapConstraintErr(err)
			}
		}
		return nil
	})
}

// CategoriesForNote returns the categories attached to a note, by name.
func (s *NoteStore) CategoriesForNote(ctx context.Context, noteID string) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_at
		 FROM categories c
		 JOIN note_categories nc ON nc.category_id = c.id
		 WHERE nc.note_id = ?
		 ORDER BY c.name`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query categories for note: %w", err)
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

func (s *NoteStore) queryNotes(ctx context.Context, query string, args ...any) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var createdAt, updatedAt int64
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.UserID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = time.Unix(createdAt, 0).UTC()
		n.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func scanNote(row *sql.Row) (*Note, error) {
	var n Note
	var createdAt, updatedAt int64
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.UserID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	n.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &n, nil
}
