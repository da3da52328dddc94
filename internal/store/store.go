// Package store implements the persistence layer as explicit repositories
// over the application database. Every method takes a context and returns
// typed errors; callers never see raw driver errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/kuitang/noteboard/internal/db"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an insert or update violates a unique constraint.
	ErrConflict = errors.New("store: conflict")

	// ErrConstraint is returned when a delete or update violates a foreign key
	// or other non-unique constraint.
	ErrConstraint = errors.New("store: constraint violation")
)

// User is a registered account. The password digest is carried as an opaque
// encoded hash; the raw password never appears anywhere in the store.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Note is a single note with exactly one owner.
type Note struct {
	ID        string
	Title     string
	Content   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category is a shared label with a unique name.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Session is an active login session.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store bundles the entity repositories over one database handle.
type Store struct {
	Users      *UserStore
	Notes      *NoteStore
	Categories *CategoryStore
	Sessions   *SessionStore

	sqlDB *sql.DB
}

// New creates the repositories over the given database.
func New(database *db.DB) *Store {
	sqlDB := database.DB()
	return &Store{
		Users:      &UserStore{db: sqlDB},
		Notes:      &NoteStore{db: sqlDB},
		Categories: &CategoryStore{db: sqlDB},
		Sessions:   &SessionStore{db: sqlDB},
		sqlDB:      sqlDB,
	}
}

// withTx runs fn in a transaction, rolling back on error.
func withTx(ctx context.Context, sqlDB *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapConstraintErr converts driver-level constraint violations into the
// store's typed errors. Anything else passes through unchanged.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintTrigger,
			sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
	}
	return err
}
