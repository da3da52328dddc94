// Package notes implements note and category management on top of the
// persistence layer: listing, creation, owner-checked edit/delete, tagging,
// and title search.
package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/noteboard/internal/errs"
	"github.com/kuitang/noteboard/internal/store"
)

// Service handles note CRUD. Edit and delete are restricted to the note's
// owner; listing and search are open to everyone.
type Service struct {
	notes *store.NoteStore
}

func NewService(notes *store.NoteStore) *Service {
	return &Service{notes: notes}
}

// List returns all notes, unfiltered, in insertion order.
func (s *Service) List(ctx context.Context) ([]store.Note, error) {
	notes, err := s.notes.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list notes", err)
	}
	return notes, nil
}

// Get returns a single note by ID.
func (s *Service) Get(ctx context.Context, id string) (*store.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.New(errs.NotFound, "note not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "get note", err)
	}
	return note, nil
}

// Create persists a new note owned by ownerID, tagged with the given
// category IDs.
func (s *Service) Create(ctx context.Context, ownerID, title, content string, categoryIDs []string) (*store.Note, error) {
	now := time.Now().UTC()
	note := &store.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, errs.Wrap(errs.Internal, "create note", err)
	}
	if len(categoryIDs) > 0 {
		if err := s.notes.SetCategories(ctx, note.ID, categoryIDs); err != nil {
			return nil, errs.Wrap(errs.Internal, "tag note", err)
		}
	}
	return note, nil
}

// Edit updates a note's title, content, and categories. The requester must
// be the note's owner.
func (s *Service) Edit(ctx context.Context, id, requesterID, title, content string, categoryIDs []string) error {
	note, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if note.UserID != requesterID {
		return errs.New(errs.PermissionDenied, "You don't have a permission to edit this note")
	}
	if err := s.notes.Update(ctx, id, title, content); err != nil {
		return errs.Wrap(errs.Internal, "update note", err)
	}
	if err := s.notes.SetCategories(ctx, id, categoryIDs); err != nil {
		return errs.Wrap(errs.Internal, "tag note", err)
	}
	return nil
}

// Delete removes a note and its category associations. The requester must
// be the note's owner.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	note, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if note.UserID != requesterID {
		return errs.New(errs.PermissionDenied, "You don't have a permission to delete this note")
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		return errs.Wrap(errs.Internal, "delete note", err)
	}
	return nil
}

// Search returns notes whose title contains q as an exact, case-sensitive
// substring. An empty query returns the full listing.
func (s *Service) Search(ctx context.Context, q string) ([]store.Note, error) {
	if q == "" {
		return s.List(ctx)
	}
	notes, err := s.notes.SearchTitle(ctx, q)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "search notes", err)
	}
	return notes, nil
}

// Categories returns the categories attached to a note, for the edit form.
func (s *Service) Categories(ctx context.Context, noteID string) ([]store.Category, error) {
	cats, err := s.notes.CategoriesForNote(ctx, noteID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "note categories", err)
	}
	return cats, nil
}
