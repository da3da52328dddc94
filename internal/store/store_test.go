package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/kuitang/noteboard/internal/testdb"
)

var testSeq atomic.Uint64

func newTestStore(t testing.TB) *Store {
	t.Helper()
	database, err := testdb.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return New(database)
}

func mustCreateUser(t testing.TB, s *Store, username string) *User {
	t.Helper()
	n := testSeq.Add(1)
	u := &User{
		ID:           uuid.NewString(),
		Email:        fmt.Sprintf("%s-%d@example.com", username, n),
		Username:     fmt.Sprintf("%s-%d", username, n),
		PasswordHash: "$argon2id$test",
	}
	if err := s.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func mustCreateNote(t testing.TB, s *Store, userID, title, content string) *Note {
	t.Helper()
	n := &Note{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
		UserID:  userID,
	}
	if err := s.Notes.Create(context.Background(), n); err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return n
}

func mustCreateCategory(t testing.TB, s *Store, name string) *Category {
	t.Helper()
	c := &Category{ID: uuid.NewString(), Name: name}
	if err := s.Categories.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	return c
}

// =============================================================================
// Users
// =============================================================================

func TestUserStore_CreateAndLookup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")

	byID, err := s.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	byEmail, err := s.Users.GetByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	byUsername, err := s.Users.GetByUsername(ctx, u.Username)
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if byID.ID != u.ID || byEmail.ID != u.ID || byUsername.ID != u.ID {
		t.Fatal("lookups returned different users")
	}
	if byID.PasswordHash != u.PasswordHash {
		t.Fatal("password hash did not round-trip")
	}
}

func TestUserStore_DuplicateEmailAndUsernameConflict(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")

	dupEmail := &User{ID: uuid.NewString(), Email: u.Email, Username: "otheruser", PasswordHash: "h"}
	if err := s.Users.Create(ctx, dupEmail); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}

	dupUsername := &User{ID: uuid.NewString(), Email: "other@example.com", Username: u.Username, PasswordHash: "h"}
	if err := s.Users.Create(ctx, dupUsername); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username: got %v, want ErrConflict", err)
	}
}

func TestUserStore_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Users.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := s.Users.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// =============================================================================
// Notes
// =============================================================================

func TestNoteStore_CRUDRoundtrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	n := mustCreateNote(t, s, u.ID, "My Title", "Some content")

	got, err := s.Notes.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "My Title" || got.Content != "Some content" || got.UserID != u.ID {
		t.Fatalf("note mismatch: %+v", got)
	}

	if err := s.Notes.Update(ctx, n.ID, "New Title", "New content"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err = s.Notes.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetByID after update failed: %v", err)
	}
	if got.Title != "New Title" || got.Content != "New content" {
		t.Fatalf("update did not apply: %+v", got)
	}
	if got.ID != n.ID || got.UserID != u.ID {
		t.Fatal("update must preserve id and owner")
	}

	if err := s.Notes.Delete(ctx, n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Notes.GetByID(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestNoteStore_UpdateAndDeleteMissingNote(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Notes.Update(ctx, "missing", "t", "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing: got %v, want ErrNotFound", err)
	}
	if err := s.Notes.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing: got %v, want ErrNotFound", err)
	}
}

func TestNoteStore_ListInsertionOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	var ids []string
	for i := 0; i < 5; i++ {
		n := mustCreateNote(t, s, u.ID, fmt.Sprintf("note %d", i), "c")
		ids = append(ids, n.ID)
	}

	notes, err := s.Notes.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != len(ids) {
		t.Fatalf("List length mismatch: got=%d want=%d", len(notes), len(ids))
	}
	for i, n := range notes {
		if n.ID != ids[i] {
			t.Fatalf("insertion order violated at %d: got=%s want=%s", i, n.ID, ids[i])
		}
	}
}

func testNoteStore_SearchTitleExactSubstring(t *rapid.T, s *Store, userID string) {
	ctx := context.Background()

	title := rapid.StringMatching(`[A-Za-z0-9 ]{1,40}`).Draw(t, "title")
	n := &Note{ID: uuid.NewString(), Title: title, Content: "c", UserID: userID}
	if err := s.Notes.Create(ctx, n); err != nil {
		t.Fatalf("create note failed: %v", err)
	}

	// Any substring of the title must match.
	start := rapid.IntRange(0, len(title)-1).Draw(t, "start")
	end := rapid.IntRange(start+1, len(title)).Draw(t, "end")
	q := title[start:end]

	results, err := s.Notes.SearchTitle(ctx, q)
	if err != nil {
		t.Fatalf("SearchTitle failed: %v", err)
	}
	found := false
	for _, r := range results {
		if r.ID == n.ID {
			found = true
		}
		if !strings.Contains(r.Title, q) {
			t.Fatalf("result %q does not contain query %q", r.Title, q)
		}
	}
	if !found {
		t.Fatalf("note with title %q not found for substring %q", title, q)
	}
}

func TestNoteStore_SearchTitleExactSubstring(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	u := mustCreateUser(t, s, "alice")
	rapid.Check(t, func(t *rapid.T) { testNoteStore_SearchTitleExactSubstring(t, s, u.ID) })
}

func TestNoteStore_SearchTitleCaseSensitive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	mustCreateNote(t, s, u.ID, "Grocery List", "c")

	results, err := s.Notes.SearchTitle(ctx, "grocery")
	if err != nil {
		t.Fatalf("SearchTitle failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("lowercase query must not match capitalized title, got %d results", len(results))
	}

	results, err = s.Notes.SearchTitle(ctx, "Grocery")
	if err != nil {
		t.Fatalf("SearchTitle failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("exact-case query should match, got %d results", len(results))
	}
}

// =============================================================================
// Categories and the join table
// =============================================================================

func TestCategoryStore_CRUDAndConflict(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	c := mustCreateCategory(t, s, "work")

	dup := &Category{ID: uuid.NewString(), Name: "work"}
	if err := s.Categories.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate name: got %v, want ErrConflict", err)
	}

	if err := s.Categories.Update(ctx, c.ID, "personal"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := s.Categories.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "personal" {
		t.Fatalf("rename did not apply: %+v", got)
	}

	if err := s.Categories.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Categories.GetByID(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestCategoryStore_DeleteBlockedWhileAttached(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	n := mustCreateNote(t, s, u.ID, "t", "c")
	c := mustCreateCategory(t, s, "work")

	if err := s.Notes.Tag(ctx, n.ID, c.ID); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}

	if err := s.Categories.Delete(ctx, c.ID); !errors.Is(err, ErrConstraint) {
		t.Fatalf("delete of attached category: got %v, want ErrConstraint", err)
	}

	// The category must survive the failed delete.
	if _, err := s.Categories.GetByID(ctx, c.ID); err != nil {
		t.Fatalf("category should still exist: %v", err)
	}

	if err := s.Notes.Untag(ctx, n.ID, c.ID); err != nil {
		t.Fatalf("Untag failed: %v", err)
	}
	if err := s.Categories.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete after untag should succeed: %v", err)
	}
}

func TestNoteStore_TagSetCategoriesAndListByCategory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice")
	n1 := mustCreateNote(t, s, u.ID, "first", "c")
	n2 := mustCreateNote(t, s, u.ID, "second", "c")
	work := mustCreateCategory(t, s, "work")
	home := mustCreateCategory(t, s, "home")

	if err := s.Notes.SetCategories(ctx, n1.ID, []string{work.ID, home.ID}); err != nil {
		t.Fatalf("SetCategories failed: %v", err)
	}
	if err := s.Notes.Tag(ctx, n2.ID, work.ID); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	// Tagging twice is a no-op.
	if err := s.Notes.Tag(ctx, n2.ID, work.ID); err != nil {
		t.Fatalf("double Tag failed: %v", err)
	}

	workNotes, err := s.Notes.ListByCategory(ctx, work.ID)
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	if len(workNotes) != 2 {
		t.Fatalf("expected 2 work notes, got %d", len(workNotes))
	}

	cats, err := s.Notes.CategoriesForNote(ctx, n1.ID)
	if err != nil {
		t.Fatalf("CategoriesForNote failed: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories on n1, got %d", len(cats))
	}

	// Replacing the set drops what is no longer listed.
	if err := s.Notes.SetCategories(ctx, n1.ID, []string{home.ID}); err != nil {
		t.Fatalf("SetCategories replace failed: %v", err)
	}
	cats, err = s.Notes.CategoriesForNote(ctx, n1.ID)
	if err != nil {
		t.Fatalf("CategoriesForNote failed: %v", err)
	}
	if len(cats) != 1 || cats[0].ID != home.ID {
		t.Fatalf("SetCategories did not replace: %+v", cats)
	}

	// Deleting a note clears its join rows, making its categories deletable.
	if err := s.Notes.Delete(ctx, n1.ID); err != nil {
		t.Fatalf("note delete failed: %v", err)
	}
	if err := s.Categories.Delete(ctx, home.ID); err != nil {
		t.Fatalf("category delete after note delete should succeed: %v", err)
	}
}
