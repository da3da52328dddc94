package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/kuitang/noteboard/internal/auth"
	"github.com/kuitang/noteboard/internal/errs"
	"github.com/kuitang/noteboard/internal/forms"
	"github.com/kuitang/noteboard/internal/notes"
	"github.com/kuitang/noteboard/internal/obs"
	"github.com/kuitang/noteboard/internal/store"
)

// Handler provides the HTTP handlers for every page.
type Handler struct {
	renderer   *Renderer
	validator  *forms.Validator
	users      *auth.UserService
	sessions   *auth.SessionService
	notes      *notes.Service
	categories *notes.CategoryService
}

func NewHandler(
	renderer *Renderer,
	users *auth.UserService,
	sessions *auth.SessionService,
	noteService *notes.Service,
	categoryService *notes.CategoryService,
) *Handler {
	return &Handler{
		renderer:   renderer,
		validator:  forms.NewValidator(),
		users:      users,
		sessions:   sessions,
		notes:      noteService,
		categories: categoryService,
	}
}

// RegisterRoutes registers all routes on the given mux. loginGuard rate
// limits the credential-accepting endpoints; pass nil to disable.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware, loginGuard func(http.Handler) http.Handler) {
	guard := func(next http.Handler) http.Handler { return next }
	if loginGuard != nil {
		guard = loginGuard
	}

	mux.Handle("GET /{$}", mw.OptionalAuth(http.HandlerFunc(h.HandleHome)))

	mux.Handle("GET /register", mw.OptionalAuth(http.HandlerFunc(h.HandleRegisterPage)))
	mux.Handle("POST /register", guard(mw.OptionalAuth(http.HandlerFunc(h.HandleRegister))))
	mux.Handle("GET /login", mw.OptionalAuth(http.HandlerFunc(h.HandleLoginPage)))
	mux.Handle("POST /login", guard(mw.OptionalAuth(http.HandlerFunc(h.HandleLogin))))
	mux.Handle("GET /logout", mw.RequireAuth(http.HandlerFunc(h.HandleLogout)))

	mux.Handle("GET /notes", mw.OptionalAuth(http.HandlerFunc(h.HandleNotesList)))
	mux.Handle("GET /add_note", mw.RequireAuth(http.HandlerFunc(h.HandleAddNotePage)))
	mux.Handle("POST /add_note", mw.RequireAuth(http.HandlerFunc(h.HandleAddNote)))
	mux.Handle("GET /notes/edit/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleEditNotePage)))
	mux.Handle("POST /notes/edit/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleEditNote)))
	// The delete routes act on both methods; links in the listing use GET.
	mux.Handle("GET /notes/delete/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleDeleteNote)))
	mux.Handle("POST /notes/delete/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleDeleteNote)))

	mux.Handle("GET /categories", mw.OptionalAuth(http.HandlerFunc(h.HandleCategoriesList)))
	mux.Handle("GET /add_categories", mw.RequireAuth(http.HandlerFunc(h.HandleAddCategoryPage)))
	mux.Handle("POST /add_categories", mw.RequireAuth(http.HandlerFunc(h.HandleAddCategory)))
	mux.Handle("GET /categories/edit/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleEditCategoryPage)))
	mux.Handle("POST /categories/edit/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleEditCategory)))
	mux.Handle("GET /categories/delete/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleDeleteCategory)))
	mux.Handle("POST /categories/delete/{id}", mw.RequireAuth(http.HandlerFunc(h.HandleDeleteCategory)))

	mux.Handle("GET /search", mw.OptionalAuth(http.HandlerFunc(h.HandleSearch)))
	mux.Handle("POST /search", mw.OptionalAuth(http.HandlerFunc(h.HandleSearch)))
}

// PageData contains common data passed to all templates.
type PageData struct {
	Title        string
	User         *store.User
	FlashMessage string
	FlashType    string // "success", "error", "info"
}

// NotesListData contains data for the notes listing and search results page.
type NotesListData struct {
	PageData
	Notes []store.Note
	Query string
}

// NoteFormData contains data for the note create/edit form.
type NoteFormData struct {
	PageData
	NoteID     string
	Form       forms.NoteForm
	Errors     forms.Errors
	Categories []store.Category
	Selected   map[string]bool
}

// CategoriesListData contains data for the categories listing page.
type CategoriesListData struct {
	PageData
	Categories []store.Category
}

// CategoryFormData contains data for the category create/edit form.
type CategoryFormData struct {
	PageData
	CategoryID string
	Form       forms.CategoryForm
	Errors     forms.Errors
}

// RegisterPageData contains data for the registration form.
type RegisterPageData struct {
	PageData
	Form   forms.RegisterForm
	Errors forms.Errors
}

// LoginPageData contains data for the login form.
type LoginPageData struct {
	PageData
	Form   forms.LoginForm
	Errors forms.Errors
	Next   string
}

// pageData builds the common template data: title, pending flash, and the
// current user when one is logged in.
func (h *Handler) pageData(w http.ResponseWriter, r *http.Request, title string) PageData {
	flashType, flashMessage := PopFlash(w, r)
	data := PageData{
		Title:        title,
		FlashMessage: flashMessage,
		FlashType:    flashType,
	}
	if userID := auth.GetUserID(r.Context()); userID != "" {
		user, err := h.users.GetByID(r.Context(), userID)
		if err == nil {
			data.User = user
		}
	}
	return data
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if err := h.renderer.Render(w, name, data); err != nil {
		obs.Pkg("web").Error("render failed", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// renderServiceError maps a service error to an error page.
func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	if code == errs.Internal {
		obs.Pkg("web").Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.renderer.RenderError(w, errs.HTTPStatus(code), errs.MessageOf(err))
}

// HandleHome handles GET /.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home.html", h.pageData(w, r, "Noteboard"))
}

// HandleRegisterPage handles GET /register.
func (h *Handler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/register.html", RegisterPageData{
		PageData: h.pageData(w, r, "Register"),
	})
}

// HandleRegister handles POST /register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseRegisterForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		h.render(w, r, "auth/register.html", RegisterPageData{
			PageData: h.pageData(w, r, "Register"),
			Form:     form,
			Errors:   fieldErrs,
		})
		return
	}

	_, err := h.users.Register(r.Context(), form.Email, form.Username, form.Password)
	if errors.Is(err, auth.ErrAccountExists) {
		h.render(w, r, "auth/register.html", RegisterPageData{
			PageData: h.pageData(w, r, "Register"),
			Form:     form,
			Errors:   forms.Errors{"Email": "An account with that email or username already exists."},
		})
		return
	}
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	SetFlash(w, FlashSuccess, "You can now login.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleLoginPage handles GET /login.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/login.html", LoginPageData{
		PageData: h.pageData(w, r, "Log In"),
		Next:     r.URL.Query().Get("next"),
	})
}

// HandleLogin handles POST /login. On failure the user stays anonymous and
// sees the invalid-credentials flash; the form never reveals whether the
// email exists.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if next == "" {
		next = r.PostFormValue("next")
	}

	form := forms.ParseLoginForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		h.render(w, r, "auth/login.html", LoginPageData{
			PageData: h.pageData(w, r, "Log In"),
			Form:     form,
			Errors:   fieldErrs,
			Next:     next,
		})
		return
	}

	user, err := h.users.VerifyLogin(r.Context(), form.Email, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		SetFlash(w, FlashError, "Invalid username or password.")
		loginURL := "/login"
		if next != "" {
			loginURL += "?next=" + url.QueryEscape(next)
		}
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID, form.Remember)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.sessions.SetCookie(w, sessionID, form.Remember)

	http.Redirect(w, r, auth.SafeNextURL(next, "/notes"), http.StatusFound)
}

// HandleLogout handles GET /logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			obs.Pkg("web").Warn("session delete failed", "error", err)
		}
	}
	h.sessions.ClearCookie(w)
	SetFlash(w, FlashSuccess, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleNotesList handles GET /notes.
func (h *Handler) HandleNotesList(w http.ResponseWriter, r *http.Request) {
	all, err := h.notes.List(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, "notes/list.html", NotesListData{
		PageData: h.pageData(w, r, "Notes"),
		Notes:    all,
	})
}

// noteFormData assembles the note form page with the category checkboxes.
func (h *Handler) noteFormData(w http.ResponseWriter, r *http.Request, title, noteID string, form forms.NoteForm, fieldErrs forms.Errors) (NoteFormData, error) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		return NoteFormData{}, err
	}
	selected := make(map[string]bool, len(form.Categories))
	for _, id := range form.Categories {
		selected[id] = true
	}
	return NoteFormData{
		PageData:   h.pageData(w, r, title),
		NoteID:     noteID,
		Form:       form,
		Errors:     fieldErrs,
		Categories: cats,
		Selected:   selected,
	}, nil
}

// HandleAddNotePage handles GET /add_note.
func (h *Handler) HandleAddNotePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.noteFormData(w, r, "New Note", "", forms.NoteForm{}, nil)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, "notes/form.html", data)
}

// HandleAddNote handles POST /add_note.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseNoteForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		data, err := h.noteFormData(w, r, "New Note", "", form, fieldErrs)
		if err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		h.render(w, r, "notes/form.html", data)
		return
	}

	userID := auth.GetUserID(r.Context())
	if _, err := h.notes.Create(r.Context(), userID, form.Title, form.Content, form.Categories); err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusFound)
}

// HandleEditNotePage handles GET /notes/edit/{id}.
func (h *Handler) HandleEditNotePage(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	if note.UserID != auth.GetUserID(r.Context()) {
		SetFlash(w, FlashError, "You don't have a permission to edit this note")
		http.Redirect(w, r, "/notes", http.StatusFound)
		return
	}

	attached, err := h.notes.Categories(r.Context(), note.ID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	form := forms.NoteForm{Title: note.Title, Content: note.Content}
	for _, c := range attached {
		form.Categories = append(form.Categories, c.ID)
	}

	data, err := h.noteFormData(w, r, "Edit Note", note.ID, form, nil)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, "notes/form.html", data)
}

// HandleEditNote handles POST /notes/edit/{id}.
func (h *Handler) HandleEditNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form := forms.ParseNoteForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		data, err := h.noteFormData(w, r, "Edit Note", id, form, fieldErrs)
		if err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		h.render(w, r, "notes/form.html", data)
		return
	}

	err := h.notes.Edit(r.Context(), id, auth.GetUserID(r.Context()), form.Title, form.Content, form.Categories)
	if errs.IsCode(err, errs.PermissionDenied) {
		SetFlash(w, FlashError, errs.MessageOf(err))
		http.Redirect(w, r, "/notes", http.StatusFound)
		return
	}
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	SetFlash(w, FlashSuccess, "The note has been updated")
	http.Redirect(w, r, "/notes", http.StatusFound)
}

// HandleDeleteNote handles GET and POST /notes/delete/{id}.
func (h *Handler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	err := h.notes.Delete(r.Context(), r.PathValue("id"), auth.GetUserID(r.Context()))
	switch {
	case err == nil:
		SetFlash(w, FlashSuccess, "Note was deleted")
	case errs.IsCode(err, errs.PermissionDenied):
		SetFlash(w, FlashError, errs.MessageOf(err))
	case errs.IsCode(err, errs.NotFound):
		h.renderServiceError(w, r, err)
		return
	default:
		obs.Pkg("web").Error("note delete failed", "error", err)
		SetFlash(w, FlashError, "There was a problem deleting note. Try again")
	}
	http.Redirect(w, r, "/notes", http.StatusFound)
}

// HandleCategoriesList handles GET /categories.
func (h *Handler) HandleCategoriesList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, "categories/list.html", CategoriesListData{
		PageData:   h.pageData(w, r, "Categories"),
		Categories: cats,
	})
}

// HandleAddCategoryPage handles GET /add_categories.
func (h *Handler) HandleAddCategoryPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "categories/form.html", CategoryFormData{
		PageData: h.pageData(w, r, "New Category"),
	})
}

// HandleAddCategory handles POST /add_categories.
func (h *Handler) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseCategoryForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		h.render(w, r, "categories/form.html", CategoryFormData{
			PageData: h.pageData(w, r, "New Category"),
			Form:     form,
			Errors:   fieldErrs,
		})
		return
	}

	_, err := h.categories.Create(r.Context(), form.Name)
	if errs.IsCode(err, errs.Conflict) {
		h.render(w, r, "categories/form.html", CategoryFormData{
			PageData: h.pageData(w, r, "New Category"),
			Form:     form,
			Errors:   forms.Errors{"Name": errs.MessageOf(err)},
		})
		return
	}
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusFound)
}

// HandleEditCategoryPage handles GET /categories/edit/{id}. Categories carry
// no ownership, so any authenticated user may edit.
func (h *Handler) HandleEditCategoryPage(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categories.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, "categories/form.html", CategoryFormData{
		PageData:   h.pageData(w, r, "Edit Category"),
		CategoryID: cat.ID,
		Form:       forms.CategoryForm{Name: cat.Name},
	})
}

// HandleEditCategory handles POST /categories/edit/{id}.
func (h *Handler) HandleEditCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form := forms.ParseCategoryForm(r)
	if fieldErrs := h.validator.Validate(form); len(fieldErrs) > 0 {
		h.render(w, r, "categories/form.html", CategoryFormData{
			PageData:   h.pageData(w, r, "Edit Category"),
			CategoryID: id,
			Form:       form,
			Errors:     fieldErrs,
		})
		return
	}

	err := h.categories.Edit(r.Context(), id, form.Name)
	if errs.IsCode(err, errs.Conflict) {
		h.render(w, r, "categories/form.html", CategoryFormData{
			PageData:   h.pageData(w, r, "Edit Category"),
			CategoryID: id,
			Form:       form,
			Errors:     forms.Errors{"Name": errs.MessageOf(err)},
		})
		return
	}
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	SetFlash(w, FlashSuccess, "The category has been updated")
	http.Redirect(w, r, "/categories", http.StatusFound)
}

// HandleDeleteCategory handles GET and POST /categories/delete/{id}. A
// category still attached to notes fails deletion; the user gets a retry
// flash and the category survives.
func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.categories.Delete(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		SetFlash(w, FlashSuccess, "Category was deleted")
	case errs.IsCode(err, errs.NotFound):
		h.renderServiceError(w, r, err)
		return
	case errs.IsCode(err, errs.FailedPrecondition):
		SetFlash(w, FlashError, "There was a problem deleting note. Try again")
	default:
		obs.Pkg("web").Error("category delete failed", "error", err)
		SetFlash(w, FlashError, "There was a problem deleting note. Try again")
	}
	http.Redirect(w, r, "/categories", http.StatusFound)
}

// HandleSearch handles GET and POST /search. A present q returns the notes
// whose title contains it as a case-sensitive substring; an absent q shows
// the full listing with an informational flash.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseSearchForm(r)

	results, err := h.notes.Search(r.Context(), form.Query)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	data := NotesListData{
		PageData: h.pageData(w, r, "Search"),
		Notes:    results,
		Query:    form.Query,
	}
	if form.Query == "" {
		data.FlashType = FlashInfo
		data.FlashMessage = "No posts were found"
	}
	h.render(w, r, "notes/list.html", data)
}
