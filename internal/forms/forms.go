// Package forms provides structural validation for user-submitted form
// fields. Validation here is independent of persistence: a form that
// passes may still be rejected by a unique constraint.
package forms

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator and translates its errors into
// per-field messages suitable for re-rendering a form.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Errors maps a form field name to a user-facing message. A nil or empty
// map means the form is valid.
type Errors map[string]string

// Validate runs struct validation and returns per-field errors keyed by
// the struct field name.
func (v *Validator) Validate(form any) Errors {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{"form": "invalid submission"}
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "eqfield":
		return "Passwords must match."
	default:
		return "Invalid value."
	}
}

// RegisterForm carries the fields of the account registration form.
type RegisterForm struct {
	Email     string `validate:"required,max=64,email"`
	Username  string `validate:"required,max=64"`
	Password  string `validate:"required,eqfield=Password2"`
	Password2 string `validate:"required"`
}

func ParseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
}

// LoginForm carries the fields of the login form. Remember is optional
// and absent means false.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Remember bool
}

func ParseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Remember: r.PostFormValue("remember") != "",
	}
}

// NoteForm carries the fields of the note create/edit form.
type NoteForm struct {
	Title      string `validate:"required,max=500"`
	Content    string `validate:"required,max=10000"`
	Categories []string
}

func ParseNoteForm(r *http.Request) NoteForm {
	// PostFormValue parses the body, after which PostForm holds the
	// repeated categories values.
	title := strings.TrimSpace(r.PostFormValue("title"))
	return NoteForm{
		Title:      title,
		Content:    r.PostFormValue("content"),
		Categories: r.PostForm["categories"],
	}
}

// CategoryForm carries the single field of the category create/edit form.
type CategoryForm struct {
	Name string `validate:"required,max=100"`
}

func ParseCategoryForm(r *http.Request) CategoryForm {
	return CategoryForm{Name: strings.TrimSpace(r.PostFormValue("name"))}
}

// SearchForm carries the search query. The handler treats a missing
// query as "show everything", so Query is validated only when the form
// is submitted through the search page itself.
type SearchForm struct {
	Query string `validate:"required"`
}

func ParseSearchForm(r *http.Request) SearchForm {
	return SearchForm{Query: r.FormValue("q")}
}
