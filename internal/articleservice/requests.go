package articleservice

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/slug"
)

const maxTitleLen = 200

// CreateRequest describes a new article. An empty Slug is derived from
// Title.
type CreateRequest struct {
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// UpdateRequest replaces every mutable field of an article. IfMatch, when
// set, must equal the current version.
type UpdateRequest struct {
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
	IfMatch  string  `json:"-"`
}

type fields struct {
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

func (f *fields) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	if f.Slug == "" {
		f.Slug = slug.Derive(f.Title)
	}
	if f.ParentID != nil {
		p := strings.TrimSpace(*f.ParentID)
		if p == "" {
			f.ParentID = nil
		} else {
			f.ParentID = &p
		}
	}
}

var errSlugFormat = errors.New("must contain only lowercase letters, digits and single hyphens")

func (f *fields) validate() error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&f.Slug,
			validation.Required.Error("cannot be derived from the title"),
			validation.By(func(any) error {
				if f.Slug != "" && !slug.Valid(f.Slug) {
					return errSlugFormat
				}
				return nil
			}),
		),
		validation.Field(&f.Content, validation.Required),
	)
	return apperr.FromValidation(err)
}

func prepare(f fields) (fields, error) {
	f.normalize()
	if err := f.validate(); err != nil {
		return f, err
	}
	return f, nil
}
