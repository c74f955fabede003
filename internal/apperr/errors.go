// Package apperr holds the error taxonomy shared by every arbor surface.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrParentNotFound = errors.New("parent article not found")
	ErrDuplicateSlug  = errors.New("an article with this slug already exists")
	ErrHasChildren    = errors.New("cannot delete article with child articles")
	ErrCycle          = errors.New("parent assignment creates a hierarchy cycle")
	ErrConflict       = errors.New("conflict")
	ErrDanglingParent = errors.New("parent reference does not resolve")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), joinFields(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
