package apperr

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestFromValidation(t *testing.T) {
	err := FromValidation(validation.Errors{
		"title":   errors.New("cannot be blank"),
		"content": errors.New("cannot be blank"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Fields["title"] != "cannot be blank" {
		t.Errorf("title message = %q", ve.Fields["title"])
	}
	if got := err.Error(); got != "validation failed: content: cannot be blank; title: cannot be blank" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFromValidation_PassThrough(t *testing.T) {
	other := errors.New("boom")
	if got := FromValidation(other); got != other {
		t.Errorf("non-validation error should pass through, got %v", got)
	}
	if FromValidation(nil) != nil {
		t.Error("nil should stay nil")
	}
}
