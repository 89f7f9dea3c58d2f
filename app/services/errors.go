package services

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/app/repositories"
	"github.com/shashiranjanraj/krishimitra/pkg/validate"
)

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrStorageUnavailable = repositories.ErrStorageUnavailable
)

// ValidationError is a user-correctable input problem. Message is shown to
// the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type fieldMessage struct {
	field   string
	message string
}

// formError collapses tag failures into the one message a form shows: any
// blank field wins, then the first failing field in order.
func formError(fails []validate.Failure, order []fieldMessage) error {
	if len(fails) == 0 {
		return nil
	}
	failed := make(map[string]bool, len(fails))
	for _, f := range fails {
		if f.Rule == "notblank" {
			return invalid("form", MsgRequiredFields)
		}
		failed[f.Field] = true
	}
	for _, fm := range order {
		if failed[fm.field] {
			return invalid(fm.field, fm.message)
		}
	}
	return invalid(fails[0].Field, MsgRequiredFields)
}

// NotifyError reports a listing that was stored but whose merchant could not
// be notified.
type NotifyError struct {
	Listing *models.Listing
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("listing %d stored, merchant not notified: %v", e.Listing.ID, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// ErrUploadNotFound hides whether an upload is missing or belongs to
// someone else.
var ErrUploadNotFound = errors.New("upload not found")
