// Package apperror defines the domain errors shared by every layer.
//
// Each constructor returns an *AppError whose Err field is one of the sentinel
// values below. Callers test the category with errors.Is and read the
// human-readable text with errors.As:
//
//	if errors.Is(err, apperror.ErrResolution) { ... }
//
// The HTTP layer maps categories to status codes (see handler/response.go);
// nothing below this package knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrParse marks a malformed ingredient line.
	ErrParse = errors.New("parse error")
	// ErrResolution marks an ingredient description with no food match.
	ErrResolution = errors.New("resolution error")
	// ErrUnavailable marks a failed call to the food or meal store.
	ErrUnavailable = errors.New("repository unavailable")
)

// IngredientFormat is the expected shape of one ingredient line.
const IngredientFormat = "<grams>g <description>, e.g. 150g chicken breast"

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure (driver error, etc.)
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// FoodNotFound reports that no food in the repository matches a description.
func FoodNotFound(description string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("no food matches %q", description),
		Field:   "description",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// ParseFailed reports an ingredient line that does not follow IngredientFormat.
// The offending line is quoted verbatim in the message.
func ParseFailed(line string) *AppError {
	return &AppError{
		Err:     ErrParse,
		Message: fmt.Sprintf("could not parse ingredient %q: expected %s", line, IngredientFormat),
		Field:   "ingredients",
	}
}

// ResolutionFailed reports an ingredient whose description has no database match.
func ResolutionFailed(description string) *AppError {
	return &AppError{
		Err:     ErrResolution,
		Message: fmt.Sprintf("no database match found for %q", description),
		Field:   "ingredients",
	}
}

// Unavailable wraps a storage failure. op describes what was being attempted,
// e.g. "searching foods". The cause stays reachable through errors.Is/As.
func Unavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("repository unavailable while %s", op),
		Cause:   cause,
	}
}
