package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a guard fails before any network call
	ErrValidation = errors.New("validation failed")

	// ErrTimeout is returned when a backend call exceeds its deadline
	ErrTimeout = errors.New("request timed out")

	// ErrRemote is returned when the backend answers with a non-success status
	ErrRemote = errors.New("backend request failed")

	// ErrEmptyResult is returned when a successful response normalizes to zero products
	ErrEmptyResult = errors.New("no products found")

	// ErrBlocked is returned when the scraped site refused automated access
	ErrBlocked = errors.New("site blocked automated access")

	// ErrExport is returned when the export backend fails
	ErrExport = errors.New("export failed")

	// ErrSessionNotFound is returned when an operator session does not exist or expired
	ErrSessionNotFound = errors.New("session not found")

	// ErrProductNotFound is returned when a product id is not in the active store
	ErrProductNotFound = errors.New("product not found")
)

// Error is a pipeline failure carrying the operator-facing message.
// It unwraps to one of the sentinel kinds above.
type Error struct {
	Kind     error
	Message  string
	Endpoint string
	Status   int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewValidationError builds an ErrValidation with a formatted message
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind of err, or nil when err is not a pipeline error
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrTimeout, ErrBlocked, ErrEmptyResult,
		ErrExport, ErrRemote, ErrSessionNotFound, ErrProductNotFound,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is the short machine-readable name of a pipeline error kind
func KindName(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation"
	case ErrTimeout:
		return "timeout"
	case ErrBlocked:
		return "blocked"
	case ErrEmptyResult:
		return "empty_result"
	case ErrExport:
		return "export"
	case ErrRemote:
		return "remote"
	case ErrSessionNotFound, ErrProductNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
