package news

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation addresses an id absent from the store.
var ErrNotFound = errors.New("article not found")

// ErrConflictRetry is returned after a read-modify-write exhausted its bounded
// retries against concurrent updates of the same article.
var ErrConflictRetry = errors.New("conflicting concurrent update")

// ValidationError rejects a draft before any mutation is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
