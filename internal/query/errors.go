package query

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by id-based lookups that match no row.
var ErrNotFound = errors.New("message not found")

// ValidationError reports a required field missing on insert.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// InvalidFilterError reports a malformed or contradictory filter, pagination
// parameter, or empty search text. It is a caller error: the failing call
// leaves store state unchanged and is never retried internally.
type InvalidFilterError struct {
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter: " + e.Reason
}
