package booking

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when no booking has the requested id.
var ErrNotFound = errors.New("booking not found")

// ValidationError lists every required field missing from a request.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}
