package palworld

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument rejects operation parameters before anything
	// reaches the wire.
	ErrInvalidArgument = errors.New("palworld: invalid argument")

	// ErrMalformedResponse flags a reply that did not match the shape
	// the operation expects.
	ErrMalformedResponse = errors.New("palworld: malformed response")
)

// MalformedError carries the offending reply so a failure can be diagnosed
// without a wire capture.
type MalformedError struct {
	Op     string
	Reason string
	Raw    string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("palworld: %s: %s (raw %q)", e.Op, e.Reason, e.Raw)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedResponse }
