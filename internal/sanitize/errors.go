package sanitize

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonEmpty     Reason = "EMPTY"
	ReasonTooLong   Reason = "TOO_LONG"
	ReasonMalformed Reason = "MALFORMED"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("invalid comment content")

type ValidationError struct {
	Reason Reason
	// Block is the index of the offending block, -1 when the whole payload is at fault.
	Block   int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Block >= 0 {
		return fmt.Sprintf("%s: block %d: %s", e.Reason, e.Block, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newError(reason Reason, block int, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Block: block, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the reason from err, or "" when err is not a validation error.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}
