package notify

import (
	"errors"
	"fmt"
)

// ErrInvalidType is returned when a notification is created with a type
// outside the known set.
var ErrInvalidType = errors.New("invalid notification type")

// InvalidTypeError carries the rejected type. It unwraps to ErrInvalidType.
type InvalidTypeError struct {
	Type Type
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidType, string(e.Type))
}

func (e *InvalidTypeError) Unwrap() error {
	return ErrInvalidType
}
