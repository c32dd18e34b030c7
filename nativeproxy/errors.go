package nativeproxy

import (
	"errors"
	"fmt"
)

var (
	ErrZeroAmount   = errors.New("nativeproxy: amount must be positive")
	ErrNoDelegation = errors.New("nativeproxy: owner has no delegation with this proxy")
)

// ErrInvalidDenom reports a denomination mismatch on a delegate payload.
type ErrInvalidDenom struct {
	Expected string
	Got      string
}

func (e *ErrInvalidDenom) Error() string {
	return fmt.Sprintf("nativeproxy: invalid denom: expected %q, got %q", e.Expected, e.Got)
}

// ErrInsufficientDelegation reports that an undelegate exceeds the
// owner's currently delegated amount.
type ErrInsufficientDelegation struct {
	Have uint64
}

func (e *ErrInsufficientDelegation) Error() string {
	return fmt.Sprintf("nativeproxy: insufficient delegation: have %d", e.Have)
}
