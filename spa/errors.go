package spa

import (
	"errors"
	"fmt"
)

// Errors reported by the core. Everything except a *FramingError is
// recoverable: the offending message is dropped and processing continues.
var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrMalformedMsg   = errors.New("malformed message")
	ErrCourierLength  = errors.New("invalid courier length")
	ErrUnreachable    = errors.New("destination unreachable")
	ErrNotRegistered  = errors.New("component not registered")
	ErrClosed         = errors.New("communicator closed")
	ErrQueueFull      = errors.New("delivery queue full")
	ErrInvalidPeriod  = errors.New("publish period must be positive")
	ErrDuplicateSetup = errors.New("receiver already registered")
)

// A FramingError means the byte stream can no longer be parsed. The channel
// must be torn down; there is no way to find the next frame boundary.
type FramingError struct {
	Op  string
	Err error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FramingError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err requires the channel to be closed.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var fe *FramingError

	return errors.As(err, &fe)
}
