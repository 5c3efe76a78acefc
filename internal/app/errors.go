package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrInvalidOption indicates a setting the application cannot use.
	ErrInvalidOption = errors.New("invalid option")

	// ErrVerifyFailed indicates a stress round read back wrong text.
	ErrVerifyFailed = errors.New("verification failed")

	// ErrLeak indicates nodes or buffers survived releasing every rope.
	ErrLeak = errors.New("pool leak")
)

// VerifyError describes a failed stress check.
type VerifyError struct {
	Shape string
	Round int
	Check string // "bytes", "at", "substr", "depth"
	Err   error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s round %d: %s: %v", e.Shape, e.Round, e.Check, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string
	Action    string
	Err       error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}
