package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrOperationLimit is returned when a script exceeds its rope
	// operation budget.
	ErrOperationLimit = errors.New("lua rope operation limit exceeded")

	// ErrLengthLimit is returned when a script builds a rope longer than
	// its length limit.
	ErrLengthLimit = errors.New("lua rope length limit exceeded")

	// ErrNoResult is returned when a template returns nothing to render.
	ErrNoResult = errors.New("lua template returned no value")

	// ErrCycle is returned when a returned table contains itself.
	ErrCycle = errors.New("lua table contains a cycle")
)
