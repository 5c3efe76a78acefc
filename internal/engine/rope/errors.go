package rope

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by rope operations.
var (
	// ErrOutOfRange indicates a position or range outside the rope.
	ErrOutOfRange = errors.New("rope: index out of range")

	// ErrReleased indicates a node was used after its last owner released it.
	// It is raised as a panic value because it signals an ownership bug in
	// the caller, not a runtime condition.
	ErrReleased = errors.New("rope: node used after release")

	// ErrTooLarge indicates a result longer than the largest int. Like
	// bytes.ErrTooLarge it is raised as a panic value.
	ErrTooLarge = errors.New("rope: length overflows int")
)

// indexError reports an At position outside [0, size).
func indexError(pos, size int) error {
	return fmt.Errorf("%w: position %d, size %d", ErrOutOfRange, pos, size)
}

// rangeError reports a Substr range not contained in [0, size].
func rangeError(pos, length, size int) error {
	return fmt.Errorf("%w: range [%d:%d+%d], size %d", ErrOutOfRange, pos, pos, length, size)
}

// addLen returns a+b, panicking with ErrTooLarge if the sum overflows.
// Both arguments are non-negative lengths.
func addLen(a, b int) int {
	if a > math.MaxInt-b {
		panic(fmt.Errorf("%w: %d + %d bytes", ErrTooLarge, a, b))
	}
	return a + b
}

// releasedError builds the panic value for an operation on a freed node.
func releasedError(op string) error {
	return fmt.Errorf("%w: %s", ErrReleased, op)
}
