package reconcile

import (
	"errors"
	"fmt"

	"github.com/kingrea/bpixm/internal/slots"
)

var (
	// ErrInvalidShape is matched by *ShapeError.
	ErrInvalidShape = errors.New("reconcile: invalid module id")
	// ErrAlreadyMounted is matched by *ConflictError.
	ErrAlreadyMounted = errors.New("reconcile: module already mounted")
	// ErrOutOfRange is returned for addresses outside the layer.
	ErrOutOfRange = errors.New("reconcile: address outside layer")
	// ErrLayerMismatch is returned when plan and mounted describe different geometry.
	ErrLayerMismatch = errors.New("reconcile: plan and mounted layers differ")
)

// ShapeError rejects an ID that is not M<digits> or is too long.
type ShapeError struct {
	ID     string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("module id %q rejected: %s", e.ID, e.Reason)
}

func (e *ShapeError) Is(target error) bool { return target == ErrInvalidShape }

// ConflictError rejects an ID that already occupies another slot.
type ConflictError struct {
	ID       string
	Existing slots.Address
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("module %s is already mounted at ladder %d, z %d", e.ID, e.Existing.Ladder, e.Existing.Z)
}

func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyMounted }
