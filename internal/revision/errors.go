package revision

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRevisions means the data root holds no numbered revision.
	ErrNoRevisions = errors.New("revision: no revisions found")
	// ErrMissingConfig means a revision directory has no config.yaml.
	ErrMissingConfig = errors.New("revision: missing revision config")
	// ErrUnsavedChanges blocks a switch that would drop mounted changes.
	ErrUnsavedChanges = errors.New("revision: unsaved changes")
	// ErrNotLoaded is returned by operations that need a current revision.
	ErrNotLoaded = errors.New("revision: no revision loaded")
	// ErrUnknownLayer names a layer the revision config does not declare.
	ErrUnknownLayer = errors.New("revision: unknown layer")
)

// RevisionError ties a failure to the revision number it concerns.
type RevisionError struct {
	Number int
	Err    error
}

func (e *RevisionError) Error() string {
	return fmt.Sprintf("revision %d: %v", e.Number, e.Err)
}

func (e *RevisionError) Unwrap() error { return e.Err }
