package registry

import (
	"errors"
	"fmt"
)

// ErrIngest matches every error that rejects an element set.
var ErrIngest = errors.New("ingest rejected")

// DuplicateIDError reports the first id seen twice in an element set.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate element id %q", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrIngest }

// DanglingParentError reports a parent_id that is neither a loaded element
// nor an external anchor.
type DanglingParentError struct {
	ElementID string
	ParentID  string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("element %q references unknown parent %q", e.ElementID, e.ParentID)
}

func (e *DanglingParentError) Is(target error) bool { return target == ErrIngest }

// DanglingConnectionError reports a door connects entry that resolves to nothing.
type DanglingConnectionError struct {
	DoorID   string
	TargetID string
}

func (e *DanglingConnectionError) Error() string {
	return fmt.Sprintf("door %q connects to unknown element %q", e.DoorID, e.TargetID)
}

func (e *DanglingConnectionError) Is(target error) bool { return target == ErrIngest }

// InvalidElementError reports an element whose own fields are malformed.
type InvalidElementError struct {
	ElementID string
	Reason    string
	Cause     error
}

func (e *InvalidElementError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("invalid element: %s", e.Reason)
	}
	return fmt.Sprintf("invalid element %q: %s", e.ElementID, e.Reason)
}

func (e *InvalidElementError) Unwrap() error { return e.Cause }

func (e *InvalidElementError) Is(target error) bool { return target == ErrIngest }
