package hypermedia

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes a caller is expected to branch on.
var (
	// ErrAccessDenied: the principal lacks the capability a mutation
	// requires, or a node failed the access filter.
	ErrAccessDenied = errors.New("access denied")

	// ErrMissingParameter: a required query or form field is absent.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrNodeNotFound: a target id does not resolve in the content tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidAction: the HTTP method is not recognized.
	ErrInvalidAction = errors.New("invalid action")
)

// DocumentError wraps a failure while assembling a single document. It aborts
// that document's construction but not sibling documents already produced.
type DocumentError struct {
	Stage string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// stageError wraps err with the failing stage name, keeping sentinel
// identity reachable through errors.Is.
func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var de *DocumentError
	if errors.As(err, &de) {
		return err
	}
	return &DocumentError{Stage: stage, Err: err}
}
