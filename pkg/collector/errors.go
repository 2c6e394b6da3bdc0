package collector

import (
	"errors"
	"fmt"
)

// ErrResolution matches every ResolutionError
var ErrResolution = errors.New("user resolution failed")

// ErrInvalidUsername is wrapped by the ResolutionError for names Reddit cannot hold
var ErrInvalidUsername = errors.New("not a valid reddit username")

// ResolutionError reports that the username could not be resolved
type ResolutionError struct {
	Username string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve user %s: %v", e.Username, e.Err)
}

func (e *ResolutionError) Unwrap() []error { return []error{ErrResolution, e.Err} }

// EnumerationError reports that a feed could not be listed
type EnumerationError struct {
	Username string
	Feed     string
	Err      error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s of %s: %v", e.Feed, e.Username, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }
