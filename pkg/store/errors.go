package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports that a repository, revision, or category document
// does not exist. It is an expected outcome, not a failure: callers
// translate it into an empty result and it is never logged as an error.
var ErrNotFound = errors.New("not found")

// ErrBadRef reports a commit identifier that matches neither the exact
// hash nor the HEAD-relative grammar. It is a caller-input error.
var ErrBadRef = errors.New("malformed commit reference")

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RetrievalError reports a failed read against the backing store: a
// listing or content fetch that did not complete. Reads are never retried
// automatically.
type RetrievalError struct {
	Application string
	Environment string
	Op          string
	Err         error
}

func (e *RetrievalError) Error() string {
	if e.Application == "" && e.Environment == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed for %s/%s: %v", e.Op, e.Application, e.Environment, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// MutationError reports a failed write: bootstrap, commit, reference
// update, or push. Step names the protocol step that failed. Created
// lists identifiers of objects published by earlier steps; they are left
// unreferenced and are not rolled back.
type MutationError struct {
	Application string
	Environment string
	Op          string
	Step        string
	Created     []string
	Err         error
}

func (e *MutationError) Error() string {
	msg := fmt.Sprintf("%s failed for %s/%s", e.Op, e.Application, e.Environment)
	if e.Step != "" {
		msg += fmt.Sprintf(" at step %q", e.Step)
	}
	if len(e.Created) > 0 {
		msg += fmt.Sprintf(" (orphaned objects: %s)", strings.Join(e.Created, ", "))
	}
	return msg + ": " + e.Err.Error()
}

func (e *MutationError) Unwrap() error { return e.Err }
