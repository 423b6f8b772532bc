package institution

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError
var ErrNotFound = errors.New("institution not found")

// NotFoundError means the directory has no matching institution, or the detail page lacks a
// section every institution page has. Retrying will not help.
type NotFoundError struct {
	Reason     string
	Closest    string  // closest listing name seen, if any
	Similarity float64 // Jaro-Winkler similarity of Closest to the target name
}

func (e *NotFoundError) Error() string {
	if e.Closest != "" {
		return fmt.Sprintf("%s: %s (closest: %q, similarity %.2f)", ErrNotFound, e.Reason, e.Closest, e.Similarity)
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Reason)
}

// Is makes errors.Is(err, ErrNotFound) true
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransientError wraps a UI failure (timeout, missing element, HTTP error) worth retrying
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError, or returns nil for a nil err
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// PersistenceError is a failed write of the registry or the output tables
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Class is the orchestrator's view of an error
type Class int

const (
	ClassNone Class = iota
	ClassTransient
	ClassNotFound
	ClassPersistence
	ClassCanceled
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassNotFound:
		return "not found"
	case ClassPersistence:
		return "persistence"
	case ClassCanceled:
		return "canceled"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Classify maps err onto a Class. Anything unrecognised is transient, including deadline
// errors from individual requests.
func Classify(err error) Class {
	var perr *PersistenceError
	switch {
	case err == nil:
		return ClassNone
	case errors.As(err, &perr):
		return ClassPersistence
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	}
	return ClassTransient
}
