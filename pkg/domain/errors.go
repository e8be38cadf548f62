package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a character, tree, node or entry cannot be found.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when inserting a node whose id is already taken.
var ErrConflict = errors.New("conflict")

// ErrAlreadyExists is returned when creating a dialogue tree for a character that already has one.
var ErrAlreadyExists = errors.New("already exists")

// ValidationError reports a missing or malformed field.
// It is raised before any side effect takes place.
type ValidationError struct {
	NodeID string // Workflow node that rejected the data (empty for graph-level errors)
	Field  string // Offending field
	Reason string // Human-readable reason
}

func (e *ValidationError) Error() string {
	switch {
	case e.NodeID != "" && e.Field != "":
		return fmt.Sprintf("validation failed in node %q: field %q: %s", e.NodeID, e.Field, e.Reason)
	case e.NodeID != "":
		return fmt.Sprintf("validation failed in node %q: %s", e.NodeID, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("validation failed: field %q: %s", e.Field, e.Reason)
	default:
		return "validation failed: " + e.Reason
	}
}

// ExecutionError wraps a failure raised by a node's core logic,
// including provider errors from the generation call.
type ExecutionError struct {
	NodeID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed in node %q: %v", e.NodeID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PatternError reports a regex script whose pattern could not be compiled
// by any repair strategy. It is recovered locally by the pipeline.
type PatternError struct {
	ScriptKey string
	Pattern   string
	Err       error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("script %q: invalid pattern %q: %v", e.ScriptKey, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failure of the backing key/value store.
type PersistenceError struct {
	Op         string // "read" or "write"
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s collection %q: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsExecution reports whether err carries an ExecutionError.
func IsExecution(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}
