package core

// errors.go defines the import error taxonomy.
//
// Row-scoped errors (MissingFieldError, ValidationError, UnrecognizedRoleError,
// DuplicateConflictError, PersistenceError) are recovered at the row boundary
// and only change that row's outcome. FormatError and BatchFatalError abort
// the whole batch.

import (
	"errors"
	"fmt"
)

// ErrEmptyFile is wrapped by FormatError when the upload has no content.
var ErrEmptyFile = errors.New("empty file")

// ErrNoHeader is wrapped by FormatError when no header row can be found.
var ErrNoHeader = errors.New("header row not found")

// ErrFileTooLarge is returned when an upload exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

// ErrNoFile is returned when an import request carries no file.
var ErrNoFile = errors.New("no file provided")

// FormatError reports that the uploaded file could not be parsed.
type FormatError struct {
	FileName string
	Err      error
}

func (e *FormatError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("invalid import file: %v", e.Err)
	}
	return fmt.Sprintf("invalid import file %q: %v", e.FileName, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// MissingFieldError reports an absent required field.
type MissingFieldError struct {
	Field string // upper-case field label, e.g. "PASSWORD"
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

// ValidationError reports a present but unusable value.
type ValidationError struct {
	Field   string // Field/column label
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return e.Message
}

// UnrecognizedRoleError reports role text outside the known role set.
type UnrecognizedRoleError struct {
	Value string
}

func (e *UnrecognizedRoleError) Error() string {
	return fmt.Sprintf("ROLE %q is not recognized", e.Value)
}

// DuplicateConflictError reports a unique field that already exists in the store.
type DuplicateConflictError struct {
	Field UniqueField
	Value string
}

func (e *DuplicateConflictError) Error() string {
	return string(e.Field) + " already exists"
}

// PersistenceError reports a staged write that failed after validation passed.
type PersistenceError struct {
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// BatchFatalError reports a storage session failure outside any single row.
// Every write staged by the batch has been rolled back.
type BatchFatalError struct {
	Row int // row being processed when the failure happened, 0 if none
	Op  string
	Err error
}

func (e *BatchFatalError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("import aborted at row %d (%s): %v", e.Row, e.Op, e.Err)
	}
	return fmt.Sprintf("import aborted (%s): %v", e.Op, e.Err)
}

func (e *BatchFatalError) Unwrap() error { return e.Err }

// RejectedError marks a statement the store refused without losing the session.
// Store adapters wrap constraint violations and bad values in it.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string {
	return "rejected by store: " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error { return e.Err }

// IsRejected reports whether err is a statement-level rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// rowStatusFor maps a row-scoped error to the status it produces.
func rowStatusFor(err error) RowStatus {
	var dup *DuplicateConflictError
	if errors.As(err, &dup) {
		return StatusSkipped
	}
	return StatusFailed
}
