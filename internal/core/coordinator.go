package core

// coordinator.go drives one batch through the row pipeline.
//
// Rows run sequentially in input order inside a single storage session:
//
//	validate -> identify -> duplicate check -> hash -> write (in a savepoint)
//
// A row-scoped error rolls back to the row's savepoint and is recorded in the
// row's outcome. Anything else (a failed lookup, savepoint, or commit) rolls
// back the whole session and is returned as *BatchFatalError.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Coordinator runs batches. It is safe for concurrent use; every Run gets its
// own identifier counter.
type Coordinator struct {
	validator  *RowValidator
	duplicates *DuplicateChecker
	hasher     Hasher
	now        func() time.Time
	logger     *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock sets the clock used for identifiers and timestamps.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for per-row diagnostics.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator that hashes passwords with hasher.
func NewCoordinator(hasher Hasher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		validator:  NewRowValidator(),
		duplicates: NewDuplicateChecker(),
		hasher:     hasher,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes rows against sess and commits once at the end.
//
// On success the session is committed and the result holds one outcome per row.
// On a batch-fatal error the session has been rolled back and the returned
// result reflects the rows seen before the failure; none of them are durable.
// Run never leaves sess open.
func (c *Coordinator) Run(ctx context.Context, sess Session, rows []ImportRow) (*BatchResult, error) {
	result := &BatchResult{
		Total: len(rows),
		Rows:  make([]RowOutcome, 0, len(rows)),
	}

	ids := NewIdentifierSynthesizer(c.now)
	writer := NewRoleFanoutWriter(c.now)

	committed := false
	defer func() {
		if !committed {
			if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("rollback failed", "error", err)
			}
		}
	}()

	for i, raw := range rows {
		rowNum := i + 1

		outcome, err := c.processRow(ctx, sess, ids, writer, rowNum, raw)
		if err != nil {
			var fatal *BatchFatalError
			if !errors.As(err, &fatal) {
				fatal = &BatchFatalError{Row: rowNum, Op: "process row", Err: err}
			}
			c.logger.Error("batch aborted", "row", rowNum, "op", fatal.Op, "error", fatal.Err)
			return result, fatal
		}

		result.Rows = append(result.Rows, outcome)
		switch outcome.Status {
		case StatusSuccess:
			result.Inserted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return result, &BatchFatalError{Op: "commit", Err: err}
	}
	committed = true

	return result, nil
}

// processRow returns the row's outcome, or an error when the session is unusable.
func (c *Coordinator) processRow(ctx context.Context, sess Session, ids *IdentifierSynthesizer, writer *RoleFanoutWriter, rowNum int, raw ImportRow) (RowOutcome, error) {
	outcome := RowOutcome{Row: rowNum, Username: strings.TrimSpace(raw.Get(ColUsername))}

	valid, err := c.validator.Validate(raw)
	if err != nil {
		return c.rowFailed(outcome, err), nil
	}
	outcome.Username = valid.Username

	identifier := ids.Identify(valid)

	if err := c.duplicates.Check(ctx, sess, valid.Username, valid.Email, identifier); err != nil {
		var dup *DuplicateConflictError
		if !errors.As(err, &dup) {
			return outcome, &BatchFatalError{Row: rowNum, Op: "duplicate check", Err: err}
		}
		return c.rowFailed(outcome, dup), nil
	}

	hash, err := c.hasher.Hash(valid.Password)
	if err != nil {
		return c.rowFailed(outcome, &ValidationError{Field: "PASSWORD", Message: "could not be hashed: " + err.Error()}), nil
	}

	sp := fmt.Sprintf("sp_%d", rowNum)
	if err := sess.Savepoint(ctx, sp); err != nil {
		return outcome, &BatchFatalError{Row: rowNum, Op: "savepoint", Err: err}
	}

	rec, err := writer.Write(ctx, sess, valid, identifier, hash)
	if err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			return outcome, &BatchFatalError{Row: rowNum, Op: "write", Err: err}
		}
		if rbErr := sess.RollbackToSavepoint(ctx, sp); rbErr != nil {
			return outcome, &BatchFatalError{Row: rowNum, Op: "rollback to savepoint", Err: rbErr}
		}
		return c.rowFailed(outcome, perr), nil
	}

	if err := sess.ReleaseSavepoint(ctx, sp); err != nil {
		return outcome, &BatchFatalError{Row: rowNum, Op: "release savepoint", Err: err}
	}

	outcome.Status = StatusSuccess
	outcome.Identifier = rec.Identifier
	outcome.Email = rec.Email
	outcome.Role = rec.Role
	return outcome, nil
}

func (c *Coordinator) rowFailed(outcome RowOutcome, err error) RowOutcome {
	outcome.Status = rowStatusFor(err)
	outcome.Reason = err.Error()
	c.logger.Debug("row not imported", "row", outcome.Row, "status", outcome.Status, "reason", outcome.Reason)
	return outcome
}
