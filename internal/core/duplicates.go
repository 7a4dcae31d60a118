package core

import (
	"context"
	"fmt"
)

// DuplicateChecker looks up unique fields through the batch session.
type DuplicateChecker struct{}

// NewDuplicateChecker creates a checker.
func NewDuplicateChecker() *DuplicateChecker {
	return &DuplicateChecker{}
}

// Check looks for username, then email, then identifier in the store.
//
// A conflict is returned as *DuplicateConflictError. Any other error means the
// lookup itself failed and must be treated as a session failure.
func (c *DuplicateChecker) Check(ctx context.Context, sess Session, username, email, identifier string) error {
	checks := []struct {
		field UniqueField
		value string
	}{
		{FieldUsername, username},
		{FieldEmail, email},
		{FieldIdentifier, identifier},
	}

	for _, chk := range checks {
		exists, err := sess.Exists(ctx, chk.field, chk.value)
		if err != nil {
			return fmt.Errorf("check %s: %w", chk.field, err)
		}
		if exists {
			return &DuplicateConflictError{Field: chk.field, Value: chk.value}
		}
	}
	return nil
}
