package core

import (
	"fmt"
	"time"
)

// IdentifierSynthesizer hands out business identifiers for one batch.
//
// The counter is scoped to the synthesizer, so create one per batch. It is not
// safe for concurrent use; rows are processed sequentially.
type IdentifierSynthesizer struct {
	now     func() time.Time
	counter int
}

// NewIdentifierSynthesizer creates a synthesizer. A nil clock uses time.Now.
func NewIdentifierSynthesizer(now func() time.Time) *IdentifierSynthesizer {
	if now == nil {
		now = time.Now
	}
	return &IdentifierSynthesizer{now: now}
}

// Identify returns the row's explicit identifier, or synthesizes
// {prefix}{last 6 digits of epoch millis}_{counter}. The counter only advances
// for synthesized identifiers, keeping them distinct within the batch even when
// the clock does not move.
func (s *IdentifierSynthesizer) Identify(row ValidatedRow) string {
	if row.Identifier != "" {
		return row.Identifier
	}

	s.counter++
	millis := s.now().UnixMilli() % 1_000_000
	return fmt.Sprintf("%s%06d_%d", row.Role.Prefix(), millis, s.counter)
}

// Synthesized returns how many identifiers have been generated.
func (s *IdentifierSynthesizer) Synthesized() int {
	return s.counter
}
