package core

import (
	"fmt"
	"regexp"
	"testing"
	"time"
)

func frozenClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
	return func() time.Time { return t }
}

func TestIdentify_ExplicitIdentifierWins(t *testing.T) {
	s := NewIdentifierSynthesizer(frozenClock())
	got := s.Identify(ValidatedRow{Role: RoleStudent, Identifier: "CUSTOM-1"})
	if got != "CUSTOM-1" {
		t.Errorf("Identify() = %q, want CUSTOM-1", got)
	}
	if s.Synthesized() != 0 {
		t.Errorf("explicit identifiers must not advance the counter")
	}
}

func TestIdentify_Format(t *testing.T) {
	s := NewIdentifierSynthesizer(frozenClock())
	millis := frozenClock()().UnixMilli() % 1_000_000

	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "USR"},
		{RoleStudent, "STU"},
		{RoleDoctor, "DOC"},
		{RoleAdmin, "ADM"},
	}
	for i, tt := range tests {
		got := s.Identify(ValidatedRow{Role: tt.role})
		want := regexp.MustCompile(`^` + tt.want + `\d{6}_\d+$`)
		if !want.MatchString(got) {
			t.Errorf("Identify(%s) = %q, want prefix %s + 6 digits + counter", tt.role, got, tt.want)
		}
		if expected := fmt.Sprintf("%s%06d_%d", tt.want, millis, i+1); got != expected {
			t.Errorf("Identify(%s) = %q, want %q", tt.role, got, expected)
		}
	}
}

func TestIdentify_UniqueUnderFrozenClock(t *testing.T) {
	s := NewIdentifierSynthesizer(frozenClock())
	seen := make(map[string]bool)

	for range 500 {
		id := s.Identify(ValidatedRow{Role: RoleStudent})
		if seen[id] {
			t.Fatalf("duplicate identifier %q", id)
		}
		seen[id] = true
	}
	if s.Synthesized() != 500 {
		t.Errorf("Synthesized() = %d, want 500", s.Synthesized())
	}
}
