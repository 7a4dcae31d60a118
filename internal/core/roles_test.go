package core

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"", RoleUser},
		{"   ", RoleUser},
		{"user", RoleUser},
		{"Student", RoleStudent},
		{"STUDENTS", RoleStudent},
		{"  doctor ", RoleDoctor},
		{"Dr.", RoleDoctor},
		{"Professor", RoleDoctor},
		{"Admin", RoleAdmin},
		{"طالب", RoleStudent},
		{"دكتور", RoleDoctor},
		{"طبيب", RoleDoctor},
		{" طبيبة ", RoleDoctor},
		{"طبيبه", RoleDoctor},
		{"طالبة", RoleStudent},
		{"طلاب", RoleStudent},
		{"ＡＤＭＩＮ", RoleAdmin}, // full-width, folded by NFKC
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.input)
		if err != nil {
			t.Errorf("ParseRole(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseRole_Unrecognized(t *testing.T) {
	_, err := ParseRole("janitor")
	var re *UnrecognizedRoleError
	if !errors.As(err, &re) {
		t.Fatalf("ParseRole(janitor) error = %v, want UnrecognizedRoleError", err)
	}
	if re.Value != "janitor" {
		t.Errorf("Value = %q, want janitor", re.Value)
	}
}

func TestRolePrefix(t *testing.T) {
	want := map[Role]string{
		RoleUser:    "USR",
		RoleStudent: "STU",
		RoleDoctor:  "DOC",
		RoleAdmin:   "ADM",
	}
	for role, prefix := range want {
		if got := role.Prefix(); got != prefix {
			t.Errorf("%s.Prefix() = %q, want %q", role, got, prefix)
		}
	}
}
