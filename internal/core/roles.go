package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Role is the closed set of user categories an import can create.
type Role string

const (
	RoleUser    Role = "user"
	RoleStudent Role = "student"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// roleAliases maps folded role text to a role. Spreadsheets arrive from
// English and Arabic speaking staff, so both spellings are accepted.
var roleAliases = map[string]Role{
	"user":   RoleUser,
	"users":  RoleUser,
	"member": RoleUser,
	"مستخدم": RoleUser,

	"student":  RoleStudent,
	"students": RoleStudent,
	"طالب":     RoleStudent,
	"طالبة":    RoleStudent,
	"طالبه":    RoleStudent,
	"طلاب":     RoleStudent,

	"doctor":    RoleDoctor,
	"doctors":   RoleDoctor,
	"dr":        RoleDoctor,
	"dr.":       RoleDoctor,
	"professor": RoleDoctor,
	"lecturer":  RoleDoctor,
	"دكتور":     RoleDoctor,
	"دكتورة":    RoleDoctor,
	"دكتوره":    RoleDoctor,
	"طبيب":      RoleDoctor,
	"طبيبة":     RoleDoctor,
	"طبيبه":     RoleDoctor,
	"أطباء":     RoleDoctor,

	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"مسؤول":         RoleAdmin,
}

// rolePrefixes is the role to identifier-prefix mapping used when
// synthesizing business identifiers.
var rolePrefixes = map[Role]string{
	RoleUser:    "USR",
	RoleStudent: "STU",
	RoleDoctor:  "DOC",
	RoleAdmin:   "ADM",
}

// ParseRole classifies role text. Empty text yields RoleUser.
// Matching is case-insensitive and ignores Unicode normalization differences.
func ParseRole(s string) (Role, error) {
	key := foldRole(s)
	if key == "" {
		return RoleUser, nil
	}
	if r, ok := roleAliases[key]; ok {
		return r, nil
	}
	return "", &UnrecognizedRoleError{Value: strings.TrimSpace(s)}
}

// Prefix returns the identifier prefix for the role.
func (r Role) Prefix() string {
	if p, ok := rolePrefixes[r]; ok {
		return p
	}
	return rolePrefixes[RoleUser]
}

// IsStudent reports whether the role carries a student profile.
func (r Role) IsStudent() bool { return r == RoleStudent }

// IsDoctor reports whether the role carries a doctor profile.
func (r Role) IsDoctor() bool { return r == RoleDoctor }

func foldRole(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s) // Casers are stateful; one per call
}
