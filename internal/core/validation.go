package core

// validation.go provides row-level validation for import data before insertion.
//
// Required fields are checked in a fixed order (username, email, fullName,
// password) and the first missing one decides the row's failure reason, so a
// user fixing a spreadsheet sees the same message on every attempt.

import "strings"

// requiredFields is checked in order; the first empty one fails the row.
var requiredFields = []struct {
	Column string
	Label  string
}{
	{ColUsername, "USERNAME"},
	{ColEmail, "EMAIL"},
	{ColFullName, "FULL_NAME"},
	{ColPassword, "PASSWORD"},
}

// Default values for optional profile fields.
const (
	DefaultDoctorType = "general"
)

// RowValidator normalizes ImportRows and checks required fields.
type RowValidator struct{}

// NewRowValidator creates a validator.
func NewRowValidator() *RowValidator {
	return &RowValidator{}
}

// Validate normalizes a row and returns the first problem found.
// Returned errors are MissingFieldError, ValidationError or UnrecognizedRoleError.
func (v *RowValidator) Validate(row ImportRow) (ValidatedRow, error) {
	for _, f := range requiredFields {
		if valueFor(row, f.Column) == "" {
			return ValidatedRow{}, &MissingFieldError{Field: f.Label}
		}
	}

	role, err := ParseRole(row.Get(ColRole))
	if err != nil {
		return ValidatedRow{}, err
	}

	out := ValidatedRow{
		Username:            valueFor(row, ColUsername),
		Email:               valueFor(row, ColEmail),
		FullName:            valueFor(row, ColFullName),
		Password:            valueFor(row, ColPassword),
		Role:                role,
		Identifier:          valueFor(row, ColIdentifier),
		StudentUniversityID: valueFor(row, ColStudentUniversityID),
		DoctorType:          valueFor(row, ColDoctorType),
	}

	var ok bool
	if out.IsActive, ok = ParseFlag(row.Get(ColIsActive), true); !ok {
		return ValidatedRow{}, invalid("IS_ACTIVE", row.Get(ColIsActive), "must be a number or yes/no")
	}
	if out.IsDean, ok = ParseFlag(row.Get(ColIsDean), false); !ok {
		return ValidatedRow{}, invalid("IS_DEAN", row.Get(ColIsDean), "must be a number or yes/no")
	}

	if raw := valueFor(row, ColStudyYear); raw != "" {
		year, ok := ParseWholeNumber(raw)
		if !ok || year < 0 {
			return ValidatedRow{}, invalid("STUDY_YEAR", raw, "must be a whole number")
		}
		out.StudyYear = &year
	}

	features := DecodeFeatureList(row.Get(ColAllowedFeatures))
	if !features.OK {
		return ValidatedRow{}, invalid("ALLOWED_FEATURES", row.Get(ColAllowedFeatures), "must be a JSON list of strings")
	}
	out.AllowedFeatures = features.Items

	if out.DoctorType == "" {
		out.DoctorType = DefaultDoctorType
	}

	return out, nil
}

// valueFor returns the normalized value of a string column.
// Keys used for duplicate matching and free text are only trimmed. Profile
// codes also lose spreadsheet artifacts such as formula prefixes.
func valueFor(row ImportRow, col string) string {
	raw := row.Get(col)
	switch col {
	case ColUsername, ColEmail, ColIdentifier, ColPassword, ColFullName, ColAllowedFeatures:
		return strings.TrimSpace(raw)
	default:
		return CleanCell(raw)
	}
}

func invalid(field, value, msg string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: msg}
}
