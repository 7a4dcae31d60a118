package core

import (
	"context"
	"time"
)

// Column names expected in the import header row. Matching is case-sensitive.
const (
	ColUsername            = "username"
	ColEmail               = "email"
	ColFullName            = "fullName"
	ColRole                = "role"
	ColPassword            = "password"
	ColIdentifier          = "identifier"
	ColStudentUniversityID = "studentUniversityId"
	ColStudyYear           = "studyYear"
	ColAllowedFeatures     = "allowedFeatures"
	ColDoctorType          = "doctorType"
	ColIsActive            = "isActive"
	ColIsDean              = "isDean"
)

// Columns lists every recognized header in template order.
var Columns = []string{
	ColUsername,
	ColEmail,
	ColFullName,
	ColRole,
	ColPassword,
	ColIdentifier,
	ColStudentUniversityID,
	ColStudyYear,
	ColAllowedFeatures,
	ColDoctorType,
	ColIsActive,
	ColIsDean,
}

// ImportRow is one spreadsheet line keyed by header name.
// Values are raw cell text; absent columns are simply missing from the map.
type ImportRow map[string]string

// Get returns the raw value for a column, or "" when absent.
func (r ImportRow) Get(col string) string {
	return r[col]
}

// ValidatedRow is an ImportRow after normalization and required-field checks.
type ValidatedRow struct {
	Username            string
	Email               string
	FullName            string
	Password            string
	Role                Role
	Identifier          string // explicit identifier, empty when one must be synthesized
	StudentUniversityID string
	StudyYear           *int
	AllowedFeatures     []string
	DoctorType          string
	IsActive            bool
	IsDean              bool
}

// UserRecord is the base user row. Written once, never updated by the import.
type UserRecord struct {
	ID           int64
	Identifier   string
	FullName     string
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	IsDean       bool
	CreatedAt    time.Time
}

// StudentProfile extends a student user.
type StudentProfile struct {
	UserID              int64
	StudentUniversityID string
	StudyYear           *int
}

// DoctorProfile extends a doctor user. DoctorID equals the user's ID.
type DoctorProfile struct {
	DoctorID        int64
	AllowedFeatures []string
	DoctorType      string
	IsActive        bool
	CreatedAt       time.Time
}

// UniqueField names a column with a global uniqueness constraint.
type UniqueField string

const (
	FieldUsername   UniqueField = "USERNAME"
	FieldEmail      UniqueField = "EMAIL"
	FieldIdentifier UniqueField = "IDENTIFIER"
)

// RowStatus is the verdict for a single row.
type RowStatus string

const (
	StatusSuccess RowStatus = "success"
	StatusSkipped RowStatus = "skipped"
	StatusFailed  RowStatus = "failed"
)

// RowOutcome records what happened to one input row.
type RowOutcome struct {
	Row        int // 1-based, input order
	Username   string
	Status     RowStatus
	Reason     string
	Identifier string // set on success
	Email      string // set on success
	Role       Role   // set on success
}

// BatchResult contains the outcome of every row in one batch.
type BatchResult struct {
	Total    int
	Inserted int
	Skipped  int
	Failed   int
	Rows     []RowOutcome
}

// Store opens storage sessions. One session spans exactly one batch.
type Store interface {
	Begin(ctx context.Context) (Session, error)
	RecordImport(ctx context.Context, audit ImportAudit) error
	ListImports(ctx context.Context, limit int) ([]ImportAudit, error)
	PurgeImports(ctx context.Context, olderThan time.Time) (int64, error)
	Close()
}

// Session is a transactional view of the store used for one batch.
//
// Writes are visible to later reads within the same session. Implementations
// must wrap statement-level rejections (constraint violations, bad values) in
// RejectedError; any other error is treated as loss of the session.
type Session interface {
	Exists(ctx context.Context, field UniqueField, value string) (bool, error)
	InsertUser(ctx context.Context, u UserRecord) (int64, error)
	InsertStudentProfile(ctx context.Context, p StudentProfile) error
	InsertDoctorProfile(ctx context.Context, p DoctorProfile) error

	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
