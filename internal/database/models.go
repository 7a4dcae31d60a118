package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           int64
	Identifier   string
	FullName     string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	IsDean       bool
	CreatedAt    pgtype.Timestamptz
}

type StudentProfile struct {
	UserID              int64
	StudentUniversityID string
	StudyYear           pgtype.Int4
}

type DoctorProfile struct {
	DoctorID        int64
	AllowedFeatures []byte
	DoctorType      string
	IsActive        bool
	CreatedAt       pgtype.Timestamptz
}

type ImportAudit struct {
	BatchID    pgtype.UUID
	FileName   string
	Caller     pgtype.Text
	Status     string
	Total      int32
	Inserted   int32
	Skipped    int32
	Failed     int32
	Error      pgtype.Text
	StartedAt  pgtype.Timestamptz
	DurationMs int64
}
