package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userExistsByUsername = `-- name: UserExistsByUsername :one
SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
`

func (q *Queries) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	row := q.db.QueryRow(ctx, userExistsByUsername, username)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const userExistsByEmail = `-- name: UserExistsByEmail :one
SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
`

func (q *Queries) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	row := q.db.QueryRow(ctx, userExistsByEmail, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const userExistsByIdentifier = `-- name: UserExistsByIdentifier :one
SELECT EXISTS (SELECT 1 FROM users WHERE identifier = $1)
`

func (q *Queries) UserExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	row := q.db.QueryRow(ctx, userExistsByIdentifier, identifier)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertUser = `-- name: InsertUser :one
INSERT INTO users (
    identifier, full_name, email, username, password_hash, role, is_active, is_dean, created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
RETURNING id
`

type InsertUserParams struct {
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

func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertUser,
		arg.Identifier,
		arg.FullName,
		arg.Email,
		arg.Username,
		arg.PasswordHash,
		arg.Role,
		arg.IsActive,
		arg.IsDean,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertStudentProfile = `-- name: InsertStudentProfile :exec
INSERT INTO student_profiles (user_id, student_university_id, study_year)
VALUES ($1, $2, $3)
`

type InsertStudentProfileParams struct {
	UserID              int64
	StudentUniversityID string
	StudyYear           pgtype.Int4
}

func (q *Queries) InsertStudentProfile(ctx context.Context, arg InsertStudentProfileParams) error {
	_, err := q.db.Exec(ctx, insertStudentProfile, arg.UserID, arg.StudentUniversityID, arg.StudyYear)
	return err
}

const insertDoctorProfile = `-- name: InsertDoctorProfile :exec
INSERT INTO doctor_profiles (doctor_id, allowed_features, doctor_type, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertDoctorProfileParams struct {
	DoctorID        int64
	AllowedFeatures []byte
	DoctorType      string
	IsActive        bool
	CreatedAt       pgtype.Timestamptz
}

func (q *Queries) InsertDoctorProfile(ctx context.Context, arg InsertDoctorProfileParams) error {
	_, err := q.db.Exec(ctx, insertDoctorProfile,
		arg.DoctorID,
		arg.AllowedFeatures,
		arg.DoctorType,
		arg.IsActive,
		arg.CreatedAt,
	)
	return err
}
