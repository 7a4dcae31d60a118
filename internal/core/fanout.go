package core

import (
	"context"
	"time"
)

// RoleFanoutWriter stages a user record plus at most one role profile.
type RoleFanoutWriter struct {
	now func() time.Time
}

// NewRoleFanoutWriter creates a writer. A nil clock uses time.Now.
func NewRoleFanoutWriter(now func() time.Time) *RoleFanoutWriter {
	if now == nil {
		now = time.Now
	}
	return &RoleFanoutWriter{now: now}
}

// Write stages the user insert and then the profile its role calls for.
//
// Row-scoped problems come back as *PersistenceError. The user insert is not
// undone here; the caller owns the savepoint around the whole row. Errors that
// are not store rejections are returned as-is and mean the session is gone.
func (w *RoleFanoutWriter) Write(ctx context.Context, sess Session, row ValidatedRow, identifier, passwordHash string) (UserRecord, error) {
	rec := UserRecord{
		Identifier:   identifier,
		FullName:     row.FullName,
		Email:        row.Email,
		Username:     row.Username,
		PasswordHash: passwordHash,
		Role:         row.Role,
		IsActive:     row.IsActive,
		IsDean:       row.IsDean,
		CreatedAt:    w.now().UTC(),
	}

	id, err := sess.InsertUser(ctx, rec)
	if err != nil {
		return UserRecord{}, persistence("insert user", err)
	}
	rec.ID = id

	switch {
	case row.Role.IsStudent():
		if row.StudentUniversityID == "" {
			return rec, &PersistenceError{Reason: "STUDENT_UNIVERSITY_ID is required for student role"}
		}
		err = sess.InsertStudentProfile(ctx, StudentProfile{
			UserID:              id,
			StudentUniversityID: row.StudentUniversityID,
			StudyYear:           row.StudyYear,
		})
		if err != nil {
			return rec, persistence("insert student profile", err)
		}

	case row.Role.IsDoctor():
		err = sess.InsertDoctorProfile(ctx, DoctorProfile{
			DoctorID:        id,
			AllowedFeatures: row.AllowedFeatures,
			DoctorType:      row.DoctorType,
			IsActive:        row.IsActive,
			CreatedAt:       rec.CreatedAt,
		})
		if err != nil {
			return rec, persistence("insert doctor profile", err)
		}
	}

	return rec, nil
}

// persistence wraps store rejections as row-scoped failures and passes
// everything else through untouched.
func persistence(op string, err error) error {
	if IsRejected(err) {
		return &PersistenceError{Reason: op, Err: err}
	}
	return err
}
