package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/userimport/internal/core"
)

// savepoint marks how much of the session's journal existed when it was set.
// Sessions only append, so rolling back is truncation.
type savepoint struct {
	name     string
	users    int
	students int
	doctors  int
}

// Session is a memstore transaction. It is not safe for concurrent use.
type Session struct {
	store      *Store
	base       *dataset
	work       *dataset
	savepoints []savepoint
	closed     bool

	// profile keys inserted by this session, in order
	students []int64
	doctors  []int64
}

func rejected(format string, args ...any) error {
	return &core.RejectedError{Err: fmt.Errorf(format, args...)}
}

// Exists reports whether a user with the given unique value is visible to
// the session, including its own uncommitted inserts.
func (s *Session) Exists(ctx context.Context, field core.UniqueField, value string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	return s.work.exists(field, value), nil
}

// InsertUser adds a user and returns its ID. Empty or duplicate unique values
// are rejected.
func (s *Session) InsertUser(ctx context.Context, u core.UserRecord) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	for _, f := range uniqueFields {
		v := uniqueValue(u, f)
		if v == "" {
			return 0, rejected("%s must not be empty", f)
		}
		if s.work.exists(f, v) {
			return 0, rejected("duplicate key value violates unique constraint on %s", f)
		}
	}

	u.ID = s.store.allocID()
	s.work.users = append(s.work.users, u)
	return u.ID, nil
}

// InsertStudentProfile adds the student profile of a user inserted earlier.
func (s *Session) InsertStudentProfile(ctx context.Context, p core.StudentProfile) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if !s.work.hasUser(p.UserID) {
		return rejected("student profile references unknown user %d", p.UserID)
	}
	if p.StudentUniversityID == "" {
		return rejected("student_university_id must not be empty")
	}
	if _, ok := s.work.students[p.UserID]; ok {
		return rejected("duplicate student profile for user %d", p.UserID)
	}
	s.work.students[p.UserID] = p
	s.students = append(s.students, p.UserID)
	return nil
}

// InsertDoctorProfile adds the doctor profile of a user inserted earlier.
// A nil feature list is stored as empty.
func (s *Session) InsertDoctorProfile(ctx context.Context, p core.DoctorProfile) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if !s.work.hasUser(p.DoctorID) {
		return rejected("doctor profile references unknown user %d", p.DoctorID)
	}
	if _, ok := s.work.doctors[p.DoctorID]; ok {
		return rejected("duplicate doctor profile for user %d", p.DoctorID)
	}
	if p.AllowedFeatures == nil {
		p.AllowedFeatures = []string{}
	}
	p.AllowedFeatures = slices.Clone(p.AllowedFeatures)
	s.work.doctors[p.DoctorID] = p
	s.doctors = append(s.doctors, p.DoctorID)
	return nil
}

// Savepoint marks the current state. Marking costs the same regardless of how
// much data the session holds.
func (s *Session) Savepoint(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.savepoints = append(s.savepoints, savepoint{
		name:     name,
		users:    len(s.work.users),
		students: len(s.students),
		doctors:  len(s.doctors),
	})
	return nil
}

// RollbackToSavepoint undoes every insert made after the named savepoint. The
// savepoint stays defined; later ones are discarded.
func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	i := s.find(name)
	if i < 0 {
		return fmt.Errorf("memstore: savepoint %q does not exist", name)
	}
	sp := s.savepoints[i]
	for _, id := range s.students[sp.students:] {
		delete(s.work.students, id)
	}
	for _, id := range s.doctors[sp.doctors:] {
		delete(s.work.doctors, id)
	}
	s.students = s.students[:sp.students]
	s.doctors = s.doctors[:sp.doctors]
	clear(s.work.users[sp.users:])
	s.work.users = s.work.users[:sp.users]
	s.savepoints = s.savepoints[:i+1]
	return nil
}

// ReleaseSavepoint forgets the named savepoint and every later one.
func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	i := s.find(name)
	if i < 0 {
		return fmt.Errorf("memstore: savepoint %q does not exist", name)
	}
	s.savepoints = s.savepoints[:i]
	return nil
}

// Commit publishes the session's inserts. It fails with ErrConflict when
// another session committed a clashing unique value first.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.closed = true
	return s.store.commit(s.base, s.work)
}

// Rollback discards the session. Rolling back a closed session is a no-op.
func (s *Session) Rollback(context.Context) error {
	s.closed = true
	s.work = nil
	s.savepoints = nil
	s.students, s.doctors = nil, nil
	return nil
}

func (s *Session) check(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	return ctx.Err()
}

func (s *Session) find(name string) int {
	for i := len(s.savepoints) - 1; i >= 0; i-- {
		if s.savepoints[i].name == name {
			return i
		}
	}
	return -1
}
