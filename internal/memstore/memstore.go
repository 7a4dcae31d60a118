// Package memstore is an in-memory core.Store.
//
// Sessions work on a private copy of the committed data, so nothing is visible
// to other sessions until Commit. Beginning a session copies the committed
// data once; savepoints only record positions in the session's insert journal.
// Uniqueness is enforced on insert within the session and again at commit
// against whatever other sessions committed in the meantime.
//
// Lookups are linear scans over all users. The store suits tests, the CLI and
// small deployments; use the postgres driver for large user tables.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
)

// ErrSessionClosed is returned by any call on a committed or rolled back session.
var ErrSessionClosed = errors.New("memstore: session closed")

// ErrConflict is returned by Commit when another session committed a
// conflicting unique value first.
var ErrConflict = errors.New("memstore: commit conflict")

// Store holds users, profiles and import audits in memory.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	nextID int64
	audits []core.ImportAudit
}

type dataset struct {
	users    []core.UserRecord
	students map[int64]core.StudentProfile
	doctors  map[int64]core.DoctorProfile
}

func newDataset() *dataset {
	return &dataset{
		students: make(map[int64]core.StudentProfile),
		doctors:  make(map[int64]core.DoctorProfile),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:    slices.Clone(d.users),
		students: make(map[int64]core.StudentProfile, len(d.students)),
		doctors:  make(map[int64]core.DoctorProfile, len(d.doctors)),
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.doctors {
		v.AllowedFeatures = slices.Clone(v.AllowedFeatures)
		c.doctors[k] = v
	}
	return c
}

func (d *dataset) hasUser(id int64) bool {
	return slices.ContainsFunc(d.users, func(u core.UserRecord) bool { return u.ID == id })
}

func (d *dataset) exists(field core.UniqueField, value string) bool {
	return slices.ContainsFunc(d.users, func(u core.UserRecord) bool {
		return uniqueValue(u, field) == value
	})
}

func uniqueValue(u core.UserRecord, field core.UniqueField) string {
	switch field {
	case core.FieldUsername:
		return u.Username
	case core.FieldEmail:
		return u.Email
	case core.FieldIdentifier:
		return u.Identifier
	}
	return ""
}

var uniqueFields = []core.UniqueField{core.FieldUsername, core.FieldEmail, core.FieldIdentifier}

// New returns an empty store.
func New() *Store {
	return &Store{data: newDataset()}
}

// Seed commits users directly, assigning IDs. Used to stage existing data.
func (s *Store) Seed(users ...core.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		for _, f := range uniqueFields {
			if s.data.exists(f, uniqueValue(u, f)) {
				return fmt.Errorf("seed %s %q: %w", f, uniqueValue(u, f), ErrConflict)
			}
		}
		s.nextID++
		u.ID = s.nextID
		s.data.users = append(s.data.users, u)
	}
	return nil
}

// Users returns the committed users in insertion order.
func (s *Store) Users() []core.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.users)
}

// StudentProfiles returns the committed student profiles ordered by user ID.
func (s *Store) StudentProfiles() []core.StudentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.StudentProfile, 0, len(s.data.students))
	for _, p := range s.data.students {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// DoctorProfiles returns the committed doctor profiles ordered by doctor ID.
func (s *Store) DoctorProfiles() []core.DoctorProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.DoctorProfile, 0, len(s.data.doctors))
	for _, p := range s.data.doctors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID < out[j].DoctorID })
	return out
}

// Begin opens a session over a snapshot of the committed data.
func (s *Store) Begin(ctx context.Context) (core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Session{
		store: s,
		base:  s.data.clone(),
		work:  s.data.clone(),
	}, nil
}

// RecordImport appends an audit entry.
func (s *Store) RecordImport(_ context.Context, a core.ImportAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, a)
	return nil
}

// ListImports returns up to limit audits, newest first.
func (s *Store) ListImports(_ context.Context, limit int) ([]core.ImportAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.audits)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PurgeImports removes audits that started before olderThan.
func (s *Store) PurgeImports(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.audits)
	s.audits = slices.DeleteFunc(s.audits, func(a core.ImportAudit) bool {
		return a.StartedAt.Before(olderThan)
	})
	return int64(before - len(s.audits)), nil
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// commit merges the session's new rows into the committed data.
func (s *Store) commit(base, work *dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []core.UserRecord
	for _, u := range work.users {
		if !base.hasUser(u.ID) {
			added = append(added, u)
		}
	}

	for _, u := range added {
		for _, f := range uniqueFields {
			if s.data.exists(f, uniqueValue(u, f)) {
				return fmt.Errorf("%w: %s %q", ErrConflict, f, uniqueValue(u, f))
			}
		}
	}

	for _, u := range added {
		s.data.users = append(s.data.users, u)
		if p, ok := work.students[u.ID]; ok {
			s.data.students[u.ID] = p
		}
		if p, ok := work.doctors[u.ID]; ok {
			s.data.doctors[u.ID] = p
		}
	}
	return nil
}
