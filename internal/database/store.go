package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds connection pool settings.
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

// Store is a core.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, pings and optionally migrates the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool. The store takes ownership of it.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DatabaseName returns the database name from a connection URL, or "".
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Begin starts the batch transaction.
func (s *Store) Begin(ctx context.Context) (core.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{tx: tx, q: New(s.pool).WithTx(tx)}, nil
}

// RecordImport stores an import audit entry.
func (s *Store) RecordImport(ctx context.Context, a core.ImportAudit) error {
	return New(s.pool).InsertImportAudit(ctx, InsertImportAuditParams{
		BatchID:    ToPgUUID(a.BatchID),
		FileName:   a.FileName,
		Caller:     ToPgText(a.Caller),
		Status:     string(a.Status),
		Total:      int32(a.Total),
		Inserted:   int32(a.Inserted),
		Skipped:    int32(a.Skipped),
		Failed:     int32(a.Failed),
		Error:      ToPgText(a.Error),
		StartedAt:  ToPgTimestamptz(a.StartedAt),
		DurationMs: a.Duration.Milliseconds(),
	})
}

// ListImports returns the most recent import audits.
func (s *Store) ListImports(ctx context.Context, limit int) ([]core.ImportAudit, error) {
	rows, err := New(s.pool).ListImportAudits(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	out := make([]core.ImportAudit, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ImportAudit{
			BatchID:   UUIDString(r.BatchID),
			FileName:  r.FileName,
			Caller:    TextString(r.Caller),
			Status:    core.AuditStatus(r.Status),
			Total:     int(r.Total),
			Inserted:  int(r.Inserted),
			Skipped:   int(r.Skipped),
			Failed:    int(r.Failed),
			Error:     TextString(r.Error),
			StartedAt: r.StartedAt.Time,
			Duration:  time.Duration(r.DurationMs) * time.Millisecond,
		})
	}
	return out, nil
}

// PurgeImports deletes audits that started before olderThan.
func (s *Store) PurgeImports(ctx context.Context, olderThan time.Time) (int64, error) {
	return New(s.pool).PurgeImportAudits(ctx, ToPgTimestamptz(olderThan))
}

// Session is one batch transaction.
type Session struct {
	tx pgx.Tx
	q  *Queries
}

// Exists reports whether a user with the given unique value exists, including
// users inserted earlier in this transaction.
func (s *Session) Exists(ctx context.Context, field core.UniqueField, value string) (bool, error) {
	switch field {
	case core.FieldUsername:
		return s.q.UserExistsByUsername(ctx, value)
	case core.FieldEmail:
		return s.q.UserExistsByEmail(ctx, value)
	case core.FieldIdentifier:
		return s.q.UserExistsByIdentifier(ctx, value)
	default:
		return false, fmt.Errorf("unknown unique field %q", field)
	}
}

// InsertUser inserts the base user row and returns its ID.
func (s *Session) InsertUser(ctx context.Context, u core.UserRecord) (int64, error) {
	id, err := s.q.InsertUser(ctx, InsertUserParams{
		Identifier:   u.Identifier,
		FullName:     u.FullName,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		IsDean:       u.IsDean,
		CreatedAt:    ToPgTimestamptz(u.CreatedAt),
	})
	return id, classify(err)
}

// InsertStudentProfile inserts the student profile for a user.
func (s *Session) InsertStudentProfile(ctx context.Context, p core.StudentProfile) error {
	err := s.q.InsertStudentProfile(ctx, InsertStudentProfileParams{
		UserID:              p.UserID,
		StudentUniversityID: p.StudentUniversityID,
		StudyYear:           ToPgInt4(p.StudyYear),
	})
	return classify(err)
}

// InsertDoctorProfile inserts the doctor profile; features are stored as JSON.
func (s *Session) InsertDoctorProfile(ctx context.Context, p core.DoctorProfile) error {
	err := s.q.InsertDoctorProfile(ctx, InsertDoctorProfileParams{
		DoctorID:        p.DoctorID,
		AllowedFeatures: []byte(core.EncodeFeatureList(p.AllowedFeatures)),
		DoctorType:      p.DoctorType,
		IsActive:        p.IsActive,
		CreatedAt:       ToPgTimestamptz(p.CreatedAt),
	})
	return classify(err)
}

func (s *Session) Savepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

// Commit commits the batch transaction.
func (s *Session) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (s *Session) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// classify wraps statement-level rejections so the coordinator keeps the
// batch alive. Integrity violations (class 23) and data exceptions (class 22)
// leave the transaction usable after ROLLBACK TO SAVEPOINT.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "22"):
			return &core.RejectedError{Err: err}
		}
	}
	return err
}
