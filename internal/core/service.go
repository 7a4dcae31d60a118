package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxFileSize bounds an uploaded spreadsheet when no limit is configured.
const DefaultMaxFileSize int64 = 20 << 20

// ServiceConfig holds the knobs the service needs from application config.
type ServiceConfig struct {
	TempDir       string        // Where uploads are spooled (default: os.TempDir())
	MaxFileSize   int64         // Upload size limit in bytes
	MaxConcurrent int           // Parallel batches
	MaxWait       time.Duration // Wait for a batch slot before ErrTooManyImports
	Clock         func() time.Time
	Logger        *slog.Logger
}

// Service runs user imports against a Store. It is the entry point for both
// the HTTP handlers and the CLI.
type Service struct {
	store       Store
	coordinator *Coordinator
	limiter     *ImportLimiter

	tempDir     string
	maxFileSize int64
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates a Service. The store is owned by the caller and is not
// closed by the service.
func NewService(store Store, hasher Hasher, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}

	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.TempDir, 0o700); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:       store,
		coordinator: NewCoordinator(hasher, WithClock(cfg.Clock), WithLogger(cfg.Logger)),
		limiter:     NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		tempDir:     cfg.TempDir,
		maxFileSize: cfg.MaxFileSize,
		now:         cfg.Clock,
		logger:      cfg.Logger,
	}, nil
}

// Limiter exposes the batch limiter for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// MaxFileSize returns the configured upload size limit.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Import spools body to a temporary file, parses it and runs one batch.
//
// Errors:
//   - ErrTooManyImports when no batch slot frees up in time
//   - ErrFileTooLarge when body exceeds the size limit
//   - *FormatError when the file cannot be parsed (nothing written)
//   - *BatchFatalError when the session failed (everything rolled back)
//
// Row-level problems are not errors; they are reported per row.
func (s *Service) Import(ctx context.Context, fileName string, body io.Reader) (*Report, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	batchID := uuid.NewString()
	caller, _ := CallerFromContext(ctx)
	logger := logging.WithRequest(ctx, s.logger).With(
		"batch_id", batchID,
		"file", fileName,
		"caller", caller.String(),
	)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logger.With("ip", ip)
	}

	audit := ImportAudit{
		BatchID:   batchID,
		FileName:  fileName,
		Caller:    caller.String(),
		StartedAt: s.now().UTC(),
	}
	start := time.Now()

	report, res, err := s.runImport(ctx, logger, batchID, fileName, body)

	audit.Status = auditStatusFor(err)
	audit.Duration = time.Since(start)
	if res != nil {
		audit.Total = res.Total
		if err == nil {
			audit.Inserted = res.Inserted
			audit.Skipped = res.Skipped
			audit.Failed = res.Failed
		}
	}
	if err != nil {
		audit.Error = err.Error()
	}
	s.recordAudit(ctx, logger, audit)

	if err != nil {
		logger.Error("import failed", "status", audit.Status, "error", err)
		return nil, err
	}

	logger.Info("import completed",
		"total", report.Summary.Total,
		"inserted", report.Summary.Inserted,
		"skipped", report.Summary.Skipped,
		"failed", report.Summary.Failed,
		"duration_ms", audit.Duration.Milliseconds(),
	)
	return report, nil
}

// ImportFile imports a spreadsheet from the local filesystem.
func (s *Service) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	return s.Import(ctx, filepath.Base(path), f)
}

func (s *Service) runImport(ctx context.Context, logger *slog.Logger, batchID, fileName string, body io.Reader) (*Report, *BatchResult, error) {
	path, err := s.spool(fileName, body)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove spooled upload", "path", path, "error", rmErr)
		}
	}()

	rows, err := ReadFile(path, fileName)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("import started", "rows", len(rows))

	sess, err := s.store.Begin(ctx)
	if err != nil {
		return nil, &BatchResult{Total: len(rows)}, &BatchFatalError{Op: "begin", Err: err}
	}

	res, err := s.coordinator.Run(ctx, sess, rows)
	if err != nil {
		return nil, res, err
	}

	return BuildReport(batchID, res), res, nil
}

// spool copies body to a temp file, enforcing the size limit. The caller
// removes the returned path.
func (s *Service) spool(fileName string, body io.Reader) (string, error) {
	if body == nil {
		return "", ErrNoFile
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	f, err := os.CreateTemp(s.tempDir, "import-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	n, copyErr := io.Copy(f, io.LimitReader(body, s.maxFileSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("spool upload: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("spool upload: %w", closeErr)
	case n > s.maxFileSize:
		err = fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
