package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AuditStatus is the terminal state of an import batch.
type AuditStatus string

const (
	AuditCommitted  AuditStatus = "committed"
	AuditRolledBack AuditStatus = "rolled_back"
	AuditRejected   AuditStatus = "rejected"
)

// DefaultImportHistoryLimit is used when a caller asks for history without a limit.
const DefaultImportHistoryLimit = 50

// MaxImportHistoryLimit caps a single history request.
const MaxImportHistoryLimit = 500

// ImportAudit records one batch that reached the coordinator or was refused
// before it. It is written outside the batch transaction so rolled back and
// rejected batches are still recorded.
type ImportAudit struct {
	BatchID    string        `json:"batchId"`
	FileName   string        `json:"fileName"`
	Caller     string        `json:"caller,omitempty"`
	Status     AuditStatus   `json:"status"`
	Total      int           `json:"total"`
	Inserted   int           `json:"inserted"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"durationMs"`
}

// auditStatusFor picks the audit status for a finished batch. Only a batch
// that opened a session can be rolled back; anything earlier was rejected.
func auditStatusFor(err error) AuditStatus {
	var fatal *BatchFatalError
	switch {
	case err == nil:
		return AuditCommitted
	case errors.As(err, &fatal):
		return AuditRolledBack
	default:
		return AuditRejected
	}
}

// recordAudit writes the audit entry. Failures are logged, never returned:
// the batch outcome is already decided.
func (s *Service) recordAudit(ctx context.Context, logger *slog.Logger, a ImportAudit) {
	a.DurationMS = a.Duration.Milliseconds()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.RecordImport(ctx, a); err != nil {
		logger.Warn("failed to record import audit", "error", err)
	}
}

// ListImports returns recent import audits, newest first.
func (s *Service) ListImports(ctx context.Context, limit int) ([]ImportAudit, error) {
	if limit <= 0 {
		limit = DefaultImportHistoryLimit
	}
	if limit > MaxImportHistoryLimit {
		limit = MaxImportHistoryLimit
	}

	audits, err := s.store.ListImports(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range audits {
		audits[i].DurationMS = audits[i].Duration.Milliseconds()
	}
	return audits, nil
}
