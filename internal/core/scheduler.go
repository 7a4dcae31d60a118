package core

// scheduler.go runs background maintenance for the import audit trail.
//
// Audit entries older than the retention window are purged periodically. The
// scheduler is long-running and stops when its context is cancelled. A failed
// purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PurgeConfig holds configuration for the audit purge scheduler.
type PurgeConfig struct {
	RetentionDays int           // Days to keep import audits (default: 90)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c PurgeConfig) withDefaults() PurgeConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartPurgeScheduler purges old import audits now and then every
// CheckInterval until ctx is cancelled.
func (s *Service) StartPurgeScheduler(ctx context.Context, cfg PurgeConfig) {
	cfg = cfg.withDefaults()

	slog.Info("audit purge scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval,
	)

	s.runPurgeJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg)
		}
	}
}

// runPurgeJob performs one purge cycle.
func (s *Service) runPurgeJob(ctx context.Context, cfg PurgeConfig) {
	start := time.Now()
	cutoff := s.now().AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.store.PurgeImports(ctx, cutoff)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}

	slog.Info("purged import audits",
		"entries_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
