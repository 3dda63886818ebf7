package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/repository"
)

const cleanupCheckpointKey = "share_cleanup_last"

const (
	DefaultCleanupInterval  = 6 * time.Hour
	DefaultCleanupRetention = 7 * 24 * time.Hour
)

// CleanupReport is returned verbatim by the admin trigger endpoint.
type CleanupReport struct {
	Ran                 bool       `json:"ran"`
	Now                 time.Time  `json:"now"`
	LastRun             *time.Time `json:"last_run"`
	IntervalMs          int64      `json:"interval_ms"`
	RetentionMs         int64      `json:"retention_ms"`
	Cutoff              time.Time  `json:"cutoff"`
	RevokedExpired      int64      `json:"revoked_expired"`
	RevokedMissingNotes int64      `json:"revoked_missing_notes"`
	DeletedExpired      int64      `json:"deleted_expired"`
	DeletedNoExpiry     int64      `json:"deleted_revoked_no_expiry"`
}

// CleanupService retires stale share links and eventually purges them.
// It is traffic-driven: qualifying requests fire RunIfDue in the
// background and the checkpoint row bounds how often a sweep actually
// happens. Links are first revoked and only deleted after a retention
// window, so a visitor who just missed an expired link sees a clear
// "gone" rather than an abrupt "not found".
type CleanupService struct {
	shares    repository.ShareRepository
	meta      repository.MetaRepository
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

func NewCleanupService(shares repository.ShareRepository, meta repository.MetaRepository, interval, retention time.Duration, logger *slog.Logger) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if retention < 0 {
		retention = DefaultCleanupRetention
	}
	return &CleanupService{shares: shares, meta: meta, interval: interval, retention: retention, logger: logger}
}

// RunIfDue performs the sweep when the interval has elapsed since the
// last run (always when force is set). It never returns an error: the
// sweep is best-effort and must not affect request serving; a partial
// failure is logged and retried from scratch on the next trigger.
func (s *CleanupService) RunIfDue(ctx context.Context, force bool) CleanupReport {
	now := time.Now().UTC()
	report := CleanupReport{
		Now:         now,
		IntervalMs:  s.interval.Milliseconds(),
		RetentionMs: s.retention.Milliseconds(),
		Cutoff:      now.Add(-s.retention),
	}

	lastRaw, err := s.meta.Get(cleanupCheckpointKey)
	switch {
	case err == nil:
		if last, perr := time.Parse(time.RFC3339Nano, lastRaw); perr == nil {
			report.LastRun = &last
			if !force && now.Sub(last) < s.interval {
				return report
			}
		}
	case errors.Is(err, repository.ErrMetaNotFound):
		// First run ever.
	default:
		// Checkpoint unreadable (schema not migrated yet, storage
		// down): report a no-op rather than failing the caller.
		s.logger.WarnContext(ctx, "cleanup checkpoint unavailable", "error", err)
		return report
	}

	// Claim the run by writing the checkpoint first. This is best
	// effort, not a lock: two concurrent runners can both pass the gate
	// in a narrow window, but every sweep statement below is idempotent
	// so a double run is only wasteful.
	if err := s.meta.Set(cleanupCheckpointKey, now.Format(time.RFC3339Nano)); err != nil {
		s.logger.WarnContext(ctx, "cleanup checkpoint claim failed", "error", err)
		return report
	}
	report.Ran = true

	if report.RevokedExpired, err = s.shares.RevokeExpired(now); err != nil {
		return s.abort(ctx, report, "revoke expired", err)
	}
	if report.RevokedMissingNotes, err = s.shares.RevokeOrphaned(); err != nil {
		return s.abort(ctx, report, "revoke orphaned", err)
	}
	if report.DeletedExpired, err = s.shares.DeleteExpiredBefore(report.Cutoff); err != nil {
		return s.abort(ctx, report, "purge expired", err)
	}
	if report.DeletedNoExpiry, err = s.shares.DeleteUnexpiringBefore(report.Cutoff); err != nil {
		return s.abort(ctx, report, "purge unexpiring", err)
	}

	observability.RecordCleanupSweep(ctx, "completed")
	s.logger.InfoContext(ctx, "share cleanup swept",
		"revoked_expired", report.RevokedExpired,
		"revoked_missing_notes", report.RevokedMissingNotes,
		"deleted_expired", report.DeletedExpired,
		"deleted_no_expiry", report.DeletedNoExpiry,
		"forced", force,
	)
	return report
}

func (s *CleanupService) abort(ctx context.Context, report CleanupReport, step string, err error) CleanupReport {
	observability.RecordCleanupSweep(ctx, "aborted")
	s.logger.ErrorContext(ctx, "cleanup sweep aborted", "step", step, "error", err)
	return report
}
