package scheduler

import (
	"context"
	"time"

	"github.com/neuronek/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Job names
const (
	JobOutboxCleanup = "outbox_cleanup"
	JobStashSweep    = "stash_sweep"
	JobJournalExport = "journal_export"
)

// OutboxCleaner deletes delivered outbox entries past their retention.
type OutboxCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// StashSweeper marks stashes whose expiry passed.
type StashSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// JournalExporter exports the journals of accounts active since a point in time.
type JournalExporter interface {
	ExportActiveSince(ctx context.Context, since time.Time) (int, error)
}

// Jobs carries the job dependencies. A nil dependency leaves its job unregistered.
type Jobs struct {
	Outbox   OutboxCleaner
	Stashes  StashSweeper
	Exporter JournalExporter
}

// RegisterJobs registers the maintenance jobs with their configured specs.
func RegisterJobs(s *Scheduler, specs config.JobsConfig, deps Jobs) error {
	if deps.Outbox != nil {
		if err := s.Register(JobOutboxCleanup, specs.OutboxCleanup, func(ctx context.Context) error {
			n, err := deps.Outbox.Cleanup(ctx)
			if err == nil {
				s.logger.Info("Outbox cleaned", zap.Int64("deleted", n))
			}
			return err
		}); err != nil {
			return err
		}
	}

	if deps.Stashes != nil {
		if err := s.Register(JobStashSweep, specs.StashSweep, func(ctx context.Context) error {
			n, err := deps.Stashes.SweepExpired(ctx, s.now().UTC())
			if err == nil {
				s.logger.Info("Expired stashes swept", zap.Int("expired", n))
			}
			return err
		}); err != nil {
			return err
		}
	}

	if deps.Exporter != nil {
		since := s.now().UTC().Add(-24 * time.Hour)
		if err := s.Register(JobJournalExport, specs.JournalExport, func(ctx context.Context) error {
			startedAt := s.now().UTC()
			n, err := deps.Exporter.ExportActiveSince(ctx, since)
			if err != nil {
				return err
			}
			// advance only on success
			since = startedAt
			s.logger.Info("Journals exported", zap.Int("accounts", n))
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
