// Package sweeper periodically evicts links that expired longer ago than the
// retention window, bounding the memory held by the registry.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Siddarth2230/shortlink/internal/archive"
	"github.com/Siddarth2230/shortlink/internal/models"
	"github.com/Siddarth2230/shortlink/pkg/metrics"
)

const DefaultTimeout = time.Minute

type Store interface {
	SweepExpired(ctx context.Context, retention time.Duration) []models.Link
}

type Sweeper struct {
	store     Store
	archiver  archive.Archiver
	retention time.Duration
	logger    *slog.Logger

	Timeout time.Duration

	cron *cron.Cron
}

func New(store Store, archiver archive.Archiver, retention time.Duration, logger *slog.Logger) *Sweeper {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		archiver:  archiver,
		retention: retention,
		logger:    logger.With("package", "cron_job"),
		Timeout:   DefaultTimeout,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Schedule registers the sweep under a cron spec such as "@every 10m" or "*/5 * * * *".
func (s *Sweeper) Schedule(spec string) error {
	if _, err := s.cron.AddJob(spec, s); err != nil {
		return fmt.Errorf("failed to schedule sweep %q: %w", spec, err)
	}
	s.logger.Info("sweep scheduled", "schedule", spec, "retention", s.retention)
	return nil
}

// Start runs the scheduler until ctx is done and waits for a running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Run implements cron.Job.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce evicts stale links and archives them. Evicted links are gone from
// the registry even when archiving fails.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	removed := s.store.SweepExpired(ctx, s.retention)
	if len(removed) == 0 {
		s.logger.Debug("sweep found nothing to evict")
		return 0, nil
	}
	metrics.LinksSwept.Add(float64(len(removed)))

	if err := s.archiver.Archive(ctx, removed); err != nil {
		metrics.ArchiveFailures.Inc()
		s.logger.Error("failed to archive evicted links", "count", len(removed), "error", err)
		return len(removed), err
	}

	s.logger.Info("swept expired links", "count", len(removed), "duration", time.Since(start))
	return len(removed), nil
}
