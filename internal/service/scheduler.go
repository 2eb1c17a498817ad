package service

import (
	"context"
	"sync"
	"time"

	"inspiranet/internal/constants"
	"inspiranet/internal/lifecycle"
	"inspiranet/internal/models"
	"inspiranet/internal/tracing"

	"github.com/sirupsen/logrus"
)

// Sweeper runs the periodic lifecycle sweeps.
type Sweeper interface {
	ProcessAutoDelete(ctx context.Context) (*lifecycle.SweepResult, error)
	ServerCleanup(ctx context.Context, opts lifecycle.CleanupOptions) (*lifecycle.CleanupResult, error)
}

// Scheduler runs the auto-delete sweep and the server cleanup on
// independent tickers. Both sweeps run once on Start.
type Scheduler struct {
	sweeper         Sweeper
	autoDeleteEvery time.Duration
	cleanupEvery    time.Duration
	logger          *logrus.Logger
	stopCh          chan struct{}
	stopOnce        sync.Once

	mu             sync.Mutex
	cleanupOptions lifecycle.CleanupOptions
}

func NewScheduler(sweeper Sweeper, cfg models.SchedulerConfig, logger *logrus.Logger) *Scheduler {
	autoDeleteMin := cfg.AutoDeleteIntervalMin
	if autoDeleteMin <= 0 {
		autoDeleteMin = constants.DefaultAutoDeleteIntervalMin
	}
	cleanupHours := cfg.CleanupIntervalHours
	if cleanupHours <= 0 {
		cleanupHours = constants.CleanupSchedulerIntervalHours
	}

	opts := lifecycle.DefaultCleanupOptions()
	opts.DeleteOrphaned = cfg.DeleteOrphaned

	return &Scheduler{
		sweeper:         sweeper,
		autoDeleteEvery: time.Duration(autoDeleteMin) * time.Minute,
		cleanupEvery:    time.Duration(cleanupHours) * time.Hour,
		cleanupOptions:  opts,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	autoDeleteTicker := time.NewTicker(s.autoDeleteEvery)
	defer autoDeleteTicker.Stop()
	cleanupTicker := time.NewTicker(s.cleanupEvery)
	defer cleanupTicker.Stop()

	s.logger.WithFields(logrus.Fields{
		"auto_delete_interval": s.autoDeleteEvery.String(),
		"cleanup_interval":     s.cleanupEvery.String(),
	}).Info("Starting sweep scheduler")

	_, _ = s.RunAutoDelete(ctx)
	_, _ = s.RunCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-autoDeleteTicker.C:
			_, _ = s.RunAutoDelete(ctx)
		case <-cleanupTicker.C:
			_, _ = s.RunCleanup(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunAutoDelete performs one auto-delete sweep and returns its result.
func (s *Scheduler) RunAutoDelete(ctx context.Context) (*lifecycle.SweepResult, error) {
	ctx, runID := tracing.WithRunID(ctx)
	entry := LogWithContext(ctx, s.logger).WithFields(logrus.Fields{
		LogFieldRunID: runID,
		LogFieldSweep: SweepAutoDelete,
	})
	entry.Debug("Starting auto-delete sweep")

	start := time.Now()
	res, err := s.sweeper.ProcessAutoDelete(ctx)
	if err != nil {
		entry.WithError(err).Error("Failed to run auto-delete sweep")
		return nil, err
	}

	entry = entry.WithFields(logrus.Fields{
		LogFieldCount:    res.DeletedCount,
		LogFieldDuration: time.Since(start).Milliseconds(),
	})
	if len(res.Warnings) > 0 {
		entry.WithField(LogFieldWarnings, len(res.Warnings)).Warn("Auto-delete sweep completed with warnings")
	} else {
		entry.Info("Auto-delete sweep completed")
	}
	return res, nil
}

// SetCleanupPolicy changes the orphan sweep and the soft-delete retention
// used from the next cleanup on. A retention of zero falls back to the
// manager's configured retention.
func (s *Scheduler) SetCleanupPolicy(deleteOrphaned bool, retentionDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupOptions.DeleteOrphaned = deleteOrphaned
	s.cleanupOptions.SoftDeleteRetentionDays = retentionDays
}

func (s *Scheduler) currentCleanupOptions() lifecycle.CleanupOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupOptions
}

// RunCleanup performs one server cleanup with the configured categories.
func (s *Scheduler) RunCleanup(ctx context.Context) (*lifecycle.CleanupResult, error) {
	opts := s.currentCleanupOptions()
	ctx, runID := tracing.WithRunID(ctx)
	entry := LogWithContext(ctx, s.logger).WithFields(logrus.Fields{
		LogFieldRunID:     runID,
		LogFieldSweep:     SweepCleanup,
		"delete_orphaned": opts.DeleteOrphaned,
	})
	entry.Info("Running scheduled cleanup")

	start := time.Now()
	res, err := s.sweeper.ServerCleanup(ctx, opts)
	if err != nil {
		entry.WithError(err).Error("Failed to run server cleanup")
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		LogFieldCount:         res.DeletedCount,
		LogFieldDuration:      time.Since(start).Milliseconds(),
		"orphaned":            res.Results.Orphaned,
		"expired_auto_delete": res.Results.ExpiredAutoDelete,
		"old_soft_deleted":    res.Results.OldSoftDeleted,
	}).Info("Successfully completed cleanup")
	return res, nil
}
