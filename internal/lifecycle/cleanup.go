package lifecycle

import (
	"context"
	"fmt"
	"time"

	"inspiranet/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ServerCleanup runs the selected garbage-collection categories: orphaned
// messages, expired auto-delete messages and soft-deleted messages whose
// last update is strictly older than the retention cutoff.
func (m *Manager) ServerCleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error) {
	ctx, op := m.begin(ctx, "serverCleanup",
		attribute.Bool("delete_orphaned", opts.DeleteOrphaned),
		attribute.Bool("delete_expired_auto_delete", opts.DeleteExpiredAutoDelete),
		attribute.Bool("delete_old_soft_deleted", opts.DeleteOldSoftDeleted))
	res, err := m.serverCleanup(ctx, opts)
	return track(op, res, err)
}

func (m *Manager) serverCleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error) {
	if verr := m.validateRequest(opts); verr != nil {
		return &CleanupResult{Outcome: failure(verr)}, nil
	}

	start := time.Now()
	var counts CleanupCounts
	var warns []string

	if opts.DeleteOrphaned {
		orphans, err := m.store.FindMessages(ctx, models.MessageQuery{Orphaned: true})
		if err != nil {
			return nil, fmt.Errorf("failed to load orphaned messages: %w", err)
		}
		if len(orphans) > 0 {
			n, err := m.store.DeleteMessages(ctx, messageIDs(orphans))
			if err != nil {
				return nil, fmt.Errorf("failed to remove orphaned messages: %w", err)
			}
			counts.Orphaned = int(n)
		}
		m.metrics.RecordSweepDeleted("orphaned", counts.Orphaned)
	}

	if opts.DeleteExpiredAutoDelete {
		sweep, err := m.processAutoDelete(ctx)
		if err != nil {
			return nil, err
		}
		counts.ExpiredAutoDelete = sweep.DeletedCount
		warns = append(warns, sweep.Warnings...)
	}

	if opts.DeleteOldSoftDeleted {
		days := opts.SoftDeleteRetentionDays
		if days == 0 {
			days = m.cfg.SoftDeleteRetentionDays
		}
		cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)

		old, err := m.store.FindMessages(ctx, models.MessageQuery{SoftDeletedBefore: &cutoff})
		if err != nil {
			return nil, fmt.Errorf("failed to load soft-deleted messages: %w", err)
		}
		rm, err := m.removeMessages(ctx, old, true)
		if err != nil {
			return nil, err
		}
		counts.OldSoftDeleted = rm.removed
		warns = append(warns, rm.warnings...)
		m.metrics.RecordSweepDeleted("oldSoftDeleted", counts.OldSoftDeleted)
	}

	total := counts.Orphaned + counts.ExpiredAutoDelete + counts.OldSoftDeleted
	m.metrics.RecordSweep("serverCleanup", time.Since(start))
	m.logger.WithFields(logrus.Fields{
		"count":               total,
		"orphaned":            counts.Orphaned,
		"expired_auto_delete": counts.ExpiredAutoDelete,
		"old_soft_deleted":    counts.OldSoftDeleted,
	}).Info("Server cleanup completed")

	return &CleanupResult{
		Outcome:      succeeded(warns),
		DeletedCount: total,
		Results:      counts,
	}, nil
}
