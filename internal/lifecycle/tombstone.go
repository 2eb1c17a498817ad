package lifecycle

import (
	"context"
	"fmt"

	"inspiranet/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// SoftDelete sets the tombstone flag and records a soft entry for the actor.
// The record stays in the store until the retention sweep purges it.
func (m *Manager) SoftDelete(ctx context.Context, t Target) (*DeleteResult, error) {
	ctx, op := m.begin(ctx, "softDelete", targetAttrs(t)...)
	res, err := m.softDelete(ctx, t)
	return track(op, res, err)
}

func (m *Manager) softDelete(ctx context.Context, t Target) (*DeleteResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &DeleteResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &DeleteResult{Outcome: failure(notFound("No messages found to delete"))}, nil
	}

	now := m.now()
	if err := m.forEach(ctx, msgs, func(ctx context.Context, _ int, msg *models.Message) error {
		if !msg.IsDeleted {
			if err := m.store.MarkSoftDeleted(ctx, msg.ID, now); err != nil {
				return fmt.Errorf("failed to soft delete message %s: %w", msg.ID, err)
			}
		}
		if msg.HasDeletion(t.UserID, models.DeleteModeSoft) {
			return nil
		}
		if _, err := m.store.AppendDeletion(ctx, msg.ID, models.DeletionEntry{
			UserID:    t.UserID,
			DeletedAt: now,
			Mode:      models.DeleteModeSoft,
		}); err != nil {
			return fmt.Errorf("failed to record soft delete of %s: %w", msg.ID, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	m.metrics.RecordMessagesDeleted(string(models.DeleteModeSoft), len(msgs))
	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"delete_mode":     models.DeleteModeSoft,
	}).Info("Messages soft deleted")

	return &DeleteResult{
		Outcome:      succeeded(nil),
		DeletedCount: len(msgs),
		MessageIDs:   messageIDs(msgs),
		DeleteMode:   models.DeleteModeSoft,
	}, nil
}

// HardDelete physically removes the targeted messages. With DeleteMedia the
// attached blobs are deleted first on a best-effort basis.
func (m *Manager) HardDelete(ctx context.Context, t Target, opts HardOptions) (*DeleteResult, error) {
	attrs := append(targetAttrs(t), attribute.Bool("delete_media", opts.DeleteMedia))
	ctx, op := m.begin(ctx, "hardDelete", attrs...)
	res, err := m.hardDelete(ctx, t, opts)
	return track(op, res, err)
}

func (m *Manager) hardDelete(ctx context.Context, t Target, opts HardOptions) (*DeleteResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &DeleteResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &DeleteResult{Outcome: failure(notFound("No messages found to delete"))}, nil
	}

	rm, err := m.removeMessages(ctx, msgs, opts.DeleteMedia)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordMessagesDeleted(string(models.DeleteModeHard), rm.removed)
	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           rm.removed,
		"media_count":     rm.mediaDeleted,
		"delete_mode":     models.DeleteModeHard,
	}).Info("Messages hard deleted")

	return &DeleteResult{
		Outcome:           succeeded(rm.warnings),
		DeletedCount:      rm.removed,
		DeletedMediaCount: rm.mediaDeleted,
		MessageIDs:        messageIDs(msgs),
		DeleteMode:        models.DeleteModeHard,
	}, nil
}
