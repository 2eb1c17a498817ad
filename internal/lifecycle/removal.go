package lifecycle

import (
	"context"
	"fmt"

	"inspiranet/internal/blob"
	"inspiranet/internal/errors"
	"inspiranet/internal/metrics"
	"inspiranet/internal/models"
	"inspiranet/pkg/circuitbreaker"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// findTargets loads the requested messages that belong to the target
// conversation. Messages from other conversations are dropped silently.
func (m *Manager) findTargets(ctx context.Context, t Target, narrow func(q *models.MessageQuery)) ([]*models.Message, error) {
	q := models.MessageQuery{
		IDs:            lo.Uniq(t.MessageIDs),
		ConversationID: t.ConversationID,
	}
	if narrow != nil {
		narrow(&q)
	}
	msgs, err := m.store.FindMessages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load target messages: %w", err)
	}
	return msgs, nil
}

func messageIDs(msgs []*models.Message) []string {
	return lo.Map(msgs, func(msg *models.Message, _ int) string { return msg.ID })
}

func notFound(message string) *errors.AppError {
	return errors.NewNotFoundError("message", message)
}

// deleteBlob removes the media of msg from the blob store. Failures are
// reported through the returned warning and never escalate.
func (m *Manager) deleteBlob(ctx context.Context, msg *models.Message) (key string, deleted bool, warning string) {
	if !msg.HasMedia() {
		return "", false, ""
	}

	fields := logrus.Fields{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	}

	key, err := blob.DeriveKey(*msg.MediaRef)
	if err != nil {
		m.metrics.RecordMediaDeletion(metrics.MediaSkipped)
		m.logger.LogWarn(err, "Cannot derive blob key from media reference", fields)
		return "", false, fmt.Sprintf("media for message %s was not deleted: %v", msg.ID, err)
	}
	fields["media_key"] = key

	if m.blobs == nil {
		m.metrics.RecordMediaDeletion(metrics.MediaSkipped)
		return key, false, fmt.Sprintf("media for message %s was not deleted: no blob store configured", msg.ID)
	}

	err = m.blobs.Delete(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		m.metrics.RecordMediaDeletion(metrics.MediaMissing)
		m.logger.WithFields(fields).Warn("Media blob not found")
		return key, false, fmt.Sprintf("media for message %s was not found in the blob store", msg.ID)
	}
	if err != nil {
		depErr := errors.NewDependencyError("blob store", "delete", err).
			WithContext("message_id", msg.ID).
			WithContext("media_key", key)
		if circuitbreaker.IsOpenError(err) {
			m.metrics.RecordMediaDeletion(metrics.MediaRejected)
		} else {
			m.metrics.RecordMediaDeletion(metrics.MediaFailed)
		}
		m.logger.LogWarn(depErr, "Failed to delete media blob", fields)
		return key, false, fmt.Sprintf("media for message %s was not deleted: %v", msg.ID, err)
	}

	m.metrics.RecordMediaDeletion(metrics.MediaDeleted)
	m.logger.WithFields(fields).Debug("Deleted media blob")
	return key, true, ""
}

type removal struct {
	removed      int
	mediaDeleted int
	warnings     []string
}

// removeMessages optionally deletes media, physically removes the records in
// one batch and recomputes the last-message projection of every affected
// conversation once.
func (m *Manager) removeMessages(ctx context.Context, msgs []*models.Message, deleteMedia bool) (removal, error) {
	if len(msgs) == 0 {
		return removal{}, nil
	}

	var warn warnings
	deletedMedia := make([]bool, len(msgs))
	if deleteMedia {
		_ = m.forEach(ctx, msgs, func(ctx context.Context, i int, msg *models.Message) error {
			_, ok, w := m.deleteBlob(ctx, msg)
			deletedMedia[i] = ok
			if w != "" {
				warn.add(w)
			}
			return nil
		})
	}

	n, err := m.store.DeleteMessages(ctx, messageIDs(msgs))
	if err != nil {
		return removal{}, fmt.Errorf("failed to remove messages: %w", err)
	}

	convIDs := lo.Uniq(lo.Map(msgs, func(msg *models.Message, _ int) string { return msg.ConversationID }))
	if err := m.refreshProjections(ctx, convIDs); err != nil {
		return removal{}, err
	}

	return removal{
		removed:      int(n),
		mediaDeleted: lo.Count(deletedMedia, true),
		warnings:     warn.list(),
	}, nil
}

// refreshProjections sets each conversation's last message to its newest
// surviving message, or clears it when none remain. Missing conversations
// are skipped.
func (m *Manager) refreshProjections(ctx context.Context, conversationIDs []string) error {
	now := m.now()
	for _, id := range conversationIDs {
		conv, err := m.store.GetConversation(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load conversation %s: %w", id, err)
		}
		if conv == nil {
			continue
		}

		latest, err := m.store.LatestMessage(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load latest message of %s: %w", id, err)
		}

		if latest == nil {
			err = m.store.UpdateConversationLastMessage(ctx, id, nil, nil, now)
		} else {
			err = m.store.UpdateConversationLastMessage(ctx, id, &latest.Content, &latest.CreatedAt, now)
		}
		if err != nil {
			return fmt.Errorf("failed to update conversation %s: %w", id, err)
		}
	}
	return nil
}
