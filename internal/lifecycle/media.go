package lifecycle

import (
	"context"
	"fmt"

	"inspiranet/internal/blob"
	"inspiranet/internal/constants"
	"inspiranet/internal/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// MediaDelete removes the media of the targeted media-bearing messages.
// By default the message is kept with placeholder content; DeleteMessage
// removes the record as well.
func (m *Manager) MediaDelete(ctx context.Context, t Target, opts MediaOptions) (*MediaResult, error) {
	attrs := append(targetAttrs(t),
		attribute.Bool("delete_message", opts.DeleteMessage),
		attribute.Bool("delete_local_only", opts.DeleteLocalOnly))
	ctx, op := m.begin(ctx, "mediaDelete", attrs...)
	res, err := m.mediaDelete(ctx, t, opts)
	return track(op, res, err)
}

func (m *Manager) mediaDelete(ctx context.Context, t Target, opts MediaOptions) (*MediaResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &MediaResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, func(q *models.MessageQuery) {
		q.MediaOnly = true
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &MediaResult{Outcome: failure(notFound("No media messages found"))}, nil
	}

	var warn warnings
	items := make([]MediaItem, len(msgs))
	now := m.now()

	if err := m.forEach(ctx, msgs, func(ctx context.Context, i int, msg *models.Message) error {
		item := MediaItem{MessageID: msg.ID, MediaRef: *msg.MediaRef}

		if opts.DeleteLocalOnly {
			if key, err := blob.DeriveKey(*msg.MediaRef); err == nil {
				item.Key = key
			}
		} else {
			key, deleted, w := m.deleteBlob(ctx, msg)
			item.Key = key
			item.RemoteDeleted = deleted
			if w != "" {
				warn.add(w)
			}
		}
		items[i] = item

		if opts.DeleteMessage {
			return nil
		}
		if err := m.store.ClearMedia(ctx, msg.ID, constants.MediaDeletedPlaceholder, now); err != nil {
			return fmt.Errorf("failed to clear media of %s: %w", msg.ID, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if opts.DeleteMessage {
		if _, err := m.removeMessages(ctx, msgs, false); err != nil {
			return nil, err
		}
		m.metrics.RecordMessagesDeleted(string(models.DeleteModeHard), len(msgs))
	} else {
		if err := m.refreshProjections(ctx, []string{t.ConversationID}); err != nil {
			return nil, err
		}
	}

	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"remote_deleted":  lo.CountBy(items, func(it MediaItem) bool { return it.RemoteDeleted }),
		"delete_message":  opts.DeleteMessage,
	}).Info("Message media deleted")

	return &MediaResult{
		Outcome:           succeeded(warn.list()),
		DeletedMediaCount: len(msgs),
		DeletedMedia:      items,
		MessageIDs:        messageIDs(msgs),
	}, nil
}
