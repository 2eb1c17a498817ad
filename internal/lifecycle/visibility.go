package lifecycle

import (
	"context"
	"fmt"

	"inspiranet/internal/models"

	"github.com/sirupsen/logrus"
)

// DeleteForMe hides the targeted messages from the acting user only. The
// user does not need to be the sender. Repeating the call is a no-op for
// messages that are already hidden.
func (m *Manager) DeleteForMe(ctx context.Context, t Target) (*DeleteResult, error) {
	ctx, op := m.begin(ctx, "deleteForMe", targetAttrs(t)...)
	res, err := m.deleteForMe(ctx, t)
	return track(op, res, err)
}

func (m *Manager) deleteForMe(ctx context.Context, t Target) (*DeleteResult, error) {
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

	if err := m.hideForUser(ctx, msgs, t.UserID); err != nil {
		return nil, err
	}

	m.metrics.RecordMessagesDeleted(string(models.DeleteModeForMe), len(msgs))
	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"delete_mode":     models.DeleteModeForMe,
	}).Info("Messages deleted for user")

	return &DeleteResult{
		Outcome:      succeeded(nil),
		DeletedCount: len(msgs),
		MessageIDs:   messageIDs(msgs),
		DeleteMode:   models.DeleteModeForMe,
	}, nil
}

// hideForUser appends a forMe entry for userID to every message lacking one.
func (m *Manager) hideForUser(ctx context.Context, msgs []*models.Message, userID string) error {
	now := m.now()
	return m.forEach(ctx, msgs, func(ctx context.Context, _ int, msg *models.Message) error {
		if msg.HasDeletion(userID, models.DeleteModeForMe) {
			return nil
		}
		if _, err := m.store.AppendDeletion(ctx, msg.ID, models.DeletionEntry{
			UserID:    userID,
			DeletedAt: now,
			Mode:      models.DeleteModeForMe,
		}); err != nil {
			return fmt.Errorf("failed to hide message %s: %w", msg.ID, err)
		}
		return nil
	})
}
