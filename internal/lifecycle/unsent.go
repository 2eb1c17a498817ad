package lifecycle

import (
	"context"

	"inspiranet/internal/models"

	"github.com/sirupsen/logrus"
)

var unsentStatuses = []models.MessageStatus{
	models.MessageStatusSending,
	models.MessageStatusFailed,
}

// UnsentMessageDelete removes the actor's own messages that were never
// delivered (status sending or failed), together with their media.
func (m *Manager) UnsentMessageDelete(ctx context.Context, t Target) (*DeleteResult, error) {
	ctx, op := m.begin(ctx, "unsentMessageDelete", targetAttrs(t)...)
	res, err := m.unsentMessageDelete(ctx, t)
	return track(op, res, err)
}

func (m *Manager) unsentMessageDelete(ctx context.Context, t Target) (*DeleteResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &DeleteResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, func(q *models.MessageQuery) {
		q.SenderID = t.UserID
		q.Statuses = unsentStatuses
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &DeleteResult{Outcome: failure(notFound("No unsent messages found"))}, nil
	}

	rm, err := m.removeMessages(ctx, msgs, true)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordMessagesDeleted(string(models.DeleteModeHard), rm.removed)
	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           rm.removed,
	}).Info("Unsent messages deleted")

	return &DeleteResult{
		Outcome:           succeeded(rm.warnings),
		DeletedCount:      rm.removed,
		DeletedMediaCount: rm.mediaDeleted,
		MessageIDs:        messageIDs(msgs),
	}, nil
}
