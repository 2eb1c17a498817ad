package lifecycle

import (
	"context"
	"fmt"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// GraceDelete queues the targeted messages for deferred retraction delivery
// to participants who are offline. Recipients are participantIDs without the
// actor, or every other conversation participant when none are given.
func (m *Manager) GraceDelete(ctx context.Context, t Target, participantIDs []string) (*GraceResult, error) {
	ctx, op := m.begin(ctx, "graceDelete", targetAttrs(t)...)
	res, err := m.graceDelete(ctx, t, participantIDs)
	return track(op, res, err)
}

func (m *Manager) graceDelete(ctx context.Context, t Target, participantIDs []string) (*GraceResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &GraceResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &GraceResult{Outcome: failure(notFound("No messages found to queue"))}, nil
	}

	if len(participantIDs) == 0 {
		conv, err := m.store.GetConversation(ctx, t.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		if conv != nil {
			participantIDs = conv.Participants
		}
	}
	recipients := lo.Without(lo.Uniq(lo.Compact(participantIDs)), t.UserID)

	now := m.now()
	if err := m.forEach(ctx, msgs, func(ctx context.Context, _ int, msg *models.Message) error {
		if err := m.store.QueueGraceDelete(ctx, msg.ID, recipients, now); err != nil {
			return fmt.Errorf("failed to queue grace delete for %s: %w", msg.ID, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(msgs)*len(recipients))
	for _, msg := range msgs {
		for _, p := range recipients {
			items = append(items, QueueItem{MessageID: msg.ID, ParticipantID: p, QueuedAt: now})
		}
	}

	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"recipients":      len(recipients),
	}).Info("Messages queued for grace delete")

	return &GraceResult{
		Outcome:     succeeded(nil),
		QueuedCount: len(msgs),
		QueueItems:  items,
	}, nil
}

// ProcessGraceDeleteQueue runs one delivery pass for userID. Each queued
// message addressed to the user has its retry counter incremented; the
// message leaves the queue once the counter reaches MaxGraceRetries.
func (m *Manager) ProcessGraceDeleteQueue(ctx context.Context, userID string) (*GraceProcessResult, error) {
	ctx, op := m.begin(ctx, "processGraceDeleteQueue", attribute.String("user_id", userID))
	res, err := m.processGraceDeleteQueue(ctx, userID)
	return track(op, res, err)
}

func (m *Manager) processGraceDeleteQueue(ctx context.Context, userID string) (*GraceProcessResult, error) {
	if userID == "" {
		return &GraceProcessResult{Outcome: failure(errors.NewValidationError("UserID", "is required"))}, nil
	}

	msgs, err := m.store.FindMessages(ctx, models.MessageQuery{
		GraceRecipient:    userID,
		GraceRetriesBelow: m.cfg.MaxGraceRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load grace queue: %w", err)
	}

	now := m.now()
	processed := make([]bool, len(msgs))
	if err := m.forEach(ctx, msgs, func(ctx context.Context, i int, msg *models.Message) error {
		ok, err := m.store.IncrementGraceRetries(ctx, msg.ID, m.cfg.MaxGraceRetries, now)
		if err != nil {
			return fmt.Errorf("failed to process grace delete for %s: %w", msg.ID, err)
		}
		processed[i] = ok
		return nil
	}); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(msgs))
	for i, msg := range msgs {
		if processed[i] {
			ids = append(ids, msg.ID)
		}
	}

	m.metrics.RecordGraceRetries(len(ids))
	if len(ids) > 0 {
		m.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   len(ids),
		}).Info("Processed grace delete queue")
	}

	return &GraceProcessResult{
		Outcome:        succeeded(nil),
		ProcessedCount: len(ids),
		MessageIDs:     ids,
	}, nil
}
