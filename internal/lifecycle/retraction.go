package lifecycle

import (
	"context"
	"fmt"
	"time"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// DeleteForEveryone retracts the targeted messages for every participant.
// The acting user must have sent all of them, otherwise nothing changes.
// Messages older than the window fall back to DeleteForMe for the actor.
func (m *Manager) DeleteForEveryone(ctx context.Context, t Target, opts EveryoneOptions) (*DeleteResult, error) {
	attrs := append(targetAttrs(t), attribute.Bool("skip_time_window", opts.SkipTimeWindow))
	ctx, op := m.begin(ctx, "deleteForEveryone", attrs...)
	res, err := m.deleteForEveryone(ctx, t, opts)
	return track(op, res, err)
}

func (m *Manager) deleteForEveryone(ctx context.Context, t Target, opts EveryoneOptions) (*DeleteResult, error) {
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

	foreign := lo.Filter(msgs, func(msg *models.Message, _ int) bool { return msg.SenderID != t.UserID })
	if len(foreign) > 0 {
		return &DeleteResult{Outcome: failure(errors.NewPermissionError(t.UserID, messageIDs(foreign),
			"You can only delete your own messages for everyone"))}, nil
	}

	window := m.cfg.EveryoneWindow
	if opts.TimeWindow > 0 {
		window = opts.TimeWindow
	}

	now := m.now()
	var inWindow, expired []*models.Message
	for _, msg := range msgs {
		if opts.SkipTimeWindow || now.Sub(msg.CreatedAt) <= window {
			inWindow = append(inWindow, msg)
		} else {
			expired = append(expired, msg)
		}
	}

	if len(inWindow) > 0 {
		if err := m.retract(ctx, inWindow, t); err != nil {
			return nil, err
		}
	}
	if len(expired) > 0 {
		if err := m.hideForUser(ctx, expired, t.UserID); err != nil {
			return nil, err
		}
	}

	res := &DeleteResult{
		Outcome:          succeeded(nil),
		DeletedCount:     len(msgs),
		MessageIDs:       messageIDs(msgs),
		ForEveryoneCount: len(inWindow),
		ForMeCount:       len(expired),
	}
	switch {
	case len(expired) == 0:
		res.DeleteMode = models.DeleteModeForEveryone
	case len(inWindow) == 0:
		res.DeleteMode = models.DeleteModeForMe
		res.Warning = fmt.Sprintf("Messages older than %s were only deleted for you", formatWindow(window))
	default:
		res.DeleteMode = models.DeleteModeMixed
		res.Warning = fmt.Sprintf("%d of %d messages were older than %s and were only deleted for you",
			len(expired), len(msgs), formatWindow(window))
	}

	m.metrics.RecordMessagesDeleted(string(models.DeleteModeForEveryone), len(inWindow))
	m.metrics.RecordMessagesDeleted(string(models.DeleteModeForMe), len(expired))
	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"delete_mode":     res.DeleteMode,
		"for_everyone":    len(inWindow),
		"fallback_for_me": len(expired),
	}).Info("Messages deleted for everyone")

	return res, nil
}

// retract marks the messages deleted for everyone and gives every
// participant without an existing entry a forEveryone entry.
func (m *Manager) retract(ctx context.Context, msgs []*models.Message, t Target) error {
	conv, err := m.store.GetConversation(ctx, t.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	var participants []string
	if conv != nil {
		participants = conv.Participants
	}

	now := m.now()
	return m.forEach(ctx, msgs, func(ctx context.Context, _ int, msg *models.Message) error {
		if err := m.store.MarkDeletedForEveryone(ctx, msg.ID, t.UserID, now); err != nil {
			return fmt.Errorf("failed to retract message %s: %w", msg.ID, err)
		}
		for _, p := range participants {
			if msg.HasAnyDeletion(p) {
				continue
			}
			if _, err := m.store.AppendDeletion(ctx, msg.ID, models.DeletionEntry{
				UserID:    p,
				DeletedAt: now,
				Mode:      models.DeleteModeForEveryone,
			}); err != nil {
				return fmt.Errorf("failed to retract message %s for %s: %w", msg.ID, p, err)
			}
		}
		return nil
	})
}

func formatWindow(d time.Duration) string {
	switch {
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d%time.Second == 0:
		return plural(int(d/time.Second), "second")
	}
	return d.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
