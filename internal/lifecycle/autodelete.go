package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Duration is an auto-delete lifetime: either a named preset such as "7d"
// or a positive number of hours.
type Duration struct {
	Preset string
	Hours  int
}

func PresetDuration(name string) Duration { return Duration{Preset: name} }

func HoursDuration(hours int) Duration { return Duration{Hours: hours} }

// ParseDuration accepts a preset name or a decimal hour count. Whether a
// preset exists is decided when the duration is resolved.
func ParseDuration(s string) Duration {
	s = strings.TrimSpace(s)
	if hours, err := strconv.Atoi(s); err == nil {
		return Duration{Hours: hours}
	}
	return Duration{Preset: s}
}

func (d Duration) String() string {
	if d.Preset != "" {
		return d.Preset
	}
	return strconv.Itoa(d.Hours) + "h"
}

func (m *Manager) resolveHours(d Duration) (int, *errors.AppError) {
	if d.Preset != "" {
		if d.Hours != 0 {
			return 0, errors.NewValidationError("duration", "use either a preset or an hour count")
		}
		hours, ok := m.cfg.DurationPresets[d.Preset]
		if !ok || hours <= 0 {
			return 0, errors.NewValidationError("duration", fmt.Sprintf("unknown duration preset %q", d.Preset))
		}
		return hours, nil
	}
	if d.Hours <= 0 {
		return 0, errors.NewValidationError("duration", "must be a positive number of hours")
	}
	return d.Hours, nil
}

// SetAutoDelete makes the targeted messages expire after the given
// duration. Only the sender may enable it, for all messages or none.
func (m *Manager) SetAutoDelete(ctx context.Context, t Target, duration Duration) (*AutoDeleteResult, error) {
	attrs := append(targetAttrs(t), attribute.String("duration", duration.String()))
	ctx, op := m.begin(ctx, "setAutoDelete", attrs...)
	res, err := m.setAutoDelete(ctx, t, duration)
	return track(op, res, err)
}

func (m *Manager) setAutoDelete(ctx context.Context, t Target, duration Duration) (*AutoDeleteResult, error) {
	if verr := m.validateRequest(t); verr != nil {
		return &AutoDeleteResult{Outcome: failure(verr)}, nil
	}

	hours, verr := m.resolveHours(duration)
	if verr != nil {
		return &AutoDeleteResult{Outcome: failure(verr)}, nil
	}

	msgs, err := m.findTargets(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &AutoDeleteResult{Outcome: failure(notFound("No messages found"))}, nil
	}

	foreign := lo.Filter(msgs, func(msg *models.Message, _ int) bool { return msg.SenderID != t.UserID })
	if len(foreign) > 0 {
		return &AutoDeleteResult{Outcome: failure(errors.NewPermissionError(t.UserID, messageIDs(foreign),
			"Only the sender can set auto-delete"))}, nil
	}

	now := m.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	if err := m.forEach(ctx, msgs, func(ctx context.Context, _ int, msg *models.Message) error {
		if err := m.store.SetAutoDelete(ctx, msg.ID, hours, expiresAt, now); err != nil {
			return fmt.Errorf("failed to set auto-delete on %s: %w", msg.ID, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	items := lo.Map(msgs, func(msg *models.Message, _ int) AutoDeleteItem {
		return AutoDeleteItem{MessageID: msg.ID, ExpiresAt: expiresAt, DurationHours: hours}
	})

	m.logger.WithFields(logrus.Fields{
		"user_id":         t.UserID,
		"conversation_id": t.ConversationID,
		"count":           len(msgs),
		"duration_hours":  hours,
	}).Info("Auto-delete enabled")

	return &AutoDeleteResult{
		Outcome:  succeeded(nil),
		SetCount: len(msgs),
		Messages: items,
	}, nil
}

// ProcessAutoDelete removes every message whose auto-delete expiry has
// passed, deletes its media on a best-effort basis and recomputes the
// last-message projection of each affected conversation once.
func (m *Manager) ProcessAutoDelete(ctx context.Context) (*SweepResult, error) {
	ctx, op := m.begin(ctx, "processAutoDelete")
	res, err := m.processAutoDelete(ctx)
	return track(op, res, err)
}

func (m *Manager) processAutoDelete(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	now := m.now()

	msgs, err := m.store.FindMessages(ctx, models.MessageQuery{AutoDeleteExpiredAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to load expired messages: %w", err)
	}

	rm, err := m.removeMessages(ctx, msgs, true)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordSweep("autoDelete", time.Since(start))
	m.metrics.RecordSweepDeleted("expiredAutoDelete", rm.removed)
	if rm.removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"count":       rm.removed,
			"media_count": rm.mediaDeleted,
		}).Info("Auto-delete sweep removed expired messages")
	}

	return &SweepResult{
		Outcome:      succeeded(rm.warnings),
		DeletedCount: rm.removed,
		MessageIDs:   messageIDs(msgs),
	}, nil
}
