package lifecycle

import (
	"context"
	"fmt"
	"time"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// BulkMode selects the policy applied by BulkDelete. The set of modes is
// closed: BulkForMe, BulkForEveryone, BulkHard and BulkSoft.
type BulkMode interface {
	String() string
	bulkMode()
}

type BulkForMe struct{}

type BulkForEveryone struct {
	TimeWindow     time.Duration
	SkipTimeWindow bool
}

type BulkHard struct {
	DeleteMedia bool
}

type BulkSoft struct{}

func (BulkForMe) String() string       { return string(models.DeleteModeForMe) }
func (BulkForEveryone) String() string { return string(models.DeleteModeForEveryone) }
func (BulkHard) String() string        { return string(models.DeleteModeHard) }
func (BulkSoft) String() string        { return string(models.DeleteModeSoft) }

func (BulkForMe) bulkMode()       {}
func (BulkForEveryone) bulkMode() {}
func (BulkHard) bulkMode()        {}
func (BulkSoft) bulkMode()        {}

// BulkOptions carries the per-mode options for ParseBulkMode. Options that
// the chosen mode does not accept are ignored.
type BulkOptions struct {
	TimeWindow     time.Duration
	SkipTimeWindow bool
	DeleteMedia    bool
}

// ParseBulkMode maps a mode name onto its BulkMode.
func ParseBulkMode(name string, opts BulkOptions) (BulkMode, error) {
	switch models.DeleteMode(name) {
	case models.DeleteModeForMe:
		return BulkForMe{}, nil
	case models.DeleteModeForEveryone:
		return BulkForEveryone{TimeWindow: opts.TimeWindow, SkipTimeWindow: opts.SkipTimeWindow}, nil
	case models.DeleteModeHard:
		return BulkHard{DeleteMedia: opts.DeleteMedia}, nil
	case models.DeleteModeSoft:
		return BulkSoft{}, nil
	default:
		return nil, errors.NewValidationError("deleteMode", fmt.Sprintf("unrecognized delete mode %q", name))
	}
}

// Filter narrows the targeted messages before a bulk delete.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterMedia Filter = "media"
)

// ParseFilter accepts "", "all" and "media". The empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterMedia:
		return FilterMedia, nil
	default:
		return "", errors.NewValidationError("filter", fmt.Sprintf("unrecognized filter %q", s))
	}
}

// BulkDelete applies mode to the targeted messages, restricted to media
// messages (image, video, file, pdf) when filter is FilterMedia.
func (m *Manager) BulkDelete(ctx context.Context, t Target, mode BulkMode, filter Filter) (*BulkResult, error) {
	modeName := "none"
	if mode != nil {
		modeName = mode.String()
	}
	attrs := append(targetAttrs(t),
		attribute.String("delete_mode", modeName),
		attribute.String("filter", string(filter)))
	ctx, op := m.begin(ctx, "bulkDelete", attrs...)
	res, err := m.bulkDelete(ctx, t, mode, filter)
	return track(op, res, err)
}

func (m *Manager) bulkDelete(ctx context.Context, t Target, mode BulkMode, filter Filter) (*BulkResult, error) {
	if filter == "" {
		filter = FilterAll
	}
	wrap := func(res *DeleteResult) *BulkResult {
		return &BulkResult{DeleteResult: *res, Filter: filter, BulkDelete: true}
	}
	reject := func(err *errors.AppError) *BulkResult {
		return wrap(&DeleteResult{Outcome: failure(err)})
	}

	if mode == nil {
		return reject(errors.NewValidationError("deleteMode", "delete mode is required")), nil
	}
	if _, err := ParseFilter(string(filter)); err != nil {
		appErr, _ := errors.As(err)
		return reject(appErr), nil
	}
	if verr := m.validateRequest(t); verr != nil {
		return reject(verr), nil
	}

	if filter == FilterMedia {
		msgs, err := m.findTargets(ctx, t, func(q *models.MessageQuery) {
			q.Types = models.MediaMessageTypes
		})
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			return reject(notFound("No media messages found to delete")), nil
		}
		t.MessageIDs = messageIDs(msgs)
	}

	var (
		res *DeleteResult
		err error
	)
	switch md := mode.(type) {
	case BulkForMe:
		res, err = m.deleteForMe(ctx, t)
	case BulkForEveryone:
		res, err = m.deleteForEveryone(ctx, t, EveryoneOptions{TimeWindow: md.TimeWindow, SkipTimeWindow: md.SkipTimeWindow})
	case BulkHard:
		res, err = m.hardDelete(ctx, t, HardOptions{DeleteMedia: md.DeleteMedia})
	case BulkSoft:
		res, err = m.softDelete(ctx, t)
	default:
		return reject(errors.NewValidationError("deleteMode", fmt.Sprintf("unsupported delete mode %s", mode))), nil
	}
	if err != nil {
		return nil, err
	}
	return wrap(res), nil
}
