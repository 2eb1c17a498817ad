// Package lifecycle implements message deletion and retention: per-user
// hiding, retraction for everyone, the grace-delete queue, soft and hard
// deletes, auto-delete expiry, bulk and media deletes, and the server
// cleanup sweeps.
package lifecycle

import (
	"context"
	"time"

	"inspiranet/internal/constants"
	"inspiranet/internal/errors"
	"inspiranet/internal/metrics"
	"inspiranet/internal/models"
	"inspiranet/internal/tracing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Store is the persistent message and conversation store.
type Store interface {
	FindMessages(ctx context.Context, q models.MessageQuery) ([]*models.Message, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	AppendDeletion(ctx context.Context, messageID string, entry models.DeletionEntry) (bool, error)
	MarkDeletedForEveryone(ctx context.Context, messageID, userID string, at time.Time) error
	MarkSoftDeleted(ctx context.Context, messageID string, at time.Time) error
	QueueGraceDelete(ctx context.Context, messageID string, recipients []string, at time.Time) error
	IncrementGraceRetries(ctx context.Context, messageID string, maxRetries int, at time.Time) (bool, error)
	SetAutoDelete(ctx context.Context, messageID string, hours int, expiresAt, at time.Time) error
	ClearMedia(ctx context.Context, messageID, placeholder string, at time.Time) error
	DeleteMessages(ctx context.Context, ids []string) (int64, error)

	LatestMessage(ctx context.Context, conversationID string) (*models.Message, error)
	UpdateConversationLastMessage(ctx context.Context, conversationID string, content *string, at *time.Time, now time.Time) error
}

// BlobStore deletes stored media by derived key.
type BlobStore interface {
	Delete(ctx context.Context, key string) error
}

// Config holds the policy parameters. Zero values take the defaults.
type Config struct {
	EveryoneWindow          time.Duration
	MaxGraceRetries         int
	SoftDeleteRetentionDays int
	FanoutLimit             int
	DurationPresets         map[string]int
	Now                     func() time.Time
}

func DefaultConfig() Config {
	presets := make(map[string]int, len(constants.DefaultAutoDeletePresets))
	for k, v := range constants.DefaultAutoDeletePresets {
		presets[k] = v
	}
	return Config{
		EveryoneWindow:          time.Duration(constants.DefaultEveryoneWindowMinutes) * time.Minute,
		MaxGraceRetries:         constants.DefaultMaxGraceRetries,
		SoftDeleteRetentionDays: constants.DefaultSoftDeleteRetentionDays,
		FanoutLimit:             constants.DefaultFanoutLimit,
		DurationPresets:         presets,
		Now:                     time.Now,
	}
}

// ConfigFromModel converts the lifecycle section of the application config.
func ConfigFromModel(lc models.LifecycleConfig) Config {
	return Config{
		EveryoneWindow:          time.Duration(lc.EveryoneWindowMinutes) * time.Minute,
		MaxGraceRetries:         lc.MaxGraceRetries,
		SoftDeleteRetentionDays: lc.SoftDeleteRetentionDays,
		FanoutLimit:             lc.FanoutLimit,
		DurationPresets:         lc.AutoDeletePresets,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.EveryoneWindow <= 0 {
		c.EveryoneWindow = d.EveryoneWindow
	}
	if c.MaxGraceRetries <= 0 {
		c.MaxGraceRetries = d.MaxGraceRetries
	}
	if c.SoftDeleteRetentionDays <= 0 {
		c.SoftDeleteRetentionDays = d.SoftDeleteRetentionDays
	}
	if c.FanoutLimit <= 0 {
		c.FanoutLimit = d.FanoutLimit
	}
	if len(c.DurationPresets) == 0 {
		c.DurationPresets = d.DurationPresets
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Manager applies the deletion policies against a Store.
type Manager struct {
	store    Store
	blobs    BlobStore
	cfg      Config
	logger   *errors.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

type Option func(*Manager)

func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		m.logger = errors.FromLogrus(logger)
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a Manager. blobs may be nil, in which case media
// deletions are skipped with a warning.
func NewManager(store Store, blobs BlobStore, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		blobs:    blobs,
		cfg:      cfg.withDefaults(),
		logger:   errors.FromLogrus(logrus.StandardLogger()),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) now() time.Time {
	return m.cfg.Now()
}

// forEach runs fn for every message with bounded concurrency. A failing
// message does not stop or undo the others; the first error is returned.
func (m *Manager) forEach(ctx context.Context, msgs []*models.Message, fn func(ctx context.Context, i int, msg *models.Message) error) error {
	var g errgroup.Group
	g.SetLimit(m.cfg.FanoutLimit)
	for i, msg := range msgs {
		g.Go(func() error {
			return fn(ctx, i, msg)
		})
	}
	return g.Wait()
}

// validateRequest runs struct validation and converts the first failure
// into an InvalidInput error.
func (m *Manager) validateRequest(req any) *errors.AppError {
	err := m.validate.Struct(req)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' validation")
	}
	return errors.NewValidationError("request", err.Error())
}

type opScope struct {
	m     *Manager
	name  string
	start time.Time
	span  oteltrace.Span
}

func (m *Manager) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *opScope) {
	attrs = append(attrs, attribute.String("lifecycle.operation", name))
	ctx, span := tracing.StartSpan(ctx, "lifecycle."+name, attrs...)
	return ctx, &opScope{m: m, name: name, start: time.Now(), span: span}
}

func targetAttrs(t Target) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("user_id", t.UserID),
		attribute.String("conversation_id", t.ConversationID),
		attribute.Int("message.count", len(t.MessageIDs)),
	}
}

func (s *opScope) end(o *Outcome, err error) {
	defer s.span.End()

	outcome := metrics.OutcomeSuccess
	fields := logrus.Fields{"operation": s.name}
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		s.span.RecordError(err)
		s.m.logger.LogRetryableError(err, "Lifecycle operation failed", fields)
	case o != nil && !o.Success:
		outcome = metrics.OutcomeFailure
		s.span.SetAttributes(attribute.String("lifecycle.error_code", string(o.Code)))
		fields["error_code"] = o.Code
		s.m.logger.WithFields(fields).Debug(o.Error)
	case o != nil && len(o.Warnings) > 0:
		s.span.SetAttributes(attribute.Int("lifecycle.warnings", len(o.Warnings)))
	}

	s.m.metrics.RecordOperation(s.name, outcome, time.Since(s.start))
}

type hasOutcome interface {
	outcome() *Outcome
}

func (o *Outcome) outcome() *Outcome { return o }

// track closes the operation scope and passes the result through.
func track[R hasOutcome](s *opScope, res R, err error) (R, error) {
	var o *Outcome
	if err == nil {
		o = res.outcome()
	}
	s.end(o, err)
	return res, err
}
