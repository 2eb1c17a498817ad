package lifecycle

import (
	"sync"
	"time"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"
)

// Target selects messages of one conversation on behalf of a user.
type Target struct {
	MessageIDs     []string `json:"messageIds" validate:"required,min=1,dive,required"`
	UserID         string   `json:"userId" validate:"required"`
	ConversationID string   `json:"conversationId" validate:"required"`
}

// Outcome is embedded in every result. Structured failures such as
// NOT_FOUND set Success to false and carry the code; degraded side effects
// are listed in Warnings without failing the operation.
type Outcome struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Code     errors.ErrorCode `json:"code,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

func failure(err *errors.AppError) Outcome {
	return Outcome{Success: false, Error: errors.GetUserMessage(err), Code: err.Code}
}

func succeeded(warnings []string) Outcome {
	return Outcome{Success: true, Warnings: warnings}
}

type DeleteResult struct {
	Outcome
	DeletedCount      int               `json:"deletedCount"`
	DeletedMediaCount int               `json:"deletedMediaCount,omitempty"`
	MessageIDs        []string          `json:"messageIds"`
	DeleteMode        models.DeleteMode `json:"deleteMode,omitempty"`
	ForEveryoneCount  int               `json:"forEveryoneCount,omitempty"`
	ForMeCount        int               `json:"forMeCount,omitempty"`
	// Warning explains a mixed retraction to the end user.
	Warning string `json:"warning,omitempty"`
}

type EveryoneOptions struct {
	// TimeWindow overrides the configured window when positive.
	TimeWindow     time.Duration
	SkipTimeWindow bool
}

type HardOptions struct {
	DeleteMedia bool
}

// QueueItem is one pending deletion notice.
type QueueItem struct {
	MessageID     string    `json:"messageId"`
	ParticipantID string    `json:"participantId"`
	QueuedAt      time.Time `json:"queuedAt"`
}

type GraceResult struct {
	Outcome
	QueuedCount int         `json:"queuedCount"`
	QueueItems  []QueueItem `json:"queueItems"`
}

type GraceProcessResult struct {
	Outcome
	ProcessedCount int      `json:"processedCount"`
	MessageIDs     []string `json:"messageIds"`
}

type AutoDeleteItem struct {
	MessageID     string    `json:"messageId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DurationHours int       `json:"duration"`
}

type AutoDeleteResult struct {
	Outcome
	SetCount int              `json:"setCount"`
	Messages []AutoDeleteItem `json:"messages"`
}

// SweepResult reports a periodic auto-delete pass.
type SweepResult struct {
	Outcome
	DeletedCount int      `json:"deletedCount"`
	MessageIDs   []string `json:"messageIds"`
}

type BulkResult struct {
	DeleteResult
	Filter     Filter `json:"filter"`
	BulkDelete bool   `json:"bulkDelete"`
}

type MediaOptions struct {
	// DeleteMessage removes the whole record instead of replacing the
	// content with a placeholder.
	DeleteMessage bool
	// DeleteLocalOnly skips the blob store.
	DeleteLocalOnly bool
}

type MediaItem struct {
	MessageID     string `json:"messageId"`
	MediaRef      string `json:"mediaRef"`
	Key           string `json:"key,omitempty"`
	RemoteDeleted bool   `json:"remoteDeleted"`
}

type MediaResult struct {
	Outcome
	DeletedMediaCount int         `json:"deletedMediaCount"`
	DeletedMedia      []MediaItem `json:"deletedMedia"`
	MessageIDs        []string    `json:"messageIds"`
}

type CleanupOptions struct {
	DeleteOrphaned          bool `json:"deleteOrphaned"`
	DeleteExpiredAutoDelete bool `json:"deleteExpiredAutoDelete"`
	DeleteOldSoftDeleted    bool `json:"deleteOldSoftDeleted"`
	// SoftDeleteRetentionDays falls back to the configured retention when zero.
	SoftDeleteRetentionDays int `json:"softDeleteRetentionDays" validate:"gte=0"`
}

// DefaultCleanupOptions enables every category with the configured retention.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		DeleteOrphaned:          true,
		DeleteExpiredAutoDelete: true,
		DeleteOldSoftDeleted:    true,
	}
}

type CleanupCounts struct {
	Orphaned          int `json:"orphaned"`
	ExpiredAutoDelete int `json:"expiredAutoDelete"`
	OldSoftDeleted    int `json:"oldSoftDeleted"`
}

type CleanupResult struct {
	Outcome
	DeletedCount int           `json:"deletedCount"`
	Results      CleanupCounts `json:"results"`
}

// warnings collects messages from concurrent workers.
type warnings struct {
	mu    sync.Mutex
	items []string
}

func (w *warnings) add(msg string) {
	w.mu.Lock()
	w.items = append(w.items, msg)
	w.mu.Unlock()
}

func (w *warnings) list() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		return nil
	}
	return append([]string(nil), w.items...)
}
