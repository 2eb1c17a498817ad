package models

import "time"

// MessageQuery selects stored messages. Zero-valued fields do not constrain
// the result; set fields are combined with AND.
type MessageQuery struct {
	IDs            []string
	ConversationID string
	SenderID       string
	Statuses       []MessageStatus
	Types          []MessageType
	MediaOnly      bool

	// GraceRecipient selects queued grace deletes addressed to this user
	// with fewer than GraceRetriesBelow attempts.
	GraceRecipient    string
	GraceRetriesBelow int

	AutoDeleteExpiredAt *time.Time
	SoftDeletedBefore   *time.Time
	Orphaned            bool
}
