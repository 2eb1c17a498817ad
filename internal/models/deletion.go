package models

import "time"

// DeleteMode tags a deletion entry.
type DeleteMode string

const (
	DeleteModeForMe       DeleteMode = "forMe"
	DeleteModeForEveryone DeleteMode = "forEveryone"
	DeleteModeSoft        DeleteMode = "soft"
)

// Result-level modes. They never appear on a DeletionEntry.
const (
	DeleteModeMixed DeleteMode = "mixed"
	DeleteModeHard  DeleteMode = "hard"
)

// DeletionEntry records one user's deletion of a message. Entries are
// append-only; at most one exists per (UserID, Mode).
type DeletionEntry struct {
	UserID    string     `json:"userId"`
	DeletedAt time.Time  `json:"deletedAt"`
	Mode      DeleteMode `json:"deleteMode"`
}

type DeletionMetadata struct {
	DeletedForEveryone   bool       `json:"deletedForEveryone"`
	DeletedForEveryoneAt *time.Time `json:"deletedForEveryoneAt,omitempty"`
	DeletedForEveryoneBy string     `json:"deletedForEveryoneBy,omitempty"`
	GraceDeleteQueued    bool       `json:"graceDeleteQueued"`
	GraceDeleteRetries   int        `json:"graceDeleteRetries"`
	GraceRecipients      []string   `json:"graceRecipients,omitempty"`
	// HardDeleted has a column for completeness but reads false on every
	// loaded message: hard deletion removes the row.
	HardDeleted   bool       `json:"hardDeleted"`
	HardDeletedAt *time.Time `json:"hardDeletedAt,omitempty"`
}

type AutoDelete struct {
	Enabled       bool       `json:"enabled"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	DurationHours int        `json:"duration"`
}

// Expired reports whether the message is due for the auto-delete sweep.
func (a AutoDelete) Expired(now time.Time) bool {
	return a.Enabled && a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}
