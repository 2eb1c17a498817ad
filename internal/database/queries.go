package database

const maxInListSize = 500

const messageColumns = `
	id, conversation_id, sender_id, content, message_type,
	media_ref, media_name, media_size, status, is_deleted,
	deleted_for_everyone, deleted_for_everyone_at, deleted_for_everyone_by,
	grace_delete_queued, grace_delete_retries, hard_deleted, hard_deleted_at,
	auto_delete_enabled, auto_delete_expires_at, auto_delete_duration_hours,
	created_at, updated_at`

// Message queries
const (
	InsertMessageQuery = `
		INSERT INTO messages (` + messageColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	SelectMessagesQuery = `SELECT ` + messageColumns + ` FROM messages`

	SelectLatestMessageQuery = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	MarkDeletedForEveryoneQuery = `
		UPDATE messages
		SET deleted_for_everyone = 1, deleted_for_everyone_at = ?, deleted_for_everyone_by = ?, updated_at = ?
		WHERE id = ?
	`

	MarkSoftDeletedQuery = `
		UPDATE messages
		SET is_deleted = 1, updated_at = ?
		WHERE id = ?
	`

	QueueGraceDeleteQuery = `
		UPDATE messages
		SET grace_delete_queued = 1, grace_delete_retries = 0, updated_at = ?
		WHERE id = ?
	`

	// The WHERE guard keeps concurrent passes from pushing the counter past the ceiling.
	IncrementGraceRetriesQuery = `
		UPDATE messages
		SET grace_delete_retries = grace_delete_retries + 1,
		    grace_delete_queued = CASE WHEN grace_delete_retries + 1 >= ? THEN 0 ELSE 1 END,
		    updated_at = ?
		WHERE id = ? AND grace_delete_queued = 1 AND grace_delete_retries < ?
	`

	SetAutoDeleteQuery = `
		UPDATE messages
		SET auto_delete_enabled = 1, auto_delete_expires_at = ?, auto_delete_duration_hours = ?, updated_at = ?
		WHERE id = ?
	`

	ClearMediaQuery = `
		UPDATE messages
		SET content = ?, media_ref = NULL, media_name = '', media_size = 0, updated_at = ?
		WHERE id = ?
	`
)

// Deletion audit and grace recipient queries
const (
	InsertDeletionQuery = `
		INSERT OR IGNORE INTO message_deletions (message_id, user_id, delete_mode, deleted_at)
		VALUES (?, ?, ?, ?)
	`

	TouchMessageQuery = `UPDATE messages SET updated_at = MAX(updated_at, ?) WHERE id = ?`

	SelectDeletionsQuery = `
		SELECT message_id, user_id, delete_mode, deleted_at
		FROM message_deletions
		WHERE message_id IN (%s)
		ORDER BY id
	`

	ClearGraceRecipientsQuery = `DELETE FROM grace_recipients WHERE message_id = ?`

	InsertGraceRecipientQuery = `
		INSERT OR IGNORE INTO grace_recipients (message_id, user_id, queued_at)
		VALUES (?, ?, ?)
	`

	SelectGraceRecipientsQuery = `
		SELECT message_id, user_id
		FROM grace_recipients
		WHERE message_id IN (%s)
		ORDER BY queued_at, user_id
	`

	DeleteMessagesQuery = `DELETE FROM messages WHERE id IN (%s)`
)

// Conversation queries
const (
	UpsertConversationQuery = `
		INSERT INTO conversations (id, last_message_content, last_message_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_message_content = excluded.last_message_content,
			last_message_time = excluded.last_message_time,
			updated_at = excluded.updated_at
	`

	ClearParticipantsQuery = `DELETE FROM conversation_participants WHERE conversation_id = ?`

	InsertParticipantQuery = `
		INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id)
		VALUES (?, ?)
	`

	SelectConversationQuery = `
		SELECT id, last_message_content, last_message_time, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`

	SelectParticipantsQuery = `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY rowid
	`

	UpdateConversationLastMessageQuery = `
		UPDATE conversations
		SET last_message_content = ?, last_message_time = ?, updated_at = ?
		WHERE id = ?
	`

	DeleteConversationQuery = `DELETE FROM conversations WHERE id = ?`
)
