package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inspiranet/internal/models"

	"github.com/google/uuid"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// SaveMessage inserts a new message with its deletion entries and grace
// recipients. An empty ID is replaced with a generated UUID.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	if msg.Status == "" {
		msg.Status = models.MessageStatusSent
	}

	mediaRef, err := d.encryptor.encryptRef(msg.MediaRef)
	if err != nil {
		return err
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		meta := msg.Deletion
		auto := msg.AutoDelete
		if _, err := tx.ExecContext(ctx, InsertMessageQuery,
			msg.ID, msg.ConversationID, msg.SenderID, msg.Content, string(msg.Type),
			nullString(mediaRef), msg.MediaName, msg.MediaSize, string(msg.Status), boolToInt(msg.IsDeleted),
			boolToInt(meta.DeletedForEveryone), nullMillis(meta.DeletedForEveryoneAt), meta.DeletedForEveryoneBy,
			boolToInt(meta.GraceDeleteQueued), meta.GraceDeleteRetries, boolToInt(meta.HardDeleted), nullMillis(meta.HardDeletedAt),
			boolToInt(auto.Enabled), nullMillis(auto.ExpiresAt), auto.DurationHours,
			toMillis(msg.CreatedAt), toMillis(msg.UpdatedAt),
		); err != nil {
			return err
		}

		for _, entry := range msg.DeletedBy {
			if _, err := tx.ExecContext(ctx, InsertDeletionQuery,
				msg.ID, entry.UserID, string(entry.Mode), toMillis(entry.DeletedAt)); err != nil {
				return err
			}
		}
		for _, userID := range meta.GraceRecipients {
			if _, err := tx.ExecContext(ctx, InsertGraceRecipientQuery,
				msg.ID, userID, toMillis(msg.UpdatedAt)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, "save message")
}

// GetMessage returns nil, nil when the message does not exist.
func (d *Database) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msgs, err := d.FindMessages(ctx, models.MessageQuery{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

// FindMessages returns the messages matching q ordered by creation time.
// Large ID sets are queried in chunks.
func (d *Database) FindMessages(ctx context.Context, q models.MessageQuery) ([]*models.Message, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return nil, nil
	}

	var msgs []*models.Message
	if len(q.IDs) == 0 {
		found, err := d.findMessages(ctx, q)
		if err != nil {
			return nil, err
		}
		msgs = found
	} else {
		for _, ids := range chunk(q.IDs, maxInListSize) {
			part := q
			part.IDs = ids
			found, err := d.findMessages(ctx, part)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, found...)
		}
	}

	if err := d.loadDeletionState(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (d *Database) findMessages(ctx context.Context, q models.MessageQuery) ([]*models.Message, error) {
	where, args := buildMessageFilter(q)
	query := SelectMessagesQuery
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at, id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

func buildMessageFilter(q models.MessageQuery) (string, []any) {
	var conds []string
	var args []any

	if len(q.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(q.IDs))+")")
		args = append(args, stringArgs(q.IDs)...)
	}
	if q.ConversationID != "" {
		conds = append(conds, "conversation_id = ?")
		args = append(args, q.ConversationID)
	}
	if q.SenderID != "" {
		conds = append(conds, "sender_id = ?")
		args = append(args, q.SenderID)
	}
	if len(q.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, s := range q.Statuses {
			args = append(args, string(s))
		}
	}
	if len(q.Types) > 0 {
		conds = append(conds, "message_type IN ("+placeholders(len(q.Types))+")")
		for _, t := range q.Types {
			args = append(args, string(t))
		}
	}
	if q.MediaOnly {
		conds = append(conds, "media_ref IS NOT NULL AND media_ref != ''")
	}
	if q.GraceRecipient != "" {
		conds = append(conds,
			"grace_delete_queued = 1",
			"grace_delete_retries < ?",
			"id IN (SELECT message_id FROM grace_recipients WHERE user_id = ?)")
		args = append(args, q.GraceRetriesBelow, q.GraceRecipient)
	}
	if q.AutoDeleteExpiredAt != nil {
		conds = append(conds,
			"auto_delete_enabled = 1",
			"auto_delete_expires_at IS NOT NULL",
			"auto_delete_expires_at <= ?",
			"hard_deleted = 0")
		args = append(args, toMillis(*q.AutoDeleteExpiredAt))
	}
	if q.SoftDeletedBefore != nil {
		conds = append(conds, "is_deleted = 1", "updated_at < ?")
		args = append(args, toMillis(*q.SoftDeletedBefore))
	}
	if q.Orphaned {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM conversations c WHERE c.id = messages.conversation_id)")
	}

	return strings.Join(conds, " AND "), args
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg                                       models.Message
		msgType, status                           string
		mediaRef                                  sql.NullString
		isDeleted, everyone, queued, hard, autoOn int
		everyoneAt, hardAt, expiresAt             sql.NullInt64
		createdAt, updatedAt                      int64
	)

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msgType,
		&mediaRef, &msg.MediaName, &msg.MediaSize, &status, &isDeleted,
		&everyone, &everyoneAt, &msg.Deletion.DeletedForEveryoneBy,
		&queued, &msg.Deletion.GraceDeleteRetries, &hard, &hardAt,
		&autoOn, &expiresAt, &msg.AutoDelete.DurationHours,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Type = models.MessageType(msgType)
	msg.Status = models.MessageStatus(status)
	msg.IsDeleted = isDeleted == 1
	msg.Deletion.DeletedForEveryone = everyone == 1
	msg.Deletion.DeletedForEveryoneAt = timeFromNull(everyoneAt)
	msg.Deletion.GraceDeleteQueued = queued == 1
	msg.Deletion.HardDeleted = hard == 1
	msg.Deletion.HardDeletedAt = timeFromNull(hardAt)
	msg.AutoDelete.Enabled = autoOn == 1
	msg.AutoDelete.ExpiresAt = timeFromNull(expiresAt)
	msg.CreatedAt = fromMillis(createdAt)
	msg.UpdatedAt = fromMillis(updatedAt)

	if mediaRef.Valid {
		ref, err := d.encryptor.decryptRef(&mediaRef.String)
		if err != nil {
			return nil, err
		}
		msg.MediaRef = ref
	}

	return &msg, nil
}

func (d *Database) loadDeletionState(ctx context.Context, msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[string]*models.Message, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	for _, part := range chunk(ids, maxInListSize) {
		args := stringArgs(part)

		rows, err := d.db.QueryContext(ctx, fmt.Sprintf(SelectDeletionsQuery, placeholders(len(part))), args...)
		if err != nil {
			return fmt.Errorf("failed to query deletion entries: %w", err)
		}
		for rows.Next() {
			var messageID, userID, mode string
			var deletedAt int64
			if err := rows.Scan(&messageID, &userID, &mode, &deletedAt); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan deletion entry: %w", err)
			}
			if m, ok := byID[messageID]; ok {
				m.DeletedBy = append(m.DeletedBy, models.DeletionEntry{
					UserID:    userID,
					DeletedAt: fromMillis(deletedAt),
					Mode:      models.DeleteMode(mode),
				})
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate deletion entries: %w", err)
		}

		rows, err = d.db.QueryContext(ctx, fmt.Sprintf(SelectGraceRecipientsQuery, placeholders(len(part))), args...)
		if err != nil {
			return fmt.Errorf("failed to query grace recipients: %w", err)
		}
		for rows.Next() {
			var messageID, userID string
			if err := rows.Scan(&messageID, &userID); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan grace recipient: %w", err)
			}
			if m, ok := byID[messageID]; ok {
				m.Deletion.GraceRecipients = append(m.Deletion.GraceRecipients, userID)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate grace recipients: %w", err)
		}
	}

	return nil
}

// AppendDeletion records entry for messageID. It reports false when an entry
// for the same user and mode already exists.
func (d *Database) AppendDeletion(ctx context.Context, messageID string, entry models.DeletionEntry) (bool, error) {
	return retryableDBOperation(ctx, func() (bool, error) {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return false, err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, InsertDeletionQuery,
			messageID, entry.UserID, string(entry.Mode), toMillis(entry.DeletedAt))
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, tx.Commit()
		}

		if _, err := tx.ExecContext(ctx, TouchMessageQuery, toMillis(entry.DeletedAt), messageID); err != nil {
			return false, err
		}
		return true, tx.Commit()
	}, "append deletion entry")
}

func (d *Database) MarkDeletedForEveryone(ctx context.Context, messageID, userID string, at time.Time) error {
	return d.exec(ctx, "mark deleted for everyone", MarkDeletedForEveryoneQuery,
		toMillis(at), userID, toMillis(at), messageID)
}

func (d *Database) MarkSoftDeleted(ctx context.Context, messageID string, at time.Time) error {
	return d.exec(ctx, "mark soft deleted", MarkSoftDeletedQuery, toMillis(at), messageID)
}

// QueueGraceDelete flags the message for deferred retraction, resets the
// retry counter and replaces its recipient list.
func (d *Database) QueueGraceDelete(ctx context.Context, messageID string, recipients []string, at time.Time) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, QueueGraceDeleteQuery, toMillis(at), messageID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, ClearGraceRecipientsQuery, messageID); err != nil {
			return err
		}
		for _, userID := range recipients {
			if _, err := tx.ExecContext(ctx, InsertGraceRecipientQuery, messageID, userID, toMillis(at)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, "queue grace delete")
}

// IncrementGraceRetries counts one processing pass. The queued flag is
// cleared when the counter reaches maxRetries. It reports false when the
// message was no longer eligible.
func (d *Database) IncrementGraceRetries(ctx context.Context, messageID string, maxRetries int, at time.Time) (bool, error) {
	return retryableDBOperation(ctx, func() (bool, error) {
		res, err := d.db.ExecContext(ctx, IncrementGraceRetriesQuery, maxRetries, toMillis(at), messageID, maxRetries)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}, "increment grace retries")
}

func (d *Database) SetAutoDelete(ctx context.Context, messageID string, hours int, expiresAt, at time.Time) error {
	return d.exec(ctx, "set auto delete", SetAutoDeleteQuery,
		toMillis(expiresAt), hours, toMillis(at), messageID)
}

// ClearMedia replaces the content with placeholder and drops the media fields.
func (d *Database) ClearMedia(ctx context.Context, messageID, placeholder string, at time.Time) error {
	return d.exec(ctx, "clear media", ClearMediaQuery, placeholder, toMillis(at), messageID)
}

// DeleteMessages physically removes the messages. Deletion entries and grace
// recipients go with them through ON DELETE CASCADE.
func (d *Database) DeleteMessages(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, part := range chunk(ids, maxInListSize) {
		query := fmt.Sprintf(DeleteMessagesQuery, placeholders(len(part)))
		args := stringArgs(part)
		n, err := retryableDBOperation(ctx, func() (int64, error) {
			res, err := d.db.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, err
			}
			return res.RowsAffected()
		}, "delete messages")
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// LatestMessage returns the most recent stored message of the conversation,
// or nil when none remain.
func (d *Database) LatestMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	msg, err := d.scanMessage(d.db.QueryRowContext(ctx, SelectLatestMessageQuery, conversationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return msg, nil
}

func (d *Database) exec(ctx context.Context, operationName, query string, args ...any) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, query, args...)
		return err
	}, operationName)
}
