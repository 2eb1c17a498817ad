package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inspiranet/internal/models"
)

// SaveConversation creates or updates a conversation and replaces its
// participant set.
func (d *Database) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, UpsertConversationQuery,
			conv.ID,
			nullString(conv.LastMessageContent),
			nullMillis(conv.LastMessageTime),
			toMillis(conv.CreatedAt),
			toMillis(conv.UpdatedAt),
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, ClearParticipantsQuery, conv.ID); err != nil {
			return err
		}
		for _, userID := range conv.Participants {
			if _, err := tx.ExecContext(ctx, InsertParticipantQuery, conv.ID, userID); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, "save conversation")
}

// GetConversation returns nil, nil when the conversation does not exist.
func (d *Database) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var (
		conv                 models.Conversation
		lastContent          sql.NullString
		lastTime             sql.NullInt64
		createdAt, updatedAt int64
	)

	err := d.db.QueryRowContext(ctx, SelectConversationQuery, id).Scan(
		&conv.ID, &lastContent, &lastTime, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if lastContent.Valid {
		conv.LastMessageContent = &lastContent.String
	}
	conv.LastMessageTime = timeFromNull(lastTime)
	conv.CreatedAt = fromMillis(createdAt)
	conv.UpdatedAt = fromMillis(updatedAt)

	rows, err := d.db.QueryContext(ctx, SelectParticipantsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		conv.Participants = append(conv.Participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return &conv, nil
}

// UpdateConversationLastMessage sets the last-message projection. Nil values
// clear it.
func (d *Database) UpdateConversationLastMessage(ctx context.Context, conversationID string, content *string, at *time.Time, now time.Time) error {
	return d.exec(ctx, "update conversation last message", UpdateConversationLastMessageQuery,
		nullString(content), nullMillis(at), toMillis(now), conversationID)
}

// DeleteConversation removes the conversation and its participants. Its
// messages are left in place for the orphan sweep.
func (d *Database) DeleteConversation(ctx context.Context, id string) error {
	return d.exec(ctx, "delete conversation", DeleteConversationQuery, id)
}
