package models

import "time"

// Conversation holds the participant set and the denormalized last-message
// projection shown in conversation lists.
type Conversation struct {
	ID                 string     `json:"id"`
	Participants       []string   `json:"participants"`
	LastMessageContent *string    `json:"lastMessageContent,omitempty"`
	LastMessageTime    *time.Time `json:"lastMessageTime,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// IsParticipant reports whether userID belongs to the conversation.
func (c *Conversation) IsParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
