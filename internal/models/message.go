package models

import "time"

type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeFile  MessageType = "file"
	MessageTypePDF   MessageType = "pdf"
	MessageTypeAudio MessageType = "audio"
)

// MediaMessageTypes are the types selected by the "media" bulk filter.
var MediaMessageTypes = []MessageType{
	MessageTypeImage,
	MessageTypeVideo,
	MessageTypeFile,
	MessageTypePDF,
}

// IsMedia reports whether the type belongs to the media filter set.
func (t MessageType) IsMedia() bool {
	for _, mt := range MediaMessageTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// Message is a conversation message together with its deletion state.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	SenderID       string           `json:"senderId"`
	Content        string           `json:"content"`
	Type           MessageType      `json:"type"`
	MediaRef       *string          `json:"mediaRef,omitempty"`
	MediaName      string           `json:"mediaName,omitempty"`
	MediaSize      int64            `json:"mediaSize,omitempty"`
	Status         MessageStatus    `json:"status"`
	DeletedBy      []DeletionEntry  `json:"deletedBy,omitempty"`
	Deletion       DeletionMetadata `json:"deletionMetadata"`
	AutoDelete     AutoDelete       `json:"autoDelete"`
	IsDeleted      bool             `json:"isDeleted"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// HasMedia reports whether the message points at a stored blob.
func (m *Message) HasMedia() bool {
	return m.MediaRef != nil && *m.MediaRef != ""
}

// HasDeletion reports whether userID already has an entry with the given mode.
func (m *Message) HasDeletion(userID string, mode DeleteMode) bool {
	for _, e := range m.DeletedBy {
		if e.UserID == userID && e.Mode == mode {
			return true
		}
	}
	return false
}

// HasAnyDeletion reports whether userID has an entry of any mode.
func (m *Message) HasAnyDeletion(userID string) bool {
	for _, e := range m.DeletedBy {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

// IsGraceRecipient reports whether userID still has to receive the deletion notice.
func (m *Message) IsGraceRecipient(userID string) bool {
	for _, r := range m.Deletion.GraceRecipients {
		if r == userID {
			return true
		}
	}
	return false
}
