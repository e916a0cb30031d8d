package models

import "time"

// MessageType distinguishes plain text from attachment-bearing messages.
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeAttachment MessageType = "attachment"
)

// PendingSenderID marks a locally-synthesized message the server has not confirmed yet.
const PendingSenderID int64 = -1

// ChatMessage represents a message in a conversation log.
type ChatMessage struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	SenderID       int64       `json:"sender_id"`
	Body           string      `json:"body"`
	Type           MessageType `json:"type"`
	AttachmentURL  *string     `json:"attachment_url"`
	ReadAt         *time.Time  `json:"read_at"`
	CreatedAt      time.Time   `json:"created_at"`
}

// IsPending reports whether the message is an unresolved optimistic send.
func (m ChatMessage) IsPending() bool {
	return m.SenderID == PendingSenderID
}

// TypingStatus is the peer typing state reported by the backend.
type TypingStatus struct {
	IsTyping bool `json:"is_typing"`
}
