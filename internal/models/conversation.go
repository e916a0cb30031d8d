package models

import "time"

// Participant is a member of a conversation as listed by the backend.
type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// MessagePreview is the denormalized last-message summary of a conversation.
type MessagePreview struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the backend-owned conversation summary the client caches.
type Conversation struct {
	ID           int64           `json:"id"`
	Participants []Participant   `json:"participants"`
	LastMessage  *MessagePreview `json:"last_message,omitempty"`
	UnreadCount  int             `json:"unread_count"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TotalUnread sums the unread counts of the given conversations.
func TotalUnread(conversations []Conversation) int {
	total := 0
	for _, c := range conversations {
		total += c.UnreadCount
	}
	return total
}
