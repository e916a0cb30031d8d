package api

import (
	"context"
	"fmt"

	"messaging-sync/internal/models"
)

// MessagingAPI is the backend boundary the sync engine consumes.
type MessagingAPI interface {
	GetConversations(ctx context.Context) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID int64) ([]models.ChatMessage, error)
	// GetNewMessages returns messages with id strictly greater than afterID.
	GetNewMessages(ctx context.Context, conversationID, afterID int64) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, conversationID int64, body string) (models.ChatMessage, error)
	SendTyping(ctx context.Context, conversationID int64) error
	GetTypingStatus(ctx context.Context, conversationID int64) (models.TypingStatus, error)
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}
