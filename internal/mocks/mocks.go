package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-sync/internal/api"
	"messaging-sync/internal/models"
)

type MessagingAPIMock struct {
	mock.Mock
}

func (m *MessagingAPIMock) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *MessagingAPIMock) GetMessages(ctx context.Context, conversationID int64) ([]models.ChatMessage, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessagingAPIMock) GetNewMessages(ctx context.Context, conversationID, afterID int64) ([]models.ChatMessage, error) {
	args := m.Called(ctx, conversationID, afterID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessagingAPIMock) SendMessage(ctx context.Context, conversationID int64, body string) (models.ChatMessage, error) {
	args := m.Called(ctx, conversationID, body)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *MessagingAPIMock) SendTyping(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *MessagingAPIMock) GetTypingStatus(ctx context.Context, conversationID int64) (models.TypingStatus, error) {
	args := m.Called(ctx, conversationID)
	var status models.TypingStatus
	if val := args.Get(0); val != nil {
		status = val.(models.TypingStatus)
	}
	return status, args.Error(1)
}

type RecorderMock struct {
	mock.Mock
}

func (m *RecorderMock) RecordSyncEvent(ctx context.Context, name string, conversationID int64, detail string) {
	m.Called(ctx, name, conversationID, detail)
}

var _ api.MessagingAPI = (*MessagingAPIMock)(nil)

type EngineMock struct {
	mock.Mock
}

func (m *EngineMock) Snapshot() models.View {
	args := m.Called()
	return args.Get(0).(models.View)
}

func (m *EngineMock) SetActiveConversation(id int64) {
	m.Called(id)
}

func (m *EngineMock) QueueMessage(body string) (models.ChatMessage, error) {
	args := m.Called(body)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *EngineMock) SendTyping(ctx context.Context) {
	m.Called(ctx)
}

type ActivityMock struct {
	mock.Mock
}

func (m *ActivityMock) Focus() {
	m.Called()
}

func (m *ActivityMock) Blur() {
	m.Called()
}

func (m *ActivityMock) SetVisibility(visible bool) {
	m.Called(visible)
}
