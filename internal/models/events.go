package models

// View is the reactive view model a consuming UI renders.
type View struct {
	Conversations        []Conversation `json:"conversations"`
	Messages             []ChatMessage  `json:"messages"`
	ActiveConversationID int64          `json:"active_conversation_id,omitempty"`
	PeerTyping           bool           `json:"peer_typing"`
	LoadingConversations bool           `json:"loading_conversations"`
	LoadingMessages      bool           `json:"loading_messages"`
	TotalUnread          int            `json:"total_unread"`
	Cursor               int64          `json:"cursor"`
}

// BridgeEvent is pushed to view bridge websocket clients.
type BridgeEvent struct {
	Type string `json:"type"`
	View *View  `json:"view,omitempty"`
}
