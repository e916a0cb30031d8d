package engine

import (
	"context"

	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

// FetchMessages loads the full log of the active conversation. Zero clears the
// log and cursor without a request. Messages still awaiting confirmation are kept
// after the loaded history.
func (e *Engine) FetchMessages(ctx context.Context, conversationID int64) {
	if conversationID == 0 {
		e.mu.Lock()
		e.messages = nil
		e.cursor = 0
		e.mu.Unlock()
		e.notify()
		return
	}

	e.mu.Lock()
	if e.closed || conversationID != e.activeID {
		e.mu.Unlock()
		return
	}
	gen := e.generation
	e.loadingMessages = true
	e.mu.Unlock()
	e.notify()

	msgs, err := e.api.GetMessages(ctx, conversationID)

	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		observability.IncStaleResponse("get_messages")
		return
	}
	e.loadingMessages = false
	if err != nil {
		e.mu.Unlock()
		e.log.Debug().Err(err).Str("op", "fetch_messages").Int64("conversation_id", conversationID).Msg("message history fetch failed")
		e.notify()
		return
	}

	merged := make([]models.ChatMessage, 0, len(msgs)+1)
	merged = append(merged, msgs...)
	for _, m := range e.messages {
		if m.IsPending() {
			merged = append(merged, m)
		}
	}
	e.messages = merged
	e.cursor = 0
	if len(msgs) > 0 {
		e.cursor = msgs[len(msgs)-1].ID
	}
	e.mu.Unlock()
	e.notify()
}
