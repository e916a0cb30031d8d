package engine

import (
	"context"

	"messaging-sync/internal/observability"
)

// FetchConversations replaces the conversation list with the server's. On
// failure the previous list is kept. The initial loading flag is cleared after
// the first attempt either way. A response issued before one that was already
// applied is dropped.
func (e *Engine) FetchConversations(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.listSeq++
	seq := e.listSeq
	e.mu.Unlock()

	convs, err := e.api.GetConversations(ctx)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	changed := e.loadingConversations
	e.loadingConversations = false
	switch {
	case err != nil:
		e.log.Debug().Err(err).Str("op", "fetch_conversations").Msg("conversation list fetch failed")
	case seq <= e.listApplied:
		observability.IncStaleResponse("get_conversations")
	default:
		e.listApplied = seq
		e.conversations = convs
		changed = true
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}
