package engine

import (
	"context"

	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

// PollNewMessages asks for messages after the cursor and appends them. It is a
// no-op without an active conversation, while the client is idle, or while an
// earlier poll for the same conversation is still in flight.
func (e *Engine) PollNewMessages(ctx context.Context) {
	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return
	case e.activeID == 0:
		e.mu.Unlock()
		observability.IncPollSkipped(string(ConcernMessages), "no_conversation")
		return
	case !e.activity.IsActive():
		e.mu.Unlock()
		observability.IncPollSkipped(string(ConcernMessages), "idle")
		return
	case e.polling && e.pollGen == e.generation:
		e.mu.Unlock()
		observability.IncPollSkipped(string(ConcernMessages), "in_flight")
		return
	}
	id, after, gen := e.activeID, e.cursor, e.generation
	e.polling = true
	e.pollGen = gen
	e.mu.Unlock()

	msgs, err := e.api.GetNewMessages(ctx, id, after)

	e.mu.Lock()
	if e.pollGen == gen {
		e.polling = false
	}
	if err != nil {
		e.mu.Unlock()
		e.log.Debug().Err(err).Str("op", "poll_messages").Int64("conversation_id", id).Int64("after_id", after).Msg("incremental poll failed")
		return
	}
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		observability.IncStaleResponse("get_new_messages")
		return
	}
	appended := e.appendLocked(msgs)
	e.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	observability.AddMessagesAppended(appended)
	if appended > 0 {
		e.notify()
	}
	e.FetchConversations(ctx)
}

// appendLocked appends msgs in order, skipping ids already in the log, and moves
// the cursor forward to the highest id seen.
func (e *Engine) appendLocked(msgs []models.ChatMessage) int {
	seen := make(map[int64]struct{}, len(e.messages))
	for _, m := range e.messages {
		seen[m.ID] = struct{}{}
	}

	appended := 0
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		e.messages = append(e.messages, m)
		appended++
		if m.ID > e.cursor {
			e.cursor = m.ID
		}
	}
	return appended
}
