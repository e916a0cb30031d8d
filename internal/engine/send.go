package engine

import (
	"context"
	"fmt"
	"strings"

	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
	"messaging-sync/internal/telemetry"
)

// SendMessage appends a pending message immediately, sends it, and then either
// replaces the pending entry with the confirmed message or removes it. There is
// no automatic retry.
func (e *Engine) SendMessage(ctx context.Context, body string) error {
	pending, gen, err := e.stage(body)
	if err != nil {
		return err
	}
	return e.deliver(ctx, pending, gen)
}

// QueueMessage stages body like SendMessage and delivers it in the background,
// returning the pending message. Delivery outlives conversation switches but not
// Close.
func (e *Engine) QueueMessage(body string) (models.ChatMessage, error) {
	pending, gen, err := e.stage(body)
	if err != nil {
		return models.ChatMessage{}, err
	}
	e.spawn(e.rootCtx, func(ctx context.Context) {
		_ = e.deliver(ctx, pending, gen)
	})
	return pending, nil
}

func (e *Engine) stage(body string) (models.ChatMessage, uint64, error) {
	if strings.TrimSpace(body) == "" {
		return models.ChatMessage{}, 0, ErrEmptyBody
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.ChatMessage{}, 0, ErrEngineClosed
	}
	if e.activeID == 0 {
		e.mu.Unlock()
		return models.ChatMessage{}, 0, ErrNoActiveConversation
	}
	pending := models.ChatMessage{
		ID:             e.nextTempIDLocked(),
		ConversationID: e.activeID,
		SenderID:       models.PendingSenderID,
		Body:           body,
		Type:           models.MessageTypeText,
		CreatedAt:      e.opts.Now(),
	}
	e.messages = append(e.messages, pending)
	gen := e.generation
	e.mu.Unlock()

	e.notify()
	return pending, gen, nil
}

func (e *Engine) deliver(ctx context.Context, pending models.ChatMessage, gen uint64) error {
	confirmed, err := e.api.SendMessage(ctx, pending.ConversationID, pending.Body)

	e.mu.Lock()
	current := !e.closed && gen == e.generation
	if current {
		if err != nil {
			e.removeLocked(pending.ID)
		} else {
			e.resolveLocked(pending.ID, confirmed)
			if confirmed.ID > e.cursor {
				e.cursor = confirmed.ID
			}
		}
	}
	e.mu.Unlock()

	if err != nil {
		observability.IncOptimisticSend("rolled_back")
		e.log.Debug().Err(err).Str("op", "send_message").Int64("conversation_id", pending.ConversationID).Msg("send failed, pending message removed")
		e.record(ctx, telemetry.EventMessageRolledBack, pending.ConversationID, err.Error())
		if current {
			e.notify()
		}
		return fmt.Errorf("send message: %w", err)
	}

	observability.IncOptimisticSend("confirmed")
	e.record(ctx, telemetry.EventMessageConfirmed, pending.ConversationID, fmt.Sprintf("message_id=%d", confirmed.ID))
	if !current {
		observability.IncStaleResponse("send_message")
		return nil
	}
	e.notify()
	e.FetchConversations(ctx)
	return nil
}

// nextTempIDLocked derives a temporary id from the wall clock, strictly
// increasing across calls.
func (e *Engine) nextTempIDLocked() int64 {
	id := e.opts.Now().UnixNano()
	if id <= e.lastTempID {
		id = e.lastTempID + 1
	}
	e.lastTempID = id
	return id
}

func (e *Engine) removeLocked(id int64) {
	for i, m := range e.messages {
		if m.ID == id {
			e.messages = append(e.messages[:i], e.messages[i+1:]...)
			return
		}
	}
}

// resolveLocked puts confirmed where the pending message sits. When a poll
// already delivered the confirmed id, the pending entry is dropped instead.
func (e *Engine) resolveLocked(tempID int64, confirmed models.ChatMessage) {
	idx := -1
	for i, m := range e.messages {
		if m.ID == confirmed.ID {
			e.removeLocked(tempID)
			return
		}
		if m.ID == tempID {
			idx = i
		}
	}
	if idx >= 0 {
		e.messages[idx] = confirmed
		return
	}
	e.messages = append(e.messages, confirmed)
}
