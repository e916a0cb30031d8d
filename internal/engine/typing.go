package engine

import (
	"context"
	"time"

	"messaging-sync/internal/observability"
)

// SendTyping signals the peer that the user is typing. Calls inside the
// debounce window are dropped. Failures are ignored.
func (e *Engine) SendTyping(ctx context.Context) {
	e.mu.Lock()
	if e.closed || e.activeID == 0 || e.debounceTimer != nil {
		e.mu.Unlock()
		return
	}
	id := e.activeID
	var t *time.Timer
	t = time.AfterFunc(e.opts.TypingDebounce, func() {
		e.mu.Lock()
		if e.debounceTimer == t {
			e.debounceTimer = nil
		}
		e.mu.Unlock()
	})
	e.debounceTimer = t
	e.mu.Unlock()

	if err := e.api.SendTyping(ctx, id); err != nil {
		e.log.Debug().Err(err).Str("op", "send_typing").Int64("conversation_id", id).Msg("typing signal failed")
	}
}

// PollTyping asks whether the peer is typing. A positive answer sets the flag and
// restarts the decay window; negative answers and errors leave it alone, so only
// decay clears it.
func (e *Engine) PollTyping(ctx context.Context) {
	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return
	case e.activeID == 0:
		e.mu.Unlock()
		observability.IncPollSkipped(string(ConcernTyping), "no_conversation")
		return
	case !e.activity.IsActive():
		e.mu.Unlock()
		observability.IncPollSkipped(string(ConcernTyping), "idle")
		return
	}
	id, gen := e.activeID, e.generation
	e.mu.Unlock()

	status, err := e.api.GetTypingStatus(ctx, id)
	if err != nil {
		e.log.Debug().Err(err).Str("op", "poll_typing").Int64("conversation_id", id).Msg("typing status poll failed")
		return
	}
	if !status.IsTyping {
		return
	}

	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		observability.IncStaleResponse("get_typing_status")
		return
	}
	changed := !e.peerTyping
	e.peerTyping = true
	e.armDecayLocked()
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

func (e *Engine) armDecayLocked() {
	if e.decayTimer != nil {
		e.decayTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(e.opts.TypingDecay, func() {
		e.mu.Lock()
		if e.decayTimer != t {
			e.mu.Unlock()
			return
		}
		e.decayTimer = nil
		e.peerTyping = false
		e.mu.Unlock()
		e.notify()
	})
	e.decayTimer = t
}
