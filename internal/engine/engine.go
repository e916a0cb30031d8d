// Package engine keeps a local view of conversations and of the active
// conversation's message log in step with the messaging API by adaptive polling.
//
// All state lives behind one mutex. Network calls run without the lock and their
// results are tagged with the conversation generation (or a list sequence number)
// current when they were issued; results whose tag no longer matches are dropped.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"messaging-sync/internal/activity"
	"messaging-sync/internal/api"
	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
	"messaging-sync/internal/telemetry"
)

var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrEmptyBody            = errors.New("message body is empty")
	ErrEngineClosed         = errors.New("engine closed")
)

// EventRecorder receives notable sync events. telemetry.EventEmitter implements it.
type EventRecorder interface {
	RecordSyncEvent(ctx context.Context, name string, conversationID int64, detail string)
}

type Options struct {
	Conversations Cadence
	Messages      Cadence
	Typing        Cadence

	// TypingDebounce suppresses repeated outbound typing signals.
	TypingDebounce time.Duration
	// TypingDecay is how long an inbound typing observation stays true.
	TypingDecay time.Duration

	Recorder EventRecorder
	Now      func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Conversations:  Cadence{Active: 15 * time.Second, Idle: 60 * time.Second},
		Messages:       Cadence{Active: 3 * time.Second, Idle: 15 * time.Second},
		Typing:         Cadence{Active: 2 * time.Second, Idle: 10 * time.Second},
		TypingDebounce: 3 * time.Second,
		TypingDecay:    4 * time.Second,
		Now:            time.Now,
	}
}

// Engine is the conversation synchronization engine.
type Engine struct {
	api      api.MessagingAPI
	activity activity.Source
	opts     Options
	sched    *Coordinator
	log      zerolog.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	// switchMu serializes Start and conversation switches so timers are always
	// rebound in the order the switches happened.
	switchMu sync.Mutex

	mu      sync.Mutex
	started bool
	closed  bool

	conversations        []models.Conversation
	loadingConversations bool
	listSeq              uint64
	listApplied          uint64

	activeID        int64
	generation      uint64
	convCtx         context.Context
	convCancel      context.CancelFunc
	messages        []models.ChatMessage
	cursor          int64
	loadingMessages bool
	polling         bool
	pollGen         uint64
	lastTempID      int64

	peerTyping    bool
	decayTimer    *time.Timer
	debounceTimer *time.Timer

	unsubscribeFocus func()
	subs             map[int]func(models.View)
	nextSub          int
}

// New builds an engine. Nothing runs until Start.
func New(client api.MessagingAPI, src activity.Source, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		api:                  client,
		activity:             src,
		opts:                 opts,
		sched:                NewCoordinator(src),
		log:                  observability.Logger().With().Str("component", "engine").Logger(),
		rootCtx:              ctx,
		rootCancel:           cancel,
		loadingConversations: true,
		subs:                 make(map[int]func(models.View)),
	}
}

// Start mounts the engine: it loads the conversation list, starts the list
// timer, and listens for focus if the activity source reports it.
func (e *Engine) Start() {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	activeID := e.activeID
	convCtx := e.convCtx
	e.mu.Unlock()

	if n, ok := e.activity.(activity.Notifier); ok {
		unsubscribe := n.Subscribe(e.HandleFocus)
		e.mu.Lock()
		e.unsubscribeFocus = unsubscribe
		e.mu.Unlock()
	}

	e.spawn(e.rootCtx, e.FetchConversations)
	e.sched.Start(e.rootCtx, ConcernConversations, e.opts.Conversations, e.FetchConversations)
	if activeID != 0 && convCtx != nil {
		e.startConversationTasks(convCtx)
	}
}

// Close unmounts the engine. Timers are cancelled and in-flight responses that
// complete afterwards are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTypingTimersLocked()
	e.cancelConversationLocked()
	unsubscribe := e.unsubscribeFocus
	e.unsubscribeFocus = nil
	e.subs = make(map[int]func(models.View))
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.rootCancel()
	e.sched.StopAll()
	e.wg.Wait()
}

// HandleFocus re-derives the cadence of every live timer.
func (e *Engine) HandleFocus() {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.sched.RestartAll()
}

// SetActiveConversation switches the active conversation. Zero deselects.
func (e *Engine) SetActiveConversation(id int64) {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	e.mu.Lock()
	if e.closed || id == e.activeID {
		e.mu.Unlock()
		return
	}
	prev := e.activeID
	e.activeID = id
	e.generation++
	e.messages = nil
	e.cursor = 0
	e.polling = false
	e.peerTyping = false
	e.loadingMessages = false
	e.stopTypingTimersLocked()
	e.cancelConversationLocked()
	var convCtx context.Context
	if id != 0 {
		convCtx, e.convCancel = context.WithCancel(e.rootCtx)
		e.convCtx = convCtx
	}
	started := e.started
	e.mu.Unlock()

	e.log.Debug().Int64("from", prev).Int64("to", id).Msg("active conversation changed")
	e.record(e.rootCtx, telemetry.EventConversationSwitched, id, "")
	e.notify()

	if id == 0 {
		e.sched.Stop(ConcernMessages)
		e.sched.Stop(ConcernTyping)
		return
	}
	if started {
		e.startConversationTasks(convCtx)
	}
	e.spawn(convCtx, func(ctx context.Context) { e.FetchMessages(ctx, id) })
}

// ActiveConversation returns the active conversation id, zero when none.
func (e *Engine) ActiveConversation() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

// Snapshot returns a copy of the view model.
func (e *Engine) Snapshot() models.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
func (e *Engine) Subscribe(fn func(models.View)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) startConversationTasks(ctx context.Context) {
	e.sched.Start(ctx, ConcernMessages, e.opts.Messages, e.PollNewMessages)
	e.sched.Start(ctx, ConcernTyping, e.opts.Typing, e.PollTyping)
}

// cancelConversationLocked invalidates the context every conversation-scoped
// task and request of the previous conversation was bound to.
func (e *Engine) cancelConversationLocked() {
	if e.convCancel != nil {
		e.convCancel()
	}
	e.convCtx = nil
	e.convCancel = nil
}

func (e *Engine) viewLocked() models.View {
	convs := make([]models.Conversation, len(e.conversations))
	copy(convs, e.conversations)
	msgs := make([]models.ChatMessage, len(e.messages))
	copy(msgs, e.messages)
	return models.View{
		Conversations:        convs,
		Messages:             msgs,
		ActiveConversationID: e.activeID,
		PeerTyping:           e.peerTyping,
		LoadingConversations: e.loadingConversations,
		LoadingMessages:      e.loadingMessages,
		TotalUnread:          models.TotalUnread(convs),
		Cursor:               e.cursor,
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	if e.closed || len(e.subs) == 0 {
		e.mu.Unlock()
		return
	}
	view := e.viewLocked()
	fns := make([]func(models.View), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(view)
	}
}

func (e *Engine) spawn(ctx context.Context, fn func(context.Context)) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		fn(ctx)
	}()
}

func (e *Engine) record(ctx context.Context, name string, conversationID int64, detail string) {
	if e.opts.Recorder == nil {
		return
	}
	e.opts.Recorder.RecordSyncEvent(ctx, name, conversationID, detail)
}

func (e *Engine) stopTypingTimersLocked() {
	if e.decayTimer != nil {
		e.decayTimer.Stop()
		e.decayTimer = nil
	}
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
}
