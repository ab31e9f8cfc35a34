// Package eventbus implements the platform's bounded in-memory pub/sub:
// fan-out of lifecycle and transaction events to subscribers, including the
// dashboard's WebSocket push feed.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhb-labs/agentic-wallet/types"
)

const (
	defaultMaxSubscribers = 100
	defaultMaxHistory     = 1000
	historyTrimFactor     = 1.5
)

// Handler receives emitted events. A panicking handler is caught and
// logged; it never prevents other handlers from running or affects later
// events.
type Handler func(types.SystemEvent)

// Unsubscribe removes a previously registered handler. Calling it more than
// once is a no-op.
type Unsubscribe func()

// Bus is the process-wide event bus. Its mutex guards both the handler set
// and the history ring buffer.
type Bus struct {
	mu             sync.Mutex
	handlers       map[int]Handler
	nextHandlerID  int
	maxSubscribers int

	history        []types.SystemEvent
	maxHistorySize int

	nextEventID int64
	logger      *slog.Logger
	clock       func() time.Time
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithMaxSubscribers overrides the default subscriber cap.
func WithMaxSubscribers(n int) Option { return func(b *Bus) { b.maxSubscribers = n } }

// WithMaxHistorySize overrides the default history cap.
func WithMaxHistorySize(n int) Option { return func(b *Bus) { b.maxHistorySize = n } }

// WithLogger overrides the bus's structured logger.
func WithLogger(logger *slog.Logger) Option { return func(b *Bus) { b.logger = logger } }

// NewBus constructs an empty event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers:       make(map[int]Handler),
		maxSubscribers: defaultMaxSubscribers,
		maxHistorySize: defaultMaxHistory,
		logger:         slog.Default(),
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler. If the subscriber cap is already reached,
// it returns a no-op Unsubscribe rather than an error, per the bounded
// fire-and-forget contract.
func (b *Bus) Subscribe(handler Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.handlers) >= b.maxSubscribers {
		b.logger.Warn("event bus subscriber cap reached, rejecting subscription", "cap", b.maxSubscribers)
		return func() {}
	}

	id := b.nextHandlerID
	b.nextHandlerID++
	b.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Emit appends the event to history and fan-outs to every handler. Handler
// panics are recovered and logged; they never reach the caller and never
// stop remaining handlers from running.
func (b *Bus) Emit(event types.SystemEvent) {
	event.ID = atomic.AddInt64(&b.nextEventID, 1)
	if event.Timestamp == 0 {
		event.Timestamp = b.clock().UnixMilli()
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > int(float64(b.maxHistorySize)*historyTrimFactor) {
		keep := b.history[len(b.history)-b.maxHistorySize:]
		b.history = append([]types.SystemEvent(nil), keep...)
	}
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		b.dispatch(handler, event)
	}
}

func (b *Bus) dispatch(handler Handler, event types.SystemEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event bus subscriber panicked", "panic", r, "event", event.Kind)
		}
	}()
	handler(event)
}

// GetRecentEvents returns the tail of the history buffer, most recent last.
func (b *Bus) GetRecentEvents(count int) []types.SystemEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if count <= 0 || count > len(b.history) {
		count = len(b.history)
	}
	out := make([]types.SystemEvent, count)
	copy(out, b.history[len(b.history)-count:])
	return out
}

// GetAgentEvents filters history by AgentID, returning the most recent
// count matches.
func (b *Bus) GetAgentEvents(agentID string, count int) []types.SystemEvent {
	b.mu.Lock()
	snapshot := append([]types.SystemEvent(nil), b.history...)
	b.mu.Unlock()

	matches := make([]types.SystemEvent, 0, count)
	for i := len(snapshot) - 1; i >= 0 && (count <= 0 || len(matches) < count); i-- {
		if snapshot[i].AgentID == agentID {
			matches = append(matches, snapshot[i])
		}
	}
	// matches was built newest-first; reverse to oldest-first for a
	// consistent chronological feed.
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}

// ClearHistory empties the history buffer without affecting subscribers.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
