// Package notify fans scheduling events out to external listeners (the
// messaging-channel adapter, metrics, audit). Delivery is fire-and-forget:
// the core never blocks on a listener and a failed push never rolls back or
// re-attempts the state transition it reports.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samerrd/language-reminder-server/internal/model"
)

// RatingAppliedEvent is published after a rating transaction commits.
type RatingAppliedEvent struct {
	EventID  uuid.UUID         `json:"event_id"`
	ItemID   uint64            `json:"item_id"`
	Rating   model.Rating      `json:"rating"`
	NewState model.ReviewState `json:"new_state"`
	DueAt    time.Time         `json:"due_at"`
	At       time.Time         `json:"at"`
}

// ItemDueEvent is published when the due selector surfaces an item.
type ItemDueEvent struct {
	EventID uuid.UUID  `json:"event_id"`
	Item    model.Item `json:"item"`
	At      time.Time  `json:"at"`
}

// Listener receives scheduling events. Implementations must tolerate
// at-least-once delivery and must not assume ordering across items.
type Listener interface {
	RatingApplied(ctx context.Context, ev RatingAppliedEvent)
	ItemDue(ctx context.Context, ev ItemDueEvent)
}

// Dispatcher fans events out to subscribed listeners, each on its own
// goroutine. Listener panics are recovered and logged, never propagated.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Subscribe registers a listener for all subsequent events.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// RatingApplied publishes ev to all listeners without blocking the caller.
func (d *Dispatcher) RatingApplied(ev RatingAppliedEvent) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		l := l
		go func() {
			defer d.recoverListener("RatingApplied")
			// Detached context: the originating request may be gone by the
			// time the listener runs.
			l.RatingApplied(context.Background(), ev)
		}()
	}
}

// ItemDue publishes ev to all listeners without blocking the caller.
func (d *Dispatcher) ItemDue(ev ItemDueEvent) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		l := l
		go func() {
			defer d.recoverListener("ItemDue")
			l.ItemDue(context.Background(), ev)
		}()
	}
}

func (d *Dispatcher) recoverListener(event string) {
	if r := recover(); r != nil {
		d.logger.Error("Notification listener panicked", "event", event, "panic", r)
	}
}

// LogListener writes every event to the application log. It stands in for
// the messaging-channel adapter and keeps deliveries observable in
// deployments without one.
type LogListener struct {
	logger *slog.Logger
}

func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger}
}

func (l *LogListener) RatingApplied(ctx context.Context, ev RatingAppliedEvent) {
	l.logger.InfoContext(ctx, "Rating applied",
		"event_id", ev.EventID.String(),
		"item_id", ev.ItemID,
		"rating", ev.Rating.String(),
		"new_state", ev.NewState.String(),
		"due_at", ev.DueAt,
	)
}

func (l *LogListener) ItemDue(ctx context.Context, ev ItemDueEvent) {
	l.logger.InfoContext(ctx, "Item due",
		"event_id", ev.EventID.String(),
		"item_id", ev.Item.ID,
		"partition", string(ev.Item.Partition),
		"due_at", ev.Item.DueAt,
	)
}
