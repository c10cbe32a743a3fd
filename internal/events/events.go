// Package events provides an in-process pub/sub bus. Controllers publish
// state changes (run list refreshed, per-key setting save states, per-user
// action states, upload progress) so that any frontend can observe them
// without polling controller state.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/proofback/proofback-cli/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventRunListUpdated   EventType = "run_list_updated"
	EventRunStatsUpdated  EventType = "run_stats_updated"
	EventSettingSaveState EventType = "setting_save_state"
	EventUserActionState  EventType = "user_action_state"
	EventRosterRefreshed  EventType = "roster_refreshed"
	EventUploadProgress   EventType = "upload_progress"
	EventUploadSettled    EventType = "upload_settled"
	EventSessionExpired   EventType = "session_expired"
	EventError            EventType = "error"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RunListEvent is published after the job tracker applies a fresh page.
type RunListEvent struct {
	BaseEvent
	Page       int
	TotalPages int
	Count      int
	Seq        uint64 // sequence number of the query that produced this page
}

// RunStatsEvent is published after a stats refresh.
type RunStatsEvent struct {
	BaseEvent
	Total, Passed, Failed, Pending int
}

// SettingSaveEvent is published on every per-key save-state transition
// (saving, success, error, and the auto-clear back to idle).
type SettingSaveEvent struct {
	BaseEvent
	Key     string
	State   string // "idle", "saving", "success", "error"
	Message string // server error message when State == "error"
}

// UserActionEvent is published on every per-user action-state transition.
type UserActionEvent struct {
	BaseEvent
	UserID  string
	State   string // "none", "toggling", "deleting", "error"
	Message string
}

// RosterEvent is published after a complete admin dashboard refresh.
type RosterEvent struct {
	BaseEvent
	UserCount int
}

// UploadEvent carries upload progress and terminal outcomes.
type UploadEvent struct {
	BaseEvent
	Filename     string
	BytesCurrent int64
	BytesTotal   int64
	Percent      int // 0..100
	RunID        string
	Err          error
}

// SessionExpiredEvent is published once when a 401 clears the session.
type SessionExpiredEvent struct {
	BaseEvent
}

// ErrorEvent represents error conditions not tied to a single entity.
type ErrorEvent struct {
	BaseEvent
	Source string
	Err    error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Non-blocking: a subscriber with
// a full buffer drops the event rather than stalling a controller.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishSettingSave is a convenience method for per-key save-state events.
func (eb *EventBus) PublishSettingSave(key, state, message string) {
	eb.Publish(&SettingSaveEvent{
		BaseEvent: BaseEvent{EventType: EventSettingSaveState, Time: time.Now()},
		Key:       key,
		State:     state,
		Message:   message,
	})
}

// PublishUserAction is a convenience method for per-user action-state events.
func (eb *EventBus) PublishUserAction(userID, state, message string) {
	eb.Publish(&UserActionEvent{
		BaseEvent: BaseEvent{EventType: EventUserActionState, Time: time.Now()},
		UserID:    userID,
		State:     state,
		Message:   message,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
// This prevents memory leaks from abandoned subscriptions
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to
// full buffers. Useful for detecting undersized subscriber buffers.
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
