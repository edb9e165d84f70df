package service

import (
	"sync"
	"time"
)

// EventType defines the type of event
type EventType string

const (
	EventEdgeStatus   EventType = "edge_status"
	EventProgress     EventType = "progress"
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
	EventDiagnostics  EventType = "diagnostics_fetched"

	EventTopologyReloaded EventType = "topology_reloaded"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// defaultFinalEventWait bounds how long Publish blocks on a full subscriber
// for an event that ends a run
const defaultFinalEventWait = 2 * time.Second

// Final reports whether the event ends a run. Final events are delivered
// to slow subscribers with a bounded wait instead of being dropped.
func (t EventType) Final() bool {
	return t == EventRunCompleted || t == EventRunFailed
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	finalWait   time.Duration
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
		finalWait:   defaultFinalEventWait,
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
			continue
		default:
		}
		if !event.Type.Final() {
			// Subscriber is slow, skip
			continue
		}
		eb.deliverFinal(ch, event)
	}
}

func (eb *EventBus) deliverFinal(ch chan<- Event, event Event) {
	timer := time.NewTimer(eb.finalWait)
	defer timer.Stop()
	select {
	case ch <- event:
	case <-timer.C:
	}
}

// EventName returns the event type as the SSE event name
func (e Event) EventName() string {
	return string(e.Type)
}
