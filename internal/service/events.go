package service

import "sync"

// EventType names a change published on the EventBus.
type EventType string

const (
	EventRepositoryCreated EventType = "repository_created"
	EventRepositoryDeleted EventType = "repository_deleted"
	EventPartitionAdded    EventType = "partition_added"
	EventPartitionRemoved  EventType = "partition_removed"
	EventNodesDeleted      EventType = "nodes_deleted"
	EventVersionBumped     EventType = "version_bumped"
	EventPropertyChanged   EventType = "property_changed"
)

// Event is one change in some repository.
type Event struct {
	Type       EventType `json:"type"`
	Repository string    `json:"repository,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// EventBus fans events out to subscribers
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe stops delivering events to ch.
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

// Subscribers returns the number of subscribed channels.
func (eb *EventBus) Subscribers() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Publish sends an event to all subscribers. A nil bus drops it.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
