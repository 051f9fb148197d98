package backend

import "time"

// Event represents a readiness transition or a matched log action.
type Event struct {
	Name   string
	Time   time.Time
	Fields map[string]any
}

const (
	EventLoading     = "loading"
	EventModelLoaded = "model_loaded"
	EventModelError  = "model_error"
	EventLogInfo     = "log_info"
	EventTruncated   = "log_truncated"
)

// EventPublisher receives backend events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// eventHistory is implemented by publishers that can report recent events.
type eventHistory interface {
	Events() []Event
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
