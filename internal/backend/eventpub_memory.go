package backend

import (
	"sync"
	"time"
)

const defaultEventHistory = 64

// MemoryPublisher keeps the most recent events in a bounded ring. The zero
// value holds defaultEventHistory events.
type MemoryPublisher struct {
	mu     sync.Mutex
	max    int
	events []Event
	next   int
	full   bool
}

// NewMemoryPublisher returns a publisher retaining up to size events
// (size <= 0 uses the default).
func NewMemoryPublisher(size int) *MemoryPublisher { return &MemoryPublisher{max: size} }

func (p *MemoryPublisher) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.max <= 0 {
		p.max = defaultEventHistory
	}
	if len(p.events) < p.max {
		p.events = append(p.events, e)
		return
	}
	p.events[p.next] = e
	p.next = (p.next + 1) % p.max
	p.full = true
}

// Events returns the retained events, oldest first.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, 0, len(p.events))
	if p.full {
		out = append(out, p.events[p.next:]...)
		out = append(out, p.events[:p.next]...)
		return out
	}
	return append(out, p.events...)
}

// Names returns the retained event names, oldest first.
func (p *MemoryPublisher) Names() []string {
	evs := p.Events()
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Name)
	}
	return out
}
