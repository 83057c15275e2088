// Package memory contains an in-memory event publisher for tests.
package memory

import (
	"context"
	"sync"

	"github.com/scribehq/docharvest/internal/document"
)

// Publisher stores published acquisition events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []document.AcquisitionEvent
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event.
func (p *Publisher) Publish(_ context.Context, event document.AcquisitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Close is a no-op for the memory publisher.
func (p *Publisher) Close() error { return nil }

// Events returns the recorded publishes.
func (p *Publisher) Events() []document.AcquisitionEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]document.AcquisitionEvent, len(p.events))
	copy(out, p.events)
	return out
}
