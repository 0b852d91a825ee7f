package events

import (
	"context"
	"sync"
)

const defaultBufferSize = 64

// Bus is an in-process publisher with channel fan-out. Publish never blocks:
// a subscriber that falls behind loses events rather than stalling payment
// responses.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	buffer int
	closed bool
}

// NewBus creates a Bus with the default per-subscriber buffer.
func NewBus() *Bus {
	return &Bus{buffer: defaultBufferSize}
}

// Subscribe registers a listener and returns its event channel.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish fans the event out to all subscribers without blocking.
func (b *Bus) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
	return nil
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// Multi publishes to several publishers in order, returning the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
