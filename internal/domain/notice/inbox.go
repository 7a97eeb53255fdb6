package notice

import (
	"context"
	"sync"
)

// DefaultInboxSize bounds an inbox built with a non-positive capacity.
const DefaultInboxSize = 32

// Inbox buffers the notices of one session until they are drained. When
// full, the oldest notice is dropped.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	items    []Notice
	dropped  uint64
}

// NewInbox builds an inbox holding at most capacity notices.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxSize
	}
	return &Inbox{capacity: capacity}
}

// Publish implements Notifier.
func (b *Inbox) Publish(_ context.Context, n Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.capacity; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
		b.dropped += uint64(over)
	}
	return nil
}

// Drain returns the pending notices oldest first and empties the inbox.
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Dropped counts notices discarded because the inbox was full.
func (b *Inbox) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// FanOut delivers every notice to each target in order. Delivery continues
// past a failing target; the first error is returned.
func FanOut(targets ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notice) error {
		var firstErr error
		for _, target := range targets {
			if target == nil {
				continue
			}
			if err := target.Publish(ctx, n); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}
