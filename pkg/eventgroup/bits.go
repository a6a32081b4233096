package eventgroup

import (
	"context"
	"sync"
)

// Bits is a small set of event flags that can be set from any goroutine
// and waited on from any other. It mirrors the event-group primitive
// embedded RTOSes provide: setting a bit is idempotent and never blocks,
// waiting suspends the caller until every requested bit is set.
//
// There is no clear operation. A bit, once set, stays set for the lifetime
// of the group; waiters that need "still true" semantics rather than
// "became true at least once" must track that themselves.
//
// The zero value is ready to use.
type Bits struct {
	mu     sync.Mutex
	bits   uint32
	change chan struct{}
}

// Set sets every bit in mask. Safe to call concurrently with Wait and
// with other Set calls; setting an already-set bit is a no-op.
func (b *Bits) Set(mask uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bits&mask == mask {
		return
	}
	b.bits |= mask
	if b.change != nil {
		close(b.change)
		b.change = nil
	}
}

// Get returns the current bit set.
func (b *Bits) Get() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bits
}

// Wait blocks until every bit in mask is set. There is no timeout; a
// device with no path to the awaited condition waits forever.
func (b *Bits) Wait(mask uint32) {
	// Background context never expires, so the error is always nil.
	_ = b.WaitContext(context.Background(), mask)
}

// WaitContext blocks until every bit in mask is set or ctx is done,
// returning ctx.Err() in the latter case. The bits are untouched on
// cancellation.
func (b *Bits) WaitContext(ctx context.Context, mask uint32) error {
	for {
		b.mu.Lock()
		if b.bits&mask == mask {
			b.mu.Unlock()
			return nil
		}
		if b.change == nil {
			b.change = make(chan struct{})
		}
		ch := b.change
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
