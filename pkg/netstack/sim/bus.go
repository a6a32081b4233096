package sim

import (
	"sync"

	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

// subscription is one registered handler.
type subscription struct {
	handle  netstack.Handle
	ns      netstack.Namespace
	kind    netstack.Kind
	handler netstack.Handler
}

// Bus is an in-process event dispatcher. Events are delivered in publish
// order on a single dispatch goroutine, never on the publisher's
// goroutine, matching how a vendor stack delivers notifications from its
// own worker context.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID netstack.Handle

	events chan netstack.Event
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewBus creates a running Bus.
func NewBus() *Bus {
	b := &Bus{
		nextID: 1,
		events: make(chan netstack.Event, 64),
		quit:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers h for events matching ns and kind.
func (b *Bus) Subscribe(ns netstack.Namespace, kind netstack.Kind, h netstack.Handler) (netstack.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{handle: handle, ns: ns, kind: kind, handler: h})
	return handle, nil
}

// Unsubscribe removes a prior subscription.
func (b *Bus) Unsubscribe(h netstack.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.handle == h {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return netstack.ErrNoSubscription
}

// Publish queues an event for asynchronous delivery. Safe from any
// goroutine, including event handlers.
func (b *Bus) Publish(e netstack.Event) {
	select {
	case b.events <- e:
	case <-b.quit:
	}
}

// Close stops the dispatch goroutine. Queued events are dropped.
func (b *Bus) Close() {
	close(b.quit)
	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case e := <-b.events:
			b.deliver(e)
		case <-b.quit:
			return
		}
	}
}

func (b *Bus) deliver(e netstack.Event) {
	b.mu.Lock()
	matched := make([]netstack.Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.ns != e.Namespace {
			continue
		}
		if sub.kind != netstack.KindAny && sub.kind != e.Kind {
			continue
		}
		matched = append(matched, sub.handler)
	}
	b.mu.Unlock()

	for _, h := range matched {
		h(e)
	}
}

// Compile-time interface satisfaction check.
var _ netstack.Bus = (*Bus)(nil)
