package eventgroup

import (
	"context"
	"testing"
	"time"
)

func TestSetBeforeWait(t *testing.T) {
	var b Bits
	b.Set(1)

	done := make(chan struct{})
	go func() {
		b.Wait(1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return for an already-set bit")
	}
}

func TestWaitBlocksUntilSet(t *testing.T) {
	var b Bits

	done := make(chan struct{})
	go func() {
		b.Wait(1)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Set")
	case <-time.After(50 * time.Millisecond):
	}

	b.Set(1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestSetIsIdempotent(t *testing.T) {
	var b Bits
	b.Set(1)
	b.Set(1)
	b.Set(1)

	if got := b.Get(); got != 1 {
		t.Errorf("Get() = %#x, want 1", got)
	}

	// A waiter arriving after repeated sets still returns promptly.
	done := make(chan struct{})
	go func() {
		b.Wait(1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestWaitMultipleBits(t *testing.T) {
	var b Bits

	done := make(chan struct{})
	go func() {
		b.Wait(0b11)
		close(done)
	}()

	b.Set(0b01)
	select {
	case <-done:
		t.Fatal("Wait returned with only one of two bits set")
	case <-time.After(50 * time.Millisecond):
	}

	b.Set(0b10)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after both bits set")
	}
}

func TestConcurrentSetters(t *testing.T) {
	var b Bits

	for i := 0; i < 10; i++ {
		go b.Set(1)
	}

	waiters := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			b.Wait(1)
			waiters <- struct{}{}
		}()
	}

	for i := 0; i < 5; i++ {
		select {
		case <-waiters:
		case <-time.After(time.Second):
			t.Fatal("waiter did not return")
		}
	}
}

func TestWaitContextCancel(t *testing.T) {
	var b Bits

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.WaitContext(ctx, 1)
	}()

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("WaitContext error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitContext did not return on cancellation")
	}

	if b.Get() != 0 {
		t.Errorf("cancellation must not touch the bits, Get() = %#x", b.Get())
	}
}

func TestWaitContextSatisfiedBeatsCancel(t *testing.T) {
	var b Bits
	b.Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Already-set bits short-circuit before the ctx check.
	if err := b.WaitContext(ctx, 1); err != nil {
		t.Errorf("WaitContext = %v, want nil for already-set bit", err)
	}
}
