package lan

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// start brings a transport up without mDNS and returns its address.
func start(t *testing.T, handler func(peer string, frame []byte) ([]byte, error)) (*Transport, string) {
	t.Helper()
	tr := New(Config{Advertise: false})
	if err := tr.Start("WISP Test", handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Stop() })
	return tr, tr.Addr().String()
}

func TestRoundTrip(t *testing.T) {
	_, addr := start(t, func(peer string, frame []byte) ([]byte, error) {
		out := append([]byte("ack:"), frame...)
		return out, nil
	})

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	resp, err := client.RoundTrip([]byte("hello"))
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("ack:hello")) {
		t.Errorf("response = %q, want %q", resp, "ack:hello")
	}
}

func TestMultipleFramesOneConnection(t *testing.T) {
	var count atomic.Int32
	_, addr := start(t, func(peer string, frame []byte) ([]byte, error) {
		count.Add(1)
		return frame, nil
	})

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	for i := 0; i < 3; i++ {
		if _, err := client.RoundTrip([]byte{byte(i)}); err != nil {
			t.Fatalf("RoundTrip %d failed: %v", i, err)
		}
	}
	if got := count.Load(); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
}

func TestHandlerErrorClosesConnection(t *testing.T) {
	_, addr := start(t, func(peer string, frame []byte) ([]byte, error) {
		return nil, errors.New("bad frame")
	})

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	if _, err := client.RoundTrip([]byte("x")); err == nil {
		t.Error("RoundTrip after handler error should fail")
	}
}

func TestServesClientsSequentially(t *testing.T) {
	_, addr := start(t, func(peer string, frame []byte) ([]byte, error) {
		return frame, nil
	})

	// A second client is served after the first disconnects.
	first, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if _, err := first.RoundTrip([]byte("a")); err != nil {
		t.Fatalf("first RoundTrip failed: %v", err)
	}
	first.Close()

	second, err := Dial(addr)
	if err != nil {
		t.Fatalf("second Dial failed: %v", err)
	}
	defer second.Close()
	if _, err := second.RoundTrip([]byte("b")); err != nil {
		t.Fatalf("second RoundTrip failed: %v", err)
	}
}

func TestStopWithIdleClient(t *testing.T) {
	tr, addr := start(t, func(peer string, frame []byte) ([]byte, error) {
		return frame, nil
	})

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()
	// One round trip ensures the server is mid-read on this connection.
	if _, err := client.RoundTrip([]byte("x")); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- tr.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a client was connected")
	}
}

func TestClientDisconnectDuringStop(t *testing.T) {
	// A client going away while Stop is in flight must not crash the
	// accept loop.
	for i := 0; i < 10; i++ {
		tr := New(Config{Advertise: false})
		echo := func(peer string, frame []byte) ([]byte, error) { return frame, nil }
		if err := tr.Start("WISP Test", echo); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		client, err := Dial(tr.Addr().String())
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		if _, err := client.RoundTrip([]byte("x")); err != nil {
			t.Fatalf("RoundTrip failed: %v", err)
		}

		go client.Close()
		if err := tr.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	}
}

func TestStartTwice(t *testing.T) {
	tr, _ := start(t, func(string, []byte) ([]byte, error) { return nil, nil })
	if err := tr.Start("WISP Test", nil); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	tr := New(Config{})
	if err := tr.Stop(); err != nil {
		t.Errorf("Stop without Start = %v, want nil", err)
	}
}

func TestFrameSizeLimit(t *testing.T) {
	var buf bytes.Buffer
	big := make([]byte, MaxFrameSize+1)
	if err := writeFrame(&buf, big); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("writeFrame oversized = %v, want ErrFrameTooLarge", err)
	}

	ok := make([]byte, MaxFrameSize)
	if err := writeFrame(&buf, ok); err != nil {
		t.Fatalf("writeFrame at limit failed: %v", err)
	}
	frame, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if len(frame) != MaxFrameSize {
		t.Errorf("readFrame length = %d, want %d", len(frame), MaxFrameSize)
	}
}
