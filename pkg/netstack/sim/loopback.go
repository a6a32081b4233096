package sim

import (
	"errors"
	"sync"

	"github.com/wisp-protocol/wisp-go/pkg/provd"
)

// ErrTransportStopped is returned by Deliver when no provisioning window
// is open.
var ErrTransportStopped = errors.New("sim: loopback transport stopped")

// LoopbackTransport is an in-process provisioning transport. A test plays
// the client by calling Deliver with encoded frames.
type LoopbackTransport struct {
	mu          sync.Mutex
	serviceName string
	handler     provd.FrameHandler
}

// NewLoopbackTransport creates a stopped loopback transport.
func NewLoopbackTransport() *LoopbackTransport {
	return &LoopbackTransport{}
}

func (t *LoopbackTransport) Start(serviceName string, handler provd.FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.serviceName = serviceName
	t.handler = handler
	return nil
}

func (t *LoopbackTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = nil
	return nil
}

// ServiceName returns the name the current window was opened under.
func (t *LoopbackTransport) ServiceName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serviceName
}

// Deliver hands one client frame to the open provisioning window and
// returns the device's response frame.
func (t *LoopbackTransport) Deliver(frame []byte) ([]byte, error) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return nil, ErrTransportStopped
	}
	return handler("loopback", frame)
}

var _ provd.Transport = (*LoopbackTransport)(nil)
