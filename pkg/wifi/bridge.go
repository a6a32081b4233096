package wifi

import (
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

// registerHandlers subscribes the bridge to the stack bus. Handlers run
// on the bus dispatch goroutine and must not block.
func (m *Module) registerHandlers() error {
	subs := []struct {
		ns      netstack.Namespace
		kind    netstack.Kind
		handler netstack.Handler
	}{
		{netstack.NamespaceIP, netstack.KindGotIPv4, m.onGotIP},
		{netstack.NamespaceIP, netstack.KindGotIPv6, m.onGotIP},
		{netstack.NamespaceIP, netstack.KindLostIP, m.onLostIP},
		{netstack.NamespaceWifi, netstack.KindAny, m.onWifiEvent},
	}

	bus := m.stack.Bus()
	for _, s := range subs {
		handle, err := bus.Subscribe(s.ns, s.kind, s.handler)
		if err != nil {
			m.deregisterHandlers()
			return err
		}
		m.mu.Lock()
		m.handles = append(m.handles, handle)
		m.mu.Unlock()
	}
	return nil
}

// deregisterHandlers removes all bus subscriptions.
func (m *Module) deregisterHandlers() {
	m.mu.Lock()
	handles := m.handles
	m.handles = nil
	m.mu.Unlock()

	bus := m.stack.Bus()
	for _, h := range handles {
		if err := bus.Unsubscribe(h); err != nil {
			m.logger.Warn("failed to unsubscribe event handler", "err", err)
		}
	}
}

// onGotIP handles got-IPv4 and got-IPv6 events. Acquiring an address is
// the module's definition of connectivity.
func (m *Module) onGotIP(ev netstack.Event) {
	addr := ""
	if info, ok := ev.Payload.(netstack.IPInfo); ok {
		addr = info.Addr.String()
	}
	m.logger.Info("connected with IP address", "addr", addr)
	m.captureStack(ev, addr, "")

	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()

	m.setState(StateRunning, "IP address acquired")
	m.signal.Set(BitConnected)
}

// onLostIP handles lost-address events. The connectivity flag stays
// raised; reconnection is driven by the wireless-link events.
func (m *Module) onLostIP(ev netstack.Event) {
	m.logger.Debug("lost IP address")
	m.captureStack(ev, "", "")
}

func (m *Module) onWifiEvent(ev netstack.Event) {
	switch ev.Kind {
	case netstack.KindStaStart:
		m.logger.Debug("station started, connecting")
		m.captureStack(ev, "", "")
		m.connect()

	case netstack.KindStaConnected:
		m.logger.Info("station associated with network")
		m.captureStack(ev, "", "")

	case netstack.KindStaDisconnected:
		reason := ""
		if info, ok := ev.Payload.(netstack.DisconnectInfo); ok {
			reason = info.Reason
		}
		m.logger.Info("station disconnected", "reason", reason)
		m.captureStack(ev, "", reason)
		m.scheduleReconnect()
	}
}

func (m *Module) connect() {
	if err := m.stack.Radio().Connect(); err != nil {
		m.logger.Warn("connect request failed", "err", err)
	}
}

// scheduleReconnect consults the reconnect policy and arranges the next
// association attempt. Delayed attempts are dropped when the module
// closes.
func (m *Module) scheduleReconnect() {
	m.mu.Lock()
	attempt := m.attempts
	m.attempts++
	ctx := m.ctx
	m.mu.Unlock()

	delay, retry := m.policy.Next(attempt)
	if !retry {
		m.logger.Warn("giving up on reconnection", "attempts", attempt)
		return
	}

	if delay == 0 {
		m.connect()
		return
	}

	m.logger.Debug("scheduling reconnect", "attempt", attempt, "delay", delay)
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			m.connect()
		}
	}()
}

// captureStack records a raw stack notification to the capture logger.
func (m *Module) captureStack(ev netstack.Event, addr, reason string) {
	m.capture.Log(log.Event{
		Timestamp:  time.Now(),
		Category:   log.CategoryStack,
		DeviceName: m.ident.DeviceName(),
		Stack: &log.StackEvent{
			Namespace: ev.Namespace.String(),
			Kind:      ev.Kind.String(),
			Addr:      addr,
			Reason:    reason,
		},
	})
}
