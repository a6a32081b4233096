package wifi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/eventgroup"
	"github.com/wisp-protocol/wisp-go/pkg/identity"
	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

// DefaultTransport is the transport name advertised in the onboarding
// payload.
const DefaultTransport = "ble"

// Config configures a Module.
type Config struct {
	// ServiceName is the human-readable device name prefix. Required.
	ServiceName string

	// Stack is the network stack to coordinate. Required.
	Stack netstack.Stack

	// HardwareID provides the hardware identifier the device name is
	// derived from. Default: the first non-loopback interface MAC.
	HardwareID identity.HardwareIDSource

	// Security selects the provisioning session security scheme.
	// Default: Security1.
	Security netstack.Security

	// Reconnect decides retry behavior after losing the wireless link.
	// Default: ImmediatePolicy.
	Reconnect ReconnectPolicy

	// Transport is the transport name placed in the onboarding payload.
	// Default: "ble".
	Transport string

	// QROutput receives the rendered onboarding QR code.
	// Default: os.Stdout.
	QROutput io.Writer

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// EventLogger is the optional capture logger.
	EventLogger log.Logger
}

// Module coordinates onboarding and connectivity on top of a network
// stack. It owns the provisioning flow on first boot, reconnects the
// station when the link drops, and exposes a connectivity flag callers
// can block on.
type Module struct {
	logger    *slog.Logger
	capture   log.Logger
	stack     netstack.Stack
	ident     *identity.Identity
	policy    ReconnectPolicy
	security  netstack.Security
	transport string
	qrOut     io.Writer

	signal eventgroup.Bits

	mu       sync.Mutex
	state    State
	started  bool
	handles  []netstack.Handle
	attempts int
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a Module and derives the device identity. Call Init before
// Start.
func New(cfg Config) (*Module, error) {
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if cfg.Stack == nil {
		return nil, fmt.Errorf("network stack is required")
	}

	hwid := cfg.HardwareID
	if hwid == nil {
		hwid = identity.InterfaceSource{}
	}
	ident, err := identity.New(cfg.ServiceName, hwid)
	if err != nil {
		return nil, fmt.Errorf("failed to derive device identity: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	capture := cfg.EventLogger
	if capture == nil {
		capture = log.NoopLogger{}
	}
	policy := cfg.Reconnect
	if policy == nil {
		policy = ImmediatePolicy{}
	}
	security := cfg.Security
	if security == 0 {
		security = netstack.Security1
	}
	transport := cfg.Transport
	if transport == "" {
		transport = DefaultTransport
	}
	qrOut := cfg.QROutput
	if qrOut == nil {
		qrOut = os.Stdout
	}

	return &Module{
		logger:    logger,
		capture:   capture,
		stack:     cfg.Stack,
		ident:     ident,
		policy:    policy,
		security:  security,
		transport: transport,
		qrOut:     qrOut,
	}, nil
}

// DeviceName returns the derived device name, for example "WISP Device a1f0".
func (m *Module) DeviceName() string { return m.ident.DeviceName() }

// PoP returns the proof-of-possession string for this process.
func (m *Module) PoP() string { return m.ident.PoP() }

// State returns the current lifecycle state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the connectivity flag is raised.
func (m *Module) Connected() bool {
	return m.signal.Get()&BitConnected != 0
}

// WaitConnected blocks until the connectivity flag is raised or ctx is
// done.
func (m *Module) WaitConnected(ctx context.Context) error {
	return m.signal.WaitContext(ctx, BitConnected)
}

// Init brings the stack layers up and registers the event handlers.
func (m *Module) Init() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	if err := m.stack.Netif().Init(); err != nil {
		return fmt.Errorf("failed to initialize network interface: %w", err)
	}
	if err := m.stack.Radio().Init(); err != nil {
		_ = m.stack.Netif().Deinit()
		return fmt.Errorf("failed to initialize radio: %w", err)
	}
	if err := m.stack.Provisioner().Init(); err != nil {
		_ = m.stack.Radio().Deinit()
		_ = m.stack.Netif().Deinit()
		return fmt.Errorf("failed to initialize provisioning: %w", err)
	}
	if err := m.registerHandlers(); err != nil {
		_ = m.stack.Provisioner().Deinit()
		_ = m.stack.Radio().Deinit()
		_ = m.stack.Netif().Deinit()
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	m.setState(StateInitialized, "stack initialized")
	m.logger.Info("wifi module initialized", "device_name", m.ident.DeviceName())
	return nil
}

// Start runs the onboarding flow and blocks until the device holds an IP
// address or ctx is done. On first boot it opens the provisioning window,
// renders the onboarding QR code, and waits for credentials. On later
// boots it connects straight to the stored network.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == StateUninitialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	prov := m.stack.Provisioner()

	provisioned, err := prov.IsProvisioned()
	if err != nil {
		return fmt.Errorf("failed to query provisioning state: %w", err)
	}

	if !provisioned {
		if err := m.runProvisioning(ctx, prov); err != nil {
			return err
		}
	} else {
		m.logger.Info("already provisioned, connecting to stored network")
		if err := prov.Deinit(); err != nil {
			m.logger.Warn("failed to release provisioning resources", "err", err)
		}
	}

	if err := m.stack.Radio().SetMode(netstack.ModeStation); err != nil {
		return fmt.Errorf("failed to set station mode: %w", err)
	}
	if err := m.stack.Radio().Start(); err != nil {
		return fmt.Errorf("failed to start radio: %w", err)
	}
	m.setState(StateConnecting, "station started")

	return m.signal.WaitContext(ctx, BitConnected)
}

func (m *Module) runProvisioning(ctx context.Context, prov netstack.Provisioner) error {
	name := m.ident.DeviceName()
	pop := m.ident.PoP()

	if err := prov.StartProvisioning(m.security, pop, name); err != nil {
		return fmt.Errorf("failed to start provisioning: %w", err)
	}
	m.setState(StateProvisioning, "no stored credentials")
	m.logger.Info("waiting for provisioning", "device_name", name)

	payload, err := EncodePayload(name, pop, m.transport)
	if err != nil {
		return fmt.Errorf("failed to encode onboarding payload: %w", err)
	}
	qr, err := buildQR(payload)
	if err != nil {
		if derr := prov.Deinit(); derr != nil {
			m.logger.Warn("failed to release provisioning resources", "err", derr)
		}
		return fmt.Errorf("failed to render onboarding payload: %w", err)
	}
	if err := writeQR(m.qrOut, qr, payload); err != nil {
		m.logger.Warn("failed to write onboarding QR code", "err", err)
	}

	if err := prov.Wait(ctx); err != nil {
		return fmt.Errorf("provisioning interrupted: %w", err)
	}
	// The window only closes after credentials were stored; release the
	// provisioning transport before bringing the station up.
	if err := prov.Deinit(); err != nil {
		m.logger.Warn("failed to release provisioning resources", "err", err)
	}
	return nil
}

// Close deregisters the event handlers, cancels pending reconnects, and
// tears the stack layers down. Idempotent.
func (m *Module) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	wasInitialized := m.state != StateUninitialized
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.deregisterHandlers()

	if wasInitialized {
		if err := m.stack.Provisioner().Deinit(); err != nil {
			m.logger.Warn("failed to deinitialize provisioning", "err", err)
		}
		if err := m.stack.Radio().Deinit(); err != nil {
			m.logger.Warn("failed to deinitialize radio", "err", err)
		}
		if err := m.stack.Netif().Deinit(); err != nil {
			m.logger.Warn("failed to deinitialize network interface", "err", err)
		}
	}

	m.setState(StateClosed, "module closed")
	return nil
}

// setState transitions the lifecycle state and captures the change.
func (m *Module) setState(next State, reason string) {
	m.mu.Lock()
	old := m.state
	if old == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()

	m.logger.Debug("state changed", "from", old.String(), "to", next.String(), "reason", reason)
	m.capture.Log(log.Event{
		Timestamp:  time.Now(),
		Category:   log.CategoryState,
		DeviceName: m.ident.DeviceName(),
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}
