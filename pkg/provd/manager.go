package provd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
	"github.com/wisp-protocol/wisp-go/pkg/provproto"
)

// Manager errors.
var (
	ErrNotStarted     = errors.New("provisioning not started")
	ErrAlreadyStarted = errors.New("provisioning already started")
	ErrNoTransport    = errors.New("no provisioning transport configured")
	ErrNoStore        = errors.New("no credential store configured")
)

// Store is the credential persistence provd needs. credstore.FileStore
// satisfies it.
type Store interface {
	Save(creds netstack.Credentials) error
	Exists() (bool, error)
}

// FrameHandler processes one provisioning request frame and returns the
// response frame. Transports call it from their own goroutines.
type FrameHandler func(peer string, frame []byte) ([]byte, error)

// Transport accepts provisioning sessions from companion clients and
// relays frames to a FrameHandler. Implementations live in pkg/scheme.
type Transport interface {
	// Start begins accepting sessions, advertising serviceName to
	// nearby clients.
	Start(serviceName string, handler FrameHandler) error

	// Stop tears the transport down. Safe to call when never started.
	Stop() error
}

// Config configures a Manager.
type Config struct {
	// Store persists credentials received from clients.
	Store Store

	// Transport accepts provisioning sessions.
	Transport Transport

	// Emit publishes stack events (NamespaceProv). Optional.
	Emit func(netstack.Event)

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// EventLogger is the optional capture logger.
	EventLogger log.Logger
}

// Manager is the reference implementation of netstack.Provisioner. It owns
// the provisioning window: while the window is open the transport accepts
// one session at a time, the session delivers credentials, and an Apply
// closes the window.
type Manager struct {
	mu sync.Mutex

	store     Store
	transport Transport
	emit      func(netstack.Event)
	logger    *slog.Logger
	capture   log.Logger

	security    netstack.Security
	pop         string
	serviceName string

	session *provproto.DeviceSession
	pending *netstack.Credentials

	started      bool
	windowClosed bool
	done         chan struct{}
}

// New creates a Manager. Call Init before use.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	capture := cfg.EventLogger
	if capture == nil {
		capture = log.NoopLogger{}
	}
	emit := cfg.Emit
	if emit == nil {
		emit = func(netstack.Event) {}
	}
	return &Manager{
		store:     cfg.Store,
		transport: cfg.Transport,
		emit:      emit,
		logger:    logger,
		capture:   capture,
	}
}

// Init validates the configuration.
func (m *Manager) Init() error {
	if m.store == nil {
		return ErrNoStore
	}
	if m.transport == nil {
		return ErrNoTransport
	}
	return nil
}

// IsProvisioned reports whether stored credentials exist.
func (m *Manager) IsProvisioned() (bool, error) {
	return m.store.Exists()
}

// StartProvisioning opens the provisioning window.
func (m *Manager) StartProvisioning(sec netstack.Security, pop, serviceName string) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.windowClosed = false
	m.security = sec
	m.pop = pop
	m.serviceName = serviceName
	m.done = make(chan struct{})
	m.mu.Unlock()

	if err := m.transport.Start(serviceName, m.handleFrame); err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return fmt.Errorf("failed to start provisioning transport: %w", err)
	}

	m.logger.Info("provisioning window open",
		"service_name", serviceName, "security", sec.String())
	m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvStart})
	return nil
}

// Wait blocks until the provisioning window closes or ctx is done. It
// does not report whether credentials were applied.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return ErrNotStarted
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deinit stops the transport and releases the manager. Idempotent.
func (m *Manager) Deinit() error {
	m.mu.Lock()
	wasStarted := m.started
	m.started = false
	m.session = nil
	m.pending = nil
	m.mu.Unlock()

	if !wasStarted {
		return nil
	}
	return m.transport.Stop()
}

// closeWindow ends the provisioning window after a successful Apply.
// The done channel stays closed, so waiters arriving late still return.
func (m *Manager) closeWindow() {
	m.mu.Lock()
	if m.windowClosed || m.done == nil {
		m.mu.Unlock()
		return
	}
	m.windowClosed = true
	close(m.done)
	m.mu.Unlock()

	m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvEnd})
	m.logger.Info("provisioning window closed")
}

// handleFrame is the FrameHandler given to the transport.
func (m *Manager) handleFrame(peer string, frame []byte) ([]byte, error) {
	msg, err := provproto.DecodeMessage(frame)
	if err != nil {
		m.captureError(err, "decoding provisioning frame")
		return nil, err
	}

	switch msg.Type {
	case provproto.TypeSessionRequest:
		return m.handleSessionRequest(peer, msg.SessionRequest)
	case provproto.TypeSessionConfirm:
		return m.handleSessionConfirm(peer, msg.SessionConfirm)
	case provproto.TypeSealed:
		return m.handleSealed(peer, msg.Sealed)
	default:
		return nil, provproto.ErrInvalidMessage
	}
}

func (m *Manager) handleSessionRequest(peer string, req *provproto.SessionRequest) ([]byte, error) {
	m.mu.Lock()
	// A new request replaces any half-finished session; clients retry
	// from scratch after a transport drop.
	m.session = provproto.NewDeviceSession(uint8(m.security), m.pop)
	session := m.session
	m.mu.Unlock()

	resp, err := session.HandleRequest(req)
	if err != nil {
		m.captureError(err, "session request")
		return nil, err
	}

	m.logger.Debug("provisioning session opened", "peer", peer)
	m.captureSession(log.SessionStarted, peer)

	return provproto.Marshal(provproto.Message{
		Type:            provproto.TypeSessionResponse,
		SessionResponse: resp,
	})
}

func (m *Manager) handleSessionConfirm(peer string, c *provproto.SessionConfirm) ([]byte, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		return nil, provproto.ErrSessionNotSecured
	}

	if err := session.HandleConfirm(c); err != nil {
		m.logger.Warn("provisioning session rejected", "peer", peer, "err", err)
		m.captureSession(log.SessionFailed, peer)
		return nil, err
	}

	m.logger.Info("provisioning session secured", "peer", peer)
	m.captureSession(log.SessionSecured, peer)

	return m.sealStatus(session, true, "")
}

func (m *Manager) handleSealed(peer string, sealed []byte) ([]byte, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		return nil, provproto.ErrSessionNotSecured
	}

	inner, err := session.Open(sealed)
	if err != nil {
		m.captureError(err, "opening sealed frame")
		return nil, err
	}

	switch inner.Type {
	case provproto.InnerSetCredentials:
		creds := netstack.Credentials{SSID: inner.SSID, Passphrase: inner.Passphrase}
		m.mu.Lock()
		m.pending = &creds
		m.mu.Unlock()

		m.logger.Info("credentials received", "ssid", inner.SSID, "peer", peer)
		m.captureSession(log.SessionCredentials, peer)
		m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvCredRecv})

		return m.sealStatus(session, true, "")

	case provproto.InnerApply:
		m.mu.Lock()
		pending := m.pending
		m.mu.Unlock()

		if pending == nil {
			m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvCredFail})
			return m.sealStatus(session, false, "no credentials to apply")
		}
		if err := m.store.Save(*pending); err != nil {
			m.captureError(err, "storing credentials")
			m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvCredFail})
			return m.sealStatus(session, false, "failed to store credentials")
		}

		m.logger.Info("credentials applied", "ssid", pending.SSID)
		m.captureSession(log.SessionApplied, peer)
		m.emit(netstack.Event{Namespace: netstack.NamespaceProv, Kind: netstack.KindProvCredSuccess})

		resp, err := m.sealStatus(session, true, "")
		if err != nil {
			return nil, err
		}
		// Close after sealing the ack so the client gets its answer.
		m.closeWindow()
		return resp, nil

	default:
		return nil, provproto.ErrInvalidMessage
	}
}

func (m *Manager) sealStatus(session *provproto.DeviceSession, ok bool, detail string) ([]byte, error) {
	sealed, err := session.Seal(&provproto.Inner{Type: provproto.InnerStatus, OK: ok, Detail: detail})
	if err != nil {
		return nil, err
	}
	return provproto.Marshal(provproto.Message{Type: provproto.TypeSealed, Sealed: sealed})
}

func (m *Manager) captureSession(step log.SessionStep, peer string) {
	m.capture.Log(log.Event{
		Timestamp:  time.Now(),
		Category:   log.CategorySession,
		DeviceName: m.serviceName,
		Session:    &log.SessionEvent{Step: step, Peer: peer},
	})
}

func (m *Manager) captureError(err error, context string) {
	m.capture.Log(log.Event{
		Timestamp: time.Now(),
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: err.Error(), Context: context},
	})
}

// Compile-time interface satisfaction check.
var _ netstack.Provisioner = (*Manager)(nil)
