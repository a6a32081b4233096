// Package lan is a provisioning transport over a plain TCP socket,
// advertised via mDNS so companion apps on the same network can find the
// device without Bluetooth. Functional fallback when the device has no
// BLE radio or the host stack lacks one.
package lan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/wisp-protocol/wisp-go/pkg/provd"
	"github.com/wisp-protocol/wisp-go/pkg/version"
)

// mDNS service parameters.
const (
	// ServiceType is the DNS-SD service type for provisioning.
	ServiceType = "_wispprov._tcp"

	// Domain is the mDNS domain.
	Domain = "local."
)

// MaxFrameSize bounds a single provisioning frame.
const MaxFrameSize = 8 * 1024

// Transport errors.
var (
	ErrAlreadyStarted = errors.New("transport already started")
	ErrFrameTooLarge  = errors.New("frame exceeds maximum size")
)

// Config configures a Transport.
type Config struct {
	// Port is the TCP listen port. 0 picks an ephemeral port.
	Port int

	// Advertise controls mDNS advertising. Disabled only in tests that
	// dial the listener directly.
	Advertise bool

	// Logger is the optional operational logger.
	Logger *slog.Logger
}

// Transport is an mDNS-advertised TCP provisioning transport. Frames are
// length-prefixed (2 bytes, big endian) and strictly request/response.
// One client is served at a time; an embedded device provisions against
// a single companion app.
type Transport struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	listener net.Listener
	active   net.Conn
	server   *zeroconf.Server
	wg       sync.WaitGroup
}

// New creates a Transport.
func New(cfg Config) *Transport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{cfg: cfg, logger: logger}
}

// Start listens and, if configured, registers the mDNS service.
func (t *Transport) Start(serviceName string, handler provd.FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	t.listener = ln

	port := ln.Addr().(*net.TCPAddr).Port
	if t.cfg.Advertise {
		txt := []string{"ver=" + version.Current, "name=" + serviceName}
		server, err := zeroconf.Register(serviceName, ServiceType, Domain, port, txt, nil)
		if err != nil {
			ln.Close()
			t.listener = nil
			return fmt.Errorf("failed to register mDNS service: %w", err)
		}
		t.server = server
	}

	t.started = true
	t.logger.Info("lan provisioning transport listening", "port", port, "advertise", t.cfg.Advertise)

	t.wg.Add(1)
	go t.acceptLoop(ln, handler)
	return nil
}

// Addr returns the listen address, or nil before Start.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Stop shuts down mDNS advertising, the listener, and any connected client.
func (t *Transport) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	server := t.server
	t.server = nil
	listener := t.listener
	t.listener = nil
	active := t.active
	t.active = nil
	t.mu.Unlock()

	if server != nil {
		server.Shutdown()
	}
	err := listener.Close()
	if active != nil {
		active.Close()
	}
	t.wg.Wait()
	return err
}

// acceptLoop serves clients one at a time.
func (t *Transport) acceptLoop(ln net.Listener, handler provd.FrameHandler) {
	defer t.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during Stop.
			return
		}

		t.mu.Lock()
		if !t.started {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.active = conn
		t.mu.Unlock()

		t.serveConn(conn, handler)

		t.mu.Lock()
		t.active = nil
		t.mu.Unlock()
	}
}

// serveConn runs the request/response loop for one client.
func (t *Transport) serveConn(conn net.Conn, handler provd.FrameHandler) {
	defer conn.Close()
	peer := conn.RemoteAddr().String()
	t.logger.Debug("provisioning client connected", "peer", peer)

	for {
		frame, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				t.logger.Debug("provisioning client read failed", "peer", peer, "err", err)
			}
			return
		}

		resp, err := handler(peer, frame)
		if err != nil {
			t.logger.Warn("provisioning frame rejected", "peer", peer, "err", err)
			return
		}
		if err := writeFrame(conn, resp); err != nil {
			t.logger.Debug("provisioning client write failed", "peer", peer, "err", err)
			return
		}
	}
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(hdr[:])
	if int(n) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// writeFrame writes one length-prefixed frame.
func writeFrame(w io.Writer, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(frame)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// Compile-time interface satisfaction check.
var _ provd.Transport = (*Transport)(nil)
