package sim

import (
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
	"github.com/wisp-protocol/wisp-go/pkg/provd"
)

// Store is the credential persistence the simulated stack needs. It is a
// superset of provd.Store; credstore.FileStore satisfies both.
type Store interface {
	provd.Store
	Load() (netstack.Credentials, error)
}

// Config configures a simulated stack.
type Config struct {
	// Store persists credentials across simulated restarts.
	Store Store

	// AP is the one wireless network that exists in the simulated
	// world. Association succeeds only with matching credentials.
	AP netstack.Credentials

	// Addr is the address granted on association.
	// Default: 192.168.4.2.
	Addr netip.Addr

	// AssocDelay is how long association attempts take.
	// Default: 10ms.
	AssocDelay time.Duration

	// Transport accepts provisioning sessions. Default: a loopback
	// transport, reachable via Stack.Loopback.
	Transport provd.Transport

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// EventLogger is the optional capture logger.
	EventLogger log.Logger
}

// Stack is an in-process netstack.Stack implementation with scripted
// wireless behavior. It exists for tests and for running the device
// binary on a developer machine.
type Stack struct {
	bus      *Bus
	netif    *simNetif
	radio    *Radio
	prov     *provd.Manager
	loopback *LoopbackTransport
}

// New creates a simulated stack.
func New(cfg Config) *Stack {
	if !cfg.Addr.IsValid() {
		cfg.Addr = netip.MustParseAddr("192.168.4.2")
	}
	if cfg.AssocDelay == 0 {
		cfg.AssocDelay = 10 * time.Millisecond
	}

	bus := NewBus()

	var loopback *LoopbackTransport
	transport := cfg.Transport
	if transport == nil {
		loopback = NewLoopbackTransport()
		transport = loopback
	}

	prov := provd.New(provd.Config{
		Store:       cfg.Store,
		Transport:   transport,
		Emit:        bus.Publish,
		Logger:      cfg.Logger,
		EventLogger: cfg.EventLogger,
	})

	return &Stack{
		bus:   bus,
		netif: &simNetif{},
		radio: &Radio{
			bus:        bus,
			store:      cfg.Store,
			ap:         cfg.AP,
			addr:       cfg.Addr,
			assocDelay: cfg.AssocDelay,
		},
		prov:     prov,
		loopback: loopback,
	}
}

// Netif returns the network-interface layer.
func (s *Stack) Netif() netstack.Netif { return s.netif }

// Radio returns the simulated radio.
func (s *Stack) Radio() netstack.Radio { return s.radio }

// Provisioner returns the provisioning manager.
func (s *Stack) Provisioner() netstack.Provisioner { return s.prov }

// Bus returns the event bus.
func (s *Stack) Bus() netstack.Bus { return s.bus }

// Loopback returns the default loopback transport, or nil when a custom
// transport was configured. Tests drive provisioning sessions through it.
func (s *Stack) Loopback() *LoopbackTransport { return s.loopback }

// Close stops event delivery.
func (s *Stack) Close() {
	s.bus.Close()
}

// simNetif is a no-op network-interface layer.
type simNetif struct {
	mu     sync.Mutex
	inited bool
}

func (n *simNetif) Init() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.inited {
		return netstack.ErrAlreadyInitialized
	}
	n.inited = true
	return nil
}

func (n *simNetif) Deinit() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inited = false
	return nil
}

// Radio is the simulated wireless radio. Association outcomes depend on
// whether stored credentials match the configured AP.
type Radio struct {
	bus        *Bus
	store      Store
	ap         netstack.Credentials
	addr       netip.Addr
	assocDelay time.Duration

	mu      sync.Mutex
	inited  bool
	mode    netstack.Mode
	running bool
}

func (r *Radio) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inited {
		return netstack.ErrAlreadyInitialized
	}
	r.inited = true
	return nil
}

func (r *Radio) SetMode(m netstack.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inited {
		return netstack.ErrNotInitialized
	}
	r.mode = m
	return nil
}

// Start brings the radio up and raises the station-start event.
func (r *Radio) Start() error {
	r.mu.Lock()
	if !r.inited {
		r.mu.Unlock()
		return netstack.ErrNotInitialized
	}
	if r.mode == 0 {
		r.mu.Unlock()
		return errors.New("radio mode not set")
	}
	r.running = true
	r.mu.Unlock()

	r.bus.Publish(netstack.Event{Namespace: netstack.NamespaceWifi, Kind: netstack.KindStaStart})
	return nil
}

// Connect attempts association with the stored credentials. The outcome
// arrives later as a wireless-link event, like a real radio.
func (r *Radio) Connect() error {
	r.mu.Lock()
	if !r.inited || !r.running {
		r.mu.Unlock()
		return netstack.ErrNotInitialized
	}
	delay := r.assocDelay
	r.mu.Unlock()

	time.AfterFunc(delay, func() {
		creds, err := r.store.Load()
		if err != nil {
			r.publishDisconnect("no stored credentials")
			return
		}
		if creds != r.ap {
			r.publishDisconnect("authentication failed")
			return
		}

		r.bus.Publish(netstack.Event{Namespace: netstack.NamespaceWifi, Kind: netstack.KindStaConnected})
		r.bus.Publish(netstack.Event{
			Namespace: netstack.NamespaceIP,
			Kind:      netstack.KindGotIPv4,
			Payload:   netstack.IPInfo{Addr: r.addr},
		})
	})
	return nil
}

func (r *Radio) publishDisconnect(reason string) {
	r.bus.Publish(netstack.Event{
		Namespace: netstack.NamespaceWifi,
		Kind:      netstack.KindStaDisconnected,
		Payload:   netstack.DisconnectInfo{Reason: reason},
	})
}

func (r *Radio) Deinit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inited = false
	r.running = false
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ netstack.Stack = (*Stack)(nil)
	_ netstack.Netif = (*simNetif)(nil)
	_ netstack.Radio = (*Radio)(nil)
)
