// Package tinynet adapts a tinygo wireless driver to the netstack.Radio
// contract. It targets boards whose firmware is built with tinygo; the
// board-specific driver pair is discovered by probe, behind build tags.
package tinynet

import (
	"sync"

	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"

	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

// Config configures a Radio.
type Config struct {
	// Link is the wireless link driver. Required.
	Link netlink.Netlinker

	// Dev is the network device driver paired with Link. Optional; held
	// for callers that need the board's socket interface.
	Dev netdev.Netdever

	// Credentials supplies the stored network credentials at connect
	// time. Required.
	Credentials func() (netstack.Credentials, error)

	// Emit publishes stack events. Required.
	Emit func(netstack.Event)
}

// Radio drives a tinygo netlink device as a station. The driver's
// connect call is synchronous, so link events are synthesized around it
// on a separate goroutine.
type Radio struct {
	link  netlink.Netlinker
	dev   netdev.Netdever
	creds func() (netstack.Credentials, error)
	emit  func(netstack.Event)

	mu      sync.Mutex
	inited  bool
	running bool
}

// New creates a Radio.
func New(cfg Config) *Radio {
	emit := cfg.Emit
	if emit == nil {
		emit = func(netstack.Event) {}
	}
	return &Radio{
		link:  cfg.Link,
		dev:   cfg.Dev,
		creds: cfg.Credentials,
		emit:  emit,
	}
}

// Dev returns the paired network device driver.
func (r *Radio) Dev() netdev.Netdever { return r.dev }

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
	// The driver only does station mode.
	if m != netstack.ModeStation {
		return netstack.ErrNotInitialized
	}
	return nil
}

func (r *Radio) Start() error {
	r.mu.Lock()
	if !r.inited {
		r.mu.Unlock()
		return netstack.ErrNotInitialized
	}
	r.running = true
	r.mu.Unlock()

	r.emit(netstack.Event{Namespace: netstack.NamespaceWifi, Kind: netstack.KindStaStart})
	return nil
}

// Connect associates with the stored network. The driver blocks until
// the link is up, so the attempt runs on its own goroutine and the
// outcome arrives as events.
func (r *Radio) Connect() error {
	r.mu.Lock()
	if !r.inited || !r.running {
		r.mu.Unlock()
		return netstack.ErrNotInitialized
	}
	r.mu.Unlock()

	go func() {
		creds, err := r.creds()
		if err != nil {
			r.emit(netstack.Event{
				Namespace: netstack.NamespaceWifi,
				Kind:      netstack.KindStaDisconnected,
				Payload:   netstack.DisconnectInfo{Reason: "no stored credentials"},
			})
			return
		}

		err = r.link.NetConnect(&netlink.ConnectParams{
			Ssid:       creds.SSID,
			Passphrase: creds.Passphrase,
		})
		if err != nil {
			r.emit(netstack.Event{
				Namespace: netstack.NamespaceWifi,
				Kind:      netstack.KindStaDisconnected,
				Payload:   netstack.DisconnectInfo{Reason: err.Error()},
			})
			return
		}

		r.emit(netstack.Event{Namespace: netstack.NamespaceWifi, Kind: netstack.KindStaConnected})
		// The driver assigns the address during NetConnect; the link
		// being up implies the address is usable.
		r.emit(netstack.Event{Namespace: netstack.NamespaceIP, Kind: netstack.KindGotIPv4})
	}()
	return nil
}

func (r *Radio) Deinit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.link.NetDisconnect()
	}
	r.inited = false
	r.running = false
	return nil
}

var _ netstack.Radio = (*Radio)(nil)
