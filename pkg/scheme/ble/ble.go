// Package ble is the BLE GATT provisioning transport: the device runs a
// peripheral advertising the device name, and companion apps exchange
// provisioning frames through a pair of characteristics.
//
// The GATT layout is one service with two characteristics:
//
//   - request: client writes one whole provisioning frame per write
//   - response: device publishes the response frame; read or subscribe
//
// Frames never exceed a few hundred bytes, so a negotiated MTU covers
// them without fragmentation.
package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/wisp-protocol/wisp-go/pkg/provd"
)

// Fixed WISP provisioning UUIDs. Companion apps hardcode these.
var (
	serviceUUID  = bluetooth.NewUUID(uuid.MustParse("4f495350-0001-4bb5-a65d-6f61766e9d21"))
	requestUUID  = bluetooth.NewUUID(uuid.MustParse("4f495350-0002-4bb5-a65d-6f61766e9d21"))
	responseUUID = bluetooth.NewUUID(uuid.MustParse("4f495350-0003-4bb5-a65d-6f61766e9d21"))
)

// Transport errors.
var (
	ErrAlreadyStarted = errors.New("transport already started")
)

// Config configures a Transport.
type Config struct {
	// Adapter is the BLE adapter to use. Nil means the default adapter.
	Adapter *bluetooth.Adapter

	// Logger is the optional operational logger.
	Logger *slog.Logger
}

// Transport is the BLE GATT provisioning transport.
type Transport struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger

	mu       sync.Mutex
	started  bool
	adv      *bluetooth.Advertisement
	respChar bluetooth.Characteristic
}

// New creates a Transport.
func New(cfg Config) *Transport {
	adapter := cfg.Adapter
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{adapter: adapter, logger: logger}
}

// Start enables the adapter, registers the GATT service, and advertises
// serviceName.
func (t *Transport) Start(serviceName string, handler provd.FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}

	service := &bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  requestUUID,
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					t.handleWrite(client, value, handler)
				},
			},
			{
				Handle: &t.respChar,
				UUID:   responseUUID,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	}
	if err := t.adapter.AddService(service); err != nil {
		return fmt.Errorf("failed to add provisioning service: %w", err)
	}

	adv := t.adapter.DefaultAdvertisement()
	if adv == nil {
		return errors.New("default advertisement is nil")
	}
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    serviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	t.adv = adv
	t.started = true
	t.logger.Info("ble provisioning transport advertising", "local_name", serviceName)
	return nil
}

// handleWrite runs one provisioning frame through the handler and
// publishes the response. Runs on the BLE stack's callback goroutine.
func (t *Transport) handleWrite(client bluetooth.Connection, frame []byte, handler provd.FrameHandler) {
	peer := fmt.Sprintf("ble:%d", client)

	resp, err := handler(peer, frame)
	if err != nil {
		// The session layer already rejected the frame; publishing an
		// empty response tells the client to restart its session.
		t.logger.Warn("provisioning frame rejected", "peer", peer, "err", err)
		resp = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	if _, err := t.respChar.Write(resp); err != nil {
		t.logger.Debug("failed to publish response", "peer", peer, "err", err)
	}
}

// Stop stops advertising. The GATT service stays registered; BLE stacks
// do not generally support unregistering services at runtime.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return nil
	}
	t.started = false

	if err := t.adv.Stop(); err != nil {
		return fmt.Errorf("failed to stop advertising: %w", err)
	}
	t.logger.Info("ble provisioning transport stopped")
	return nil
}

// Compile-time interface satisfaction check.
var _ provd.Transport = (*Transport)(nil)
