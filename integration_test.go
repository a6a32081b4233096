package wisp_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-protocol/wisp-go/pkg/credstore"
	"github.com/wisp-protocol/wisp-go/pkg/identity"
	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
	"github.com/wisp-protocol/wisp-go/pkg/netstack/sim"
	"github.com/wisp-protocol/wisp-go/pkg/provproto"
	"github.com/wisp-protocol/wisp-go/pkg/scheme/lan"
	"github.com/wisp-protocol/wisp-go/pkg/wifi"
)

var integrationAP = netstack.Credentials{SSID: "lab", Passphrase: "hunter22"}

// TestE2E_ProvisionThenReboot runs the full device lifecycle: first boot
// provisions over the LAN transport, a simulated reboot connects with the
// stored credentials.
func TestE2E_ProvisionThenReboot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	credsPath := filepath.Join(t.TempDir(), "creds.json")
	capturePath := filepath.Join(t.TempDir(), "device.wlog")

	capture, err := log.NewFileLogger(capturePath)
	require.NoError(t, err)

	// First boot: no credentials, LAN provisioning.
	store := credstore.NewFileStore(credsPath)
	transport := lan.New(lan.Config{Advertise: false})
	stack := sim.New(sim.Config{
		Store:       store,
		AP:          integrationAP,
		AssocDelay:  time.Millisecond,
		Transport:   transport,
		EventLogger: capture,
	})

	var qr bytes.Buffer
	mod, err := wifi.New(wifi.Config{
		ServiceName: "WISP Lamp",
		Stack:       stack,
		HardwareID:  identity.FixedSource{0xaa, 0xbb, 0xcc, 0x11, 0x22, 0x33},
		QROutput:    &qr,
		EventLogger: capture,
	})
	require.NoError(t, err)
	require.NoError(t, mod.Init())

	windowOpen := make(chan struct{}, 1)
	handle, err := stack.Bus().Subscribe(netstack.NamespaceProv, netstack.KindProvStart,
		func(netstack.Event) { windowOpen <- struct{}{} })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	startErr := make(chan error, 1)
	go func() { startErr <- mod.Start(ctx) }()

	select {
	case <-windowOpen:
	case <-time.After(5 * time.Second):
		t.Fatal("provisioning window never opened")
	}
	require.NoError(t, stack.Bus().Unsubscribe(handle))
	assert.Equal(t, "WISP Lamp dd00", mod.DeviceName())

	provisionOverLAN(t, transport.Addr().String(), mod.PoP())

	select {
	case err := <-startErr:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after provisioning")
	}
	assert.Equal(t, wifi.StateRunning, mod.State())
	assert.True(t, strings.Contains(qr.String(), mod.PoP()),
		"QR output must carry the proof of possession")

	require.NoError(t, mod.Close())
	stack.Close()

	// Reboot: same credential file, fresh stack and module.
	rebootStore := credstore.NewFileStore(credsPath)
	rebootStack := sim.New(sim.Config{
		Store:      rebootStore,
		AP:         integrationAP,
		AssocDelay: time.Millisecond,
	})
	defer rebootStack.Close()

	var rebootQR bytes.Buffer
	rebootMod, err := wifi.New(wifi.Config{
		ServiceName: "WISP Lamp",
		Stack:       rebootStack,
		HardwareID:  identity.FixedSource{0xaa, 0xbb, 0xcc, 0x11, 0x22, 0x33},
		QROutput:    &rebootQR,
	})
	require.NoError(t, err)
	defer rebootMod.Close()
	require.NoError(t, rebootMod.Init())

	rebootCtx, rebootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer rebootCancel()
	require.NoError(t, rebootMod.Start(rebootCtx))

	assert.Equal(t, wifi.StateRunning, rebootMod.State())
	assert.Zero(t, rebootQR.Len(), "no QR code on a provisioned boot")

	// The capture file holds both boots.
	require.NoError(t, capture.Close())
	reader, err := log.NewReader(capturePath)
	require.NoError(t, err)
	defer reader.Close()

	categories := map[log.Category]int{}
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		categories[event.Category]++
	}
	assert.Greater(t, categories[log.CategoryStack], 0, "stack events captured")
	assert.Greater(t, categories[log.CategoryState], 0, "state changes captured")
	assert.Greater(t, categories[log.CategorySession], 0, "session events captured")
}

// provisionOverLAN plays a companion app against a real TCP listener.
func provisionOverLAN(t *testing.T, addr, pop string) {
	t.Helper()

	client, err := lan.Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	session := provproto.NewClientSession(1, pop)

	roundTrip := func(msg provproto.Message) *provproto.Message {
		frame, err := provproto.Marshal(msg)
		require.NoError(t, err)
		resp, err := client.RoundTrip(frame)
		require.NoError(t, err)
		decoded, err := provproto.DecodeMessage(resp)
		require.NoError(t, err)
		return decoded
	}

	reqMsg, err := session.Request()
	require.NoError(t, err)
	respMsg := roundTrip(*reqMsg)

	confirmMsg, err := session.HandleResponse(respMsg.SessionResponse)
	require.NoError(t, err)
	ack := roundTrip(*confirmMsg)
	require.True(t, session.Secured())
	status, err := session.Open(ack.Sealed)
	require.NoError(t, err)
	require.True(t, status.OK)

	sealed, err := session.Seal(&provproto.Inner{
		Type:       provproto.InnerSetCredentials,
		SSID:       integrationAP.SSID,
		Passphrase: integrationAP.Passphrase,
	})
	require.NoError(t, err)
	ack = roundTrip(provproto.Message{Type: provproto.TypeSealed, Sealed: sealed})
	status, err = session.Open(ack.Sealed)
	require.NoError(t, err)
	require.True(t, status.OK)

	sealed, err = session.Seal(&provproto.Inner{Type: provproto.InnerApply})
	require.NoError(t, err)
	ack = roundTrip(provproto.Message{Type: provproto.TypeSealed, Sealed: sealed})
	status, err = session.Open(ack.Sealed)
	require.NoError(t, err)
	require.True(t, status.OK)
}
