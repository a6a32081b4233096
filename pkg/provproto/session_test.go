package provproto

import (
	"errors"
	"testing"
)

// runHandshake drives a full client/device handshake and returns both
// sides secured, or fails the test.
func runHandshake(t *testing.T, clientPoP, devicePoP string) (*ClientSession, *DeviceSession, error) {
	t.Helper()

	client := NewClientSession(1, clientPoP)
	device := NewDeviceSession(1, devicePoP)

	reqMsg, err := client.Request()
	if err != nil {
		t.Fatalf("client Request failed: %v", err)
	}

	resp, err := device.HandleRequest(reqMsg.SessionRequest)
	if err != nil {
		t.Fatalf("device HandleRequest failed: %v", err)
	}

	confirmMsg, err := client.HandleResponse(resp)
	if err != nil {
		return client, device, err
	}

	if err := device.HandleConfirm(confirmMsg.SessionConfirm); err != nil {
		return client, device, err
	}
	return client, device, nil
}

func TestHandshakeMatchingPoP(t *testing.T) {
	client, device, err := runHandshake(t, "12345678", "12345678")
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if !client.Secured() || !device.Secured() {
		t.Fatal("both sides should be secured after handshake")
	}
}

func TestHandshakeMismatchedPoP(t *testing.T) {
	_, device, err := runHandshake(t, "12345678", "87654321")
	if !errors.Is(err, ErrConfirmationFailed) {
		t.Fatalf("handshake error = %v, want ErrConfirmationFailed", err)
	}
	if device.Secured() {
		t.Error("device must not be secured after a failed confirm")
	}
}

func TestCredentialExchange(t *testing.T) {
	client, device, err := runHandshake(t, "0badf00d", "0badf00d")
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	sealed, err := client.Seal(&Inner{
		Type:       InnerSetCredentials,
		SSID:       "HomeNet",
		Passphrase: "hunter22",
	})
	if err != nil {
		t.Fatalf("client Seal failed: %v", err)
	}

	inner, err := device.Open(sealed)
	if err != nil {
		t.Fatalf("device Open failed: %v", err)
	}
	if inner.Type != InnerSetCredentials || inner.SSID != "HomeNet" || inner.Passphrase != "hunter22" {
		t.Errorf("device received %+v", inner)
	}

	// Device acks, client reads it back.
	ack, err := device.Seal(&Inner{Type: InnerStatus, OK: true})
	if err != nil {
		t.Fatalf("device Seal failed: %v", err)
	}
	status, err := client.Open(ack)
	if err != nil {
		t.Fatalf("client Open failed: %v", err)
	}
	if status.Type != InnerStatus || !status.OK {
		t.Errorf("client received %+v", status)
	}
}

func TestMultipleSealedMessages(t *testing.T) {
	client, device, err := runHandshake(t, "aaaa0000", "aaaa0000")
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	// Counter nonces: several messages in a row must all decrypt.
	for i := 0; i < 5; i++ {
		sealed, err := client.Seal(&Inner{Type: InnerApply})
		if err != nil {
			t.Fatalf("Seal %d failed: %v", i, err)
		}
		if _, err := device.Open(sealed); err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
	}
}

func TestTamperedCiphertext(t *testing.T) {
	client, device, err := runHandshake(t, "cafe0001", "cafe0001")
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	sealed, err := client.Seal(&Inner{Type: InnerApply})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	sealed[0] ^= 0xff

	if _, err := device.Open(sealed); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Open of tampered ciphertext = %v, want ErrDecryptFailed", err)
	}
}

func TestSealBeforeSecured(t *testing.T) {
	device := NewDeviceSession(1, "12345678")
	if _, err := device.Seal(&Inner{Type: InnerStatus}); !errors.Is(err, ErrSessionNotSecured) {
		t.Errorf("Seal before handshake = %v, want ErrSessionNotSecured", err)
	}
	if _, err := device.Open([]byte{1, 2, 3}); !errors.Is(err, ErrSessionNotSecured) {
		t.Errorf("Open before handshake = %v, want ErrSessionNotSecured", err)
	}
}

func TestSecurityMismatch(t *testing.T) {
	device := NewDeviceSession(1, "12345678")
	_, err := device.HandleRequest(&SessionRequest{Version: Version, Security: 0})
	if !errors.Is(err, ErrSecurityMismatch) {
		t.Errorf("HandleRequest = %v, want ErrSecurityMismatch", err)
	}
}

func TestVersionCheck(t *testing.T) {
	device := NewDeviceSession(1, "12345678")
	_, err := device.HandleRequest(&SessionRequest{Version: 99, Security: 1})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("HandleRequest = %v, want ErrUnsupportedVersion", err)
	}
}

func TestSecurity0PassThrough(t *testing.T) {
	client := NewClientSession(0, "")
	device := NewDeviceSession(0, "")

	reqMsg, err := client.Request()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp, err := device.HandleRequest(reqMsg.SessionRequest)
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if _, err := client.HandleResponse(resp); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}

	sealed, err := client.Seal(&Inner{Type: InnerSetCredentials, SSID: "Open"})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	inner, err := device.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if inner.SSID != "Open" {
		t.Errorf("inner = %+v", inner)
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"session request", Message{Type: TypeSessionRequest, SessionRequest: &SessionRequest{Version: 1}}, false},
		{"sealed", Message{Type: TypeSealed, Sealed: []byte{1}}, false},
		{"missing body", Message{Type: TypeSessionRequest}, true},
		{"empty sealed", Message{Type: TypeSealed}, true},
		{"unknown type", Message{Type: 200}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			_, err = DecodeMessage(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeMessage error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
