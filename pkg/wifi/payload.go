package wifi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"github.com/wisp-protocol/wisp-go/pkg/version"
)

// Payload is the onboarding payload encoded into the QR code. Companion
// apps parse it to locate the device and prove possession.
type Payload struct {
	Version   string `json:"ver"`
	Name      string `json:"name"`
	PoP       string `json:"pop"`
	Transport string `json:"transport"`
}

// EncodePayload builds the JSON onboarding payload for a device.
func EncodePayload(name, pop, transport string) ([]byte, error) {
	return json.Marshal(Payload{
		Version:   version.Current,
		Name:      name,
		PoP:       pop,
		Transport: transport,
	})
}

// buildQR renders the payload as a terminal QR code. Low error correction
// keeps the code small enough for serial consoles. A payload that does not
// fit the code capacity is an error; no truncation fallback exists.
func buildQR(payload []byte) (string, error) {
	code, err := qrcode.New(string(payload), qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// writeQR writes the rendered QR code and a copyable payload line to w.
func writeQR(w io.Writer, qr string, payload []byte) error {
	if _, err := io.WriteString(w, qr); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Scan the QR code above, or use this payload: %s\n", payload)
	return err
}
