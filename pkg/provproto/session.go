package provproto

import (
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Session errors.
var (
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrConfirmationFailed = errors.New("confirmation failed")
	ErrDecryptFailed      = errors.New("decryption failed")
	ErrSecurityMismatch   = errors.New("security level mismatch")
	ErrSessionNotSecured  = errors.New("session not secured")
)

// hkdfSalt binds derived keys to this protocol and version.
var hkdfSalt = []byte("WISP-PROV-V1")

// Confirmation labels. Each side MACs the handshake transcript under its
// own label so the two confirm values can never be replayed at each other.
var (
	labelClientConfirm = []byte("wisp client confirm")
	labelDeviceConfirm = []byte("wisp device confirm")
)

// keySchedule holds the keys derived from one handshake.
type keySchedule struct {
	confirmKey []byte // HMAC key for the confirm exchange
	c2sKey     []byte // client->device AEAD key
	s2cKey     []byte // device->client AEAD key
}

// deriveKeys runs HKDF-SHA256 over the X25519 shared secret with the PoP
// mixed into the info parameter. A client that does not know the PoP
// derives different keys and fails the confirm exchange.
func deriveKeys(shared []byte, pop string) (*keySchedule, error) {
	r := hkdf.New(sha256.New, shared, hkdfSalt, []byte(pop))

	ks := &keySchedule{
		confirmKey: make([]byte, 32),
		c2sKey:     make([]byte, chacha20poly1305.KeySize),
		s2cKey:     make([]byte, chacha20poly1305.KeySize),
	}
	for _, key := range [][]byte{ks.confirmKey, ks.c2sKey, ks.s2cKey} {
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("key derivation failed: %w", err)
		}
	}
	return ks, nil
}

// confirmMAC computes the confirmation value for one side.
func confirmMAC(key, label, clientPub, devicePub []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(label)
	mac.Write(clientPub)
	mac.Write(devicePub)
	return mac.Sum(nil)
}

// sealer encrypts and decrypts inner messages with per-direction keys and
// counter nonces. A session is single-peer and its transport is ordered,
// so counters are sufficient.
type sealer struct {
	sealAEAD  cipher.AEAD
	openAEAD  cipher.AEAD
	sealCount uint64
	openCount uint64
}

func newSealer(sealKey, openKey []byte) (*sealer, error) {
	sa, err := chacha20poly1305.New(sealKey)
	if err != nil {
		return nil, err
	}
	oa, err := chacha20poly1305.New(openKey)
	if err != nil {
		return nil, err
	}
	return &sealer{sealAEAD: sa, openAEAD: oa}, nil
}

func counterNonce(n uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(nonce, n)
	return nonce
}

func (s *sealer) seal(plaintext []byte) []byte {
	nonce := counterNonce(s.sealCount)
	s.sealCount++
	return s.sealAEAD.Seal(nil, nonce, plaintext, nil)
}

func (s *sealer) open(ciphertext []byte) ([]byte, error) {
	nonce := counterNonce(s.openCount)
	plaintext, err := s.openAEAD.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}
	s.openCount++
	return plaintext, nil
}

// DeviceSession is the device side of one provisioning session.
// It is driven by the transport: feed it decoded messages in handshake
// order, then exchange sealed inner messages. Not safe for concurrent use;
// a session belongs to a single transport connection.
type DeviceSession struct {
	security uint8
	pop      string

	priv      *ecdh.PrivateKey
	clientPub []byte
	devicePub []byte

	keys    *keySchedule
	sealer  *sealer
	secured bool
}

// NewDeviceSession creates a device session for the given security level.
// pop is required for security 1 and ignored for security 0.
func NewDeviceSession(security uint8, pop string) *DeviceSession {
	return &DeviceSession{security: security, pop: pop}
}

// HandleRequest consumes the client's session request and produces the
// device's response.
func (s *DeviceSession) HandleRequest(req *SessionRequest) (*SessionResponse, error) {
	if req.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, req.Version)
	}
	if req.Security != s.security {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrSecurityMismatch, s.security, req.Security)
	}

	if s.security == 0 {
		// Plaintext session, nothing to negotiate.
		s.secured = true
		return &SessionResponse{}, nil
	}

	clientPub, err := ecdh.X25519().NewPublicKey(req.ClientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	s.priv = priv
	s.clientPub = req.ClientPub
	s.devicePub = priv.PublicKey().Bytes()

	shared, err := priv.ECDH(clientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	s.keys, err = deriveKeys(shared, s.pop)
	if err != nil {
		return nil, err
	}

	return &SessionResponse{
		DevicePub:     s.devicePub,
		DeviceConfirm: confirmMAC(s.keys.confirmKey, labelDeviceConfirm, s.clientPub, s.devicePub),
	}, nil
}

// HandleConfirm verifies the client's confirmation and opens the secure
// channel. A mismatch means the client does not know the PoP.
func (s *DeviceSession) HandleConfirm(c *SessionConfirm) error {
	if s.security == 0 {
		return nil
	}
	if s.keys == nil {
		return ErrSessionNotSecured
	}

	want := confirmMAC(s.keys.confirmKey, labelClientConfirm, s.clientPub, s.devicePub)
	if !hmac.Equal(c.ClientConfirm, want) {
		return ErrConfirmationFailed
	}

	sl, err := newSealer(s.keys.s2cKey, s.keys.c2sKey)
	if err != nil {
		return err
	}
	s.sealer = sl
	s.secured = true
	return nil
}

// Secured reports whether the handshake completed.
func (s *DeviceSession) Secured() bool {
	return s.secured
}

// Open decrypts and decodes a sealed inner message from the client.
func (s *DeviceSession) Open(sealed []byte) (*Inner, error) {
	plaintext, err := s.openSealed(sealed)
	if err != nil {
		return nil, err
	}
	var inner Inner
	if err := Unmarshal(plaintext, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &inner, nil
}

// Seal encodes and encrypts an inner message for the client.
func (s *DeviceSession) Seal(inner *Inner) ([]byte, error) {
	if !s.secured {
		return nil, ErrSessionNotSecured
	}
	plaintext, err := Marshal(inner)
	if err != nil {
		return nil, err
	}
	if s.security == 0 {
		return plaintext, nil
	}
	return s.sealer.seal(plaintext), nil
}

func (s *DeviceSession) openSealed(sealed []byte) ([]byte, error) {
	if !s.secured {
		return nil, ErrSessionNotSecured
	}
	if s.security == 0 {
		return sealed, nil
	}
	plaintext, err := s.sealer.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// ClientSession is the client side of one provisioning session. It exists
// for companion tooling and tests; phone apps speak the same wire format.
type ClientSession struct {
	security uint8
	pop      string

	priv      *ecdh.PrivateKey
	clientPub []byte
	devicePub []byte

	keys    *keySchedule
	sealer  *sealer
	secured bool
}

// NewClientSession creates a client session for the given security level.
func NewClientSession(security uint8, pop string) *ClientSession {
	return &ClientSession{security: security, pop: pop}
}

// Request produces the opening session request.
func (c *ClientSession) Request() (*Message, error) {
	req := &SessionRequest{Version: Version, Security: c.security}

	if c.security == 1 {
		priv, err := ecdh.X25519().GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		c.priv = priv
		c.clientPub = priv.PublicKey().Bytes()
		req.ClientPub = c.clientPub
	}

	return &Message{Type: TypeSessionRequest, SessionRequest: req}, nil
}

// HandleResponse verifies the device's confirmation and produces the
// closing confirm message.
func (c *ClientSession) HandleResponse(resp *SessionResponse) (*Message, error) {
	if c.security == 0 {
		c.secured = true
		return nil, nil
	}

	devicePub, err := ecdh.X25519().NewPublicKey(resp.DevicePub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	c.devicePub = resp.DevicePub

	shared, err := c.priv.ECDH(devicePub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	c.keys, err = deriveKeys(shared, c.pop)
	if err != nil {
		return nil, err
	}

	want := confirmMAC(c.keys.confirmKey, labelDeviceConfirm, c.clientPub, c.devicePub)
	if !hmac.Equal(resp.DeviceConfirm, want) {
		return nil, ErrConfirmationFailed
	}

	sl, err := newSealer(c.keys.c2sKey, c.keys.s2cKey)
	if err != nil {
		return nil, err
	}
	c.sealer = sl
	c.secured = true

	return &Message{
		Type: TypeSessionConfirm,
		SessionConfirm: &SessionConfirm{
			ClientConfirm: confirmMAC(c.keys.confirmKey, labelClientConfirm, c.clientPub, c.devicePub),
		},
	}, nil
}

// Secured reports whether the handshake completed.
func (c *ClientSession) Secured() bool {
	return c.secured
}

// Seal encodes and encrypts an inner message for the device.
func (c *ClientSession) Seal(inner *Inner) ([]byte, error) {
	if !c.secured {
		return nil, ErrSessionNotSecured
	}
	plaintext, err := Marshal(inner)
	if err != nil {
		return nil, err
	}
	if c.security == 0 {
		return plaintext, nil
	}
	return c.sealer.seal(plaintext), nil
}

// Open decrypts and decodes a sealed inner message from the device.
func (c *ClientSession) Open(sealed []byte) (*Inner, error) {
	if !c.secured {
		return nil, ErrSessionNotSecured
	}
	plaintext := sealed
	if c.security == 1 {
		var err error
		plaintext, err = c.sealer.open(sealed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
	}
	var inner Inner
	if err := Unmarshal(plaintext, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &inner, nil
}
