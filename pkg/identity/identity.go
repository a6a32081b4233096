package identity

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// HardwareIDSize is the size of the buffer a HardwareIDSource fills.
// Only the first 6 bytes carry the factory-programmed identity; the
// remaining 2 bytes are reserved.
const HardwareIDSize = 8

// hardwareIDUsed is the number of identity bytes folded into the
// device-name suffix.
const hardwareIDUsed = 6

// Identity errors.
var (
	ErrNoHardwareID = errors.New("no hardware identity available")
)

// HardwareIDSource reads the factory-programmed hardware identity of the
// device. Implementations must return the same bytes on every call for
// the lifetime of the hardware.
type HardwareIDSource interface {
	// HardwareID returns the hardware identity. Only the first 6 bytes
	// of the result are significant.
	HardwareID() ([HardwareIDSize]byte, error)
}

// Identity derives the advertised device name and the one-time
// proof-of-possession (PoP) code used to authenticate a provisioning
// session.
//
// The PoP seed is drawn once at construction and never persisted. The PoP
// is therefore stable within a process run and fresh on every restart,
// which limits a leaked code to a single provisioning window.
type Identity struct {
	serviceName string
	hwid        [HardwareIDSize]byte
	popSeed     uint32
}

// New reads the hardware identity from src and draws a fresh random PoP
// seed. A failed identity read is unrecoverable and should be treated as
// a startup failure by the caller.
func New(serviceName string, src HardwareIDSource) (*Identity, error) {
	hwid, err := src.HardwareID()
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware identity: %w", err)
	}

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to draw pop seed: %w", err)
	}

	return &Identity{
		serviceName: serviceName,
		hwid:        hwid,
		popSeed:     binary.BigEndian.Uint32(seed[:]),
	}, nil
}

// NewWithSeed builds an Identity from explicit inputs. Use when the seed
// must be controlled, e.g. in tests.
func NewWithSeed(serviceName string, hwid [HardwareIDSize]byte, popSeed uint32) *Identity {
	return &Identity{
		serviceName: serviceName,
		hwid:        hwid,
		popSeed:     popSeed,
	}
}

// DeviceName returns the advertised name: the service name followed by a
// 4-hex-digit suffix XOR-folded from the 6 significant hardware identity
// bytes. Stable for the lifetime of the hardware and independent of the
// PoP seed.
func (id *Identity) DeviceName() string {
	b1 := id.hwid[0] ^ id.hwid[1] ^ id.hwid[2]
	b2 := id.hwid[3] ^ id.hwid[4] ^ id.hwid[5]
	return fmt.Sprintf("%s %02x%02x", id.serviceName, b1, b2)
}

// PoP returns the proof-of-possession code as 8 lowercase hex digits.
func (id *Identity) PoP() string {
	return fmt.Sprintf("%08x", id.popSeed)
}

// ServiceName returns the service name the Identity was built with.
func (id *Identity) ServiceName() string {
	return id.serviceName
}
