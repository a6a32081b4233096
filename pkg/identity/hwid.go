package identity

import "net"

// FixedSource is a HardwareIDSource returning a constant identity.
// Used by the simulated stack and in tests.
type FixedSource [HardwareIDSize]byte

// HardwareID returns the fixed identity.
func (f FixedSource) HardwareID() ([HardwareIDSize]byte, error) {
	return [HardwareIDSize]byte(f), nil
}

// InterfaceSource reads the hardware identity from the MAC address of a
// network interface, the closest host-OS equivalent of a factory-programmed
// identity register.
type InterfaceSource struct {
	// Name selects a specific interface. Empty means the first
	// non-loopback interface with a 6-byte hardware address.
	Name string
}

// HardwareID returns the selected interface's MAC in the first 6 bytes.
// The reserved trailing bytes are zero.
func (s InterfaceSource) HardwareID() ([HardwareIDSize]byte, error) {
	var id [HardwareIDSize]byte

	if s.Name != "" {
		iface, err := net.InterfaceByName(s.Name)
		if err != nil {
			return id, err
		}
		if len(iface.HardwareAddr) < hardwareIDUsed {
			return id, ErrNoHardwareID
		}
		copy(id[:hardwareIDUsed], iface.HardwareAddr)
		return id, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return id, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) < hardwareIDUsed {
			continue
		}
		copy(id[:hardwareIDUsed], iface.HardwareAddr)
		return id, nil
	}
	return id, ErrNoHardwareID
}

// Compile-time interface satisfaction checks.
var (
	_ HardwareIDSource = FixedSource{}
	_ HardwareIDSource = InterfaceSource{}
)
