// Package version provides onboarding payload version parsing and
// comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the payload version implemented by this library.
const Current = "v1"

// PayloadVersion represents a parsed "vN" payload version tag.
type PayloadVersion struct {
	Major uint16
}

// Parse parses a "vN" version tag.
func Parse(s string) (PayloadVersion, error) {
	if !strings.HasPrefix(s, "v") {
		return PayloadVersion{}, fmt.Errorf("invalid version %q: expected v-prefix", s)
	}

	suffix := s[1:]
	if suffix == "" {
		return PayloadVersion{}, fmt.Errorf("invalid version %q: empty major component", s)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return PayloadVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	return PayloadVersion{Major: uint16(major)}, nil
}

// String returns the version as "vN".
func (v PayloadVersion) String() string {
	return fmt.Sprintf("v%d", v.Major)
}

// Compatible returns true if the other version has the same major version.
func (v PayloadVersion) Compatible(other PayloadVersion) bool {
	return v.Major == other.Major
}
