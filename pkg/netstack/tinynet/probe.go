//go:build pyportal || nano_rp2040 || metro_m4_airlift || arduino_mkrwifi1010 || matrixportal_m4

package tinynet

import (
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
)

// ProbeDrivers discovers the board's wireless driver pair.
func ProbeDrivers() (netlink.Netlinker, netdev.Netdever) {
	return probe.Probe()
}
