// Package wifi coordinates device onboarding and wireless connectivity.
//
// A Module sits on top of a netstack.Stack. On first boot it derives a
// device identity, opens the provisioning window, and renders an
// onboarding QR code; once credentials arrive it connects as a station.
// On later boots it connects straight to the stored network. Link drops
// are retried according to a ReconnectPolicy, and callers block on the
// connectivity flag through Start or WaitConnected.
package wifi
