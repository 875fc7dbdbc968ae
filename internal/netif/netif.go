// Package netif talks to the operating system: it resolves an interface's
// default gateway and bounces the interface when the watchdog escalates.
package netif

import "errors"

var (
	// ErrNoGateway is returned when the interface exists but carries no
	// IPv4 default route. The watchdog treats this like a failed probe so
	// transient conditions (DHCP still negotiating) recover on their own.
	ErrNoGateway = errors.New("interface has no default gateway")

	ErrUnsupportedPlatform = errors.New("not supported on this platform")
)
