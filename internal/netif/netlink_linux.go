//go:build linux

package netif

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/vishvananda/netlink"
)

const linkSettleDelay = 1 * time.Second

// LinkExists resolves an interface name once. Used at startup to tell a
// configuration error apart from a transiently missing gateway.
func LinkExists(iface string) error {
	if _, err := netlink.LinkByName(iface); err != nil {
		return fmt.Errorf("interface %q not found: %w", iface, err)
	}
	return nil
}

type NetlinkResolver struct{}

func NewNetlinkResolver() *NetlinkResolver {
	return &NetlinkResolver{}
}

// DefaultGateway returns the gateway of the interface's IPv4 default route.
func (r *NetlinkResolver) DefaultGateway(iface string) (net.IP, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, fmt.Errorf("interface %q not found: %w", iface, err)
	}

	routes, err := netlink.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("could not list routes for %q: %w", iface, err)
	}

	for _, route := range routes {
		// the default route carries either a nil or an unspecified destination
		if route.Dst != nil && !route.Dst.IP.IsUnspecified() {
			continue
		}
		if route.Gw != nil {
			return route.Gw, nil
		}
	}

	return nil, ErrNoGateway
}

// LinkRestarter bounces an interface by bringing it down and up again.
type LinkRestarter struct {
	settleDelay time.Duration
}

func NewLinkRestarter() *LinkRestarter {
	return &LinkRestarter{
		settleDelay: linkSettleDelay,
	}
}

func (l *LinkRestarter) Restart(ctx context.Context, iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("interface %q not found: %w", iface, err)
	}

	if err := netlink.LinkSetDown(link); err != nil {
		return fmt.Errorf("could not bring %q down: %w", iface, err)
	}

	// give the driver a moment to actually cycle the carrier; the link is
	// brought up again even if the context is cancelled meanwhile
	select {
	case <-ctx.Done():
	case <-time.After(l.settleDelay):
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("could not bring %q up: %w", iface, err)
	}

	return nil
}
