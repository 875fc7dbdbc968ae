//go:build !linux

package netif

import (
	"context"
	"net"
)

func LinkExists(iface string) error {
	return ErrUnsupportedPlatform
}

type NetlinkResolver struct{}

func NewNetlinkResolver() *NetlinkResolver {
	return &NetlinkResolver{}
}

func (r *NetlinkResolver) DefaultGateway(iface string) (net.IP, error) {
	return nil, ErrUnsupportedPlatform
}

type LinkRestarter struct{}

func NewLinkRestarter() *LinkRestarter {
	return &LinkRestarter{}
}

func (l *LinkRestarter) Restart(ctx context.Context, iface string) error {
	return ErrUnsupportedPlatform
}
