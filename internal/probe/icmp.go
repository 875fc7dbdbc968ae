package probe

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const (
	icmpDefaultTimeout = 3 * time.Second
)

type IcmpProber struct {
	timeout    time.Duration
	privileged bool
}

func NewIcmpProber(timeout time.Duration) *IcmpProber {
	return &IcmpProber{
		timeout:    cmp.Or(timeout, icmpDefaultTimeout),
		privileged: getPrivilegedDefaultForPlatform(),
	}
}

func getPrivilegedDefaultForPlatform() bool {
	switch runtime.GOOS {
	case "linux":
		return true
	case "windows":
		return true
	}

	return false
}

func (p *IcmpProber) Probe(ctx context.Context, target net.IP) (bool, error) {
	pinger, err := probing.NewPinger(target.String())
	if err != nil {
		return false, fmt.Errorf("could not create pinger: %w", err)
	}

	count := 1
	pinger.Timeout = p.timeout
	pinger.Count = count
	pinger.SetPrivileged(p.privileged)
	if err := pinger.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("ping unsuccessful: %w", err)
	}

	stats := pinger.Statistics()
	return stats.PacketsRecv == count, nil
}
