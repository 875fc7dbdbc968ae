package probe

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"
)

const (
	tcpDefaultTimeout = 5 * time.Second
)

// TcpProber checks reachability by opening a TCP connection. Useful on
// networks that filter ICMP.
type TcpProber struct {
	port    string
	timeout time.Duration
}

func NewTcpProber(port int, timeout time.Duration) (*TcpProber, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	return &TcpProber{
		port:    strconv.Itoa(port),
		timeout: cmp.Or(timeout, tcpDefaultTimeout),
	}, nil
}

func (p *TcpProber) Probe(_ context.Context, target net.IP) (bool, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(target.String(), p.port), p.timeout)
	if err == nil && conn != nil {
		defer conn.Close()
		return true, nil
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		// receiving this error means the remote system replied
		return true, nil
	}

	return false, err
}
