package probe

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func TestTcpProber_Probe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not start listener: %v", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	prober, err := NewTcpProber(port, 1*time.Second)
	if err != nil {
		t.Fatalf("NewTcpProber() error = %v", err)
	}

	healthy, err := prober.Probe(context.Background(), net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !healthy {
		t.Error("Probe() = false against open port, want true")
	}
}

func TestTcpProber_ProbeRefusedCountsAsReachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not start listener: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	prober, err := NewTcpProber(port, 1*time.Second)
	if err != nil {
		t.Fatalf("NewTcpProber() error = %v", err)
	}

	// a refused connection means the host answered, so the link is up
	healthy, err := prober.Probe(context.Background(), net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !healthy {
		t.Error("Probe() = false for refused connection, want true")
	}
}

func TestNewTcpProber_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		t.Run(strconv.Itoa(port), func(t *testing.T) {
			if _, err := NewTcpProber(port, time.Second); err == nil {
				t.Errorf("NewTcpProber(%d) expected error", port)
			}
		})
	}
}
