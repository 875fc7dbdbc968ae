package netif

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// NetworkctlRestarter asks systemd-networkd to reconfigure the interface
// instead of bouncing the link directly. Preferable on hosts where
// networkd owns addressing and a plain link bounce would leave the
// interface unconfigured.
type NetworkctlRestarter struct{}

func NewNetworkctlRestarter() (*NetworkctlRestarter, error) {
	if _, err := exec.LookPath("networkctl"); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, errors.New("networkctl does not seem to be available")
		}
		return nil, err
	}

	return &NetworkctlRestarter{}, nil
}

func (n *NetworkctlRestarter) Restart(ctx context.Context, iface string) error {
	cmd := exec.CommandContext(ctx, "networkctl", "reconfigure", iface)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to reconfigure interface %s: %w", iface, err)
	}
	return nil
}
