package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/soerenschneider/net-watchdog/internal/conf"
	"github.com/soerenschneider/net-watchdog/internal/metrics"
)

// ErrRestartBudgetExhausted is returned by Cycle (and propagated by Run)
// once the configured number of adapter restarts has been spent without an
// intervening successful probe. It is terminal: the watchdog must not be
// driven further.
var ErrRestartBudgetExhausted = errors.New("adapter restart budget exhausted")

type Prober interface {
	Probe(ctx context.Context, target net.IP) (bool, error)
}

type GatewayResolver interface {
	DefaultGateway(iface string) (net.IP, error)
}

type AdapterRestarter interface {
	Restart(ctx context.Context, iface string) error
}

// Watchdog supervises connectivity of a single interface/target pair. It is
// not safe for concurrent use; Run drives it from exactly one goroutine.
type Watchdog struct {
	iface  string
	target net.IP // nil selects gateway mode

	probeInterval time.Duration
	restartDelay  time.Duration

	failureThreshold int
	restartLimit     int

	prober    Prober
	resolver  GatewayResolver
	restarter AdapterRestarter

	failedAttempts  int
	restartAttempts int
}

func NewWatchdog(c *conf.Config, prober Prober, resolver GatewayResolver, restarter AdapterRestarter) (*Watchdog, error) {
	if c == nil {
		return nil, errors.New("nil config supplied")
	}
	if prober == nil {
		return nil, errors.New("nil prober supplied")
	}
	if restarter == nil {
		return nil, errors.New("nil restarter supplied")
	}

	var target net.IP
	if c.GatewayMode() {
		if resolver == nil {
			return nil, errors.New("no target configured and no gateway resolver supplied")
		}
	} else {
		target = net.ParseIP(c.Target)
		if target == nil {
			return nil, fmt.Errorf("could not parse %q as ip address", c.Target)
		}
	}

	return &Watchdog{
		iface:            c.Interface,
		target:           target,
		probeInterval:    c.ProbeInterval,
		restartDelay:     c.RestartDelay,
		failureThreshold: c.FailureThreshold,
		restartLimit:     c.RestartLimit,
		prober:           prober,
		resolver:         resolver,
		restarter:        restarter,
	}, nil
}

// Run drives the watchdog until the restart budget is exhausted or ctx is
// cancelled. A nil return means a clean, externally requested shutdown.
func (w *Watchdog) Run(ctx context.Context) error {
	// One informational probe before the loop so operators see immediately
	// whether the link starts out healthy. Does not touch any counter.
	if w.probe(ctx) {
		slog.Info("Initial connectivity check succeeded", "interface", w.iface)
	} else {
		slog.Warn("Initial connectivity check failed", "interface", w.iface)
	}

	for {
		delay, err := w.Cycle(ctx)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// Cycle executes a single probe cycle and returns the delay to observe
// before the next one. A non-nil error is terminal.
func (w *Watchdog) Cycle(ctx context.Context) (time.Duration, error) {
	if w.probe(ctx) {
		if w.restartAttempts > 0 {
			slog.Info("Connection recovered", "interface", w.iface, "restarts", w.restartAttempts)
			metrics.LastStateChange.SetToCurrentTime()
		}
		w.failedAttempts = 0
		w.restartAttempts = 0
		w.updateCounterMetrics()
		metrics.ConnectionHealthy.Set(1)
		return w.probeInterval, nil
	}

	metrics.ConnectionHealthy.Set(0)
	w.failedAttempts++
	w.updateCounterMetrics()

	if w.failedAttempts < w.failureThreshold {
		slog.Warn("Probe failed", "interface", w.iface, "failed_attempts", w.failedAttempts, "threshold", w.failureThreshold)
		return w.probeInterval, nil
	}

	// Escalation. restartAttempts accumulates across consecutive restart
	// cycles and only resets on a successful probe.
	w.restartAttempts++
	w.updateCounterMetrics()
	if w.restartAttempts > w.restartLimit {
		metrics.LastStateChange.SetToCurrentTime()
		return 0, fmt.Errorf("%w: %d restarts of %q did not restore connectivity", ErrRestartBudgetExhausted, w.restartLimit, w.iface)
	}

	slog.Warn("Restarting network adapter", "interface", w.iface, "restart_attempts", w.restartAttempts, "limit", w.restartLimit)
	metrics.AdapterRestarts.Inc()
	metrics.LastStateChange.SetToCurrentTime()
	if err := w.restarter.Restart(ctx, w.iface); err != nil {
		metrics.Errors.WithLabelValues("adapter_restart").Inc()
		slog.Error("Adapter restart failed", "interface", w.iface, "err", err)
	}

	w.failedAttempts = 0
	w.updateCounterMetrics()
	return w.restartDelay, nil
}

// probe resolves the cycle's target and performs one reachability check.
// Every error path maps to an unhealthy result so transient conditions
// accumulate in failedAttempts instead of surfacing.
func (w *Watchdog) probe(ctx context.Context) bool {
	target := w.target
	if target == nil {
		gw, err := w.resolver.DefaultGateway(w.iface)
		if err != nil {
			metrics.Errors.WithLabelValues("gateway_resolution").Inc()
			metrics.Probes.WithLabelValues("failure").Inc()
			slog.Warn("Could not resolve default gateway", "interface", w.iface, "err", err)
			return false
		}
		target = gw
	}

	healthy, err := w.prober.Probe(ctx, target)
	if err != nil {
		slog.Debug("Probe produced error", "target", target.String(), "err", err)
		healthy = false
	}

	if healthy {
		metrics.Probes.WithLabelValues("success").Inc()
	} else {
		metrics.Probes.WithLabelValues("failure").Inc()
	}
	return healthy
}

func (w *Watchdog) updateCounterMetrics() {
	metrics.FailedAttempts.Set(float64(w.failedAttempts))
	metrics.RestartAttempts.Set(float64(w.restartAttempts))
}
