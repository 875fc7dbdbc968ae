package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/soerenschneider/net-watchdog/internal"
	"github.com/soerenschneider/net-watchdog/internal/conf"
	"github.com/soerenschneider/net-watchdog/internal/metrics"
	"github.com/soerenschneider/net-watchdog/internal/netif"
	"github.com/soerenschneider/net-watchdog/internal/probe"
)

var (
	flagDebug        bool
	flagPrintVersion bool

	BuildVersion string
	CommitHash   string
)

func parseFlags() *conf.Config {
	c := conf.Default()

	flag.StringVar(&c.Interface, "interface", "", "Network interface to watch (required)")
	flag.StringVar(&c.Target, "target", "", "Address to probe; empty probes the interface's default gateway")
	flag.DurationVar(&c.ProbeInterval, "probe-interval", c.ProbeInterval, "Delay between probe cycles")
	flag.IntVar(&c.FailureThreshold, "failure-threshold", c.FailureThreshold, "Consecutive probe failures before the adapter is restarted")
	flag.IntVar(&c.RestartLimit, "restart-limit", c.RestartLimit, "Adapter restarts without an intervening success before giving up")
	flag.DurationVar(&c.RestartDelay, "restart-delay", c.RestartDelay, "Delay after an adapter restart")
	flag.StringVar(&c.Prober, "probe", c.Prober, "Probe to use (icmp, tcp)")
	flag.DurationVar(&c.ProbeTimeout, "probe-timeout", c.ProbeTimeout, "Timeout for a single probe")
	flag.IntVar(&c.ProbePort, "probe-port", 0, "Port for the tcp probe")
	flag.StringVar(&c.Restarter, "restarter", c.Restarter, "How to restart the adapter (link, networkctl)")
	flag.StringVar(&c.MetricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address")
	flag.StringVar(&c.MetricsFile, "metrics-file", "", "Dump prometheus metrics to this file")
	flag.BoolVar(&flagDebug, "debug", false, "Print debug logs")
	flag.BoolVar(&flagPrintVersion, "version", false, "Print version and exit")
	flag.Parse()

	return c
}

func main() {
	conf := parseFlags()

	if flagPrintVersion {
		//nolint forbidigo
		fmt.Printf("%s %s\n", BuildVersion, CommitHash)
		os.Exit(0)
	}

	setupLogging()
	slog.Info("Starting net-watchdog", "version", BuildVersion)

	if err := conf.Validate(); err != nil {
		log.Fatalf("validating configuration failed: %v", err)
	}

	if err := netif.LinkExists(conf.Interface); err != nil {
		log.Fatalf("interface is not usable: %v", err)
	}

	prober, err := buildProber(conf)
	if err != nil {
		log.Fatalf("could not build prober: %v", err)
	}

	restarter, err := buildRestarter(conf)
	if err != nil {
		log.Fatalf("could not build restarter: %v", err)
	}

	var resolver internal.GatewayResolver
	if conf.GatewayMode() {
		resolver = netif.NewNetlinkResolver()
		slog.Info("No target configured, probing the interface's default gateway", "interface", conf.Interface)
	}

	watchdog, err := internal.NewWatchdog(conf, prober, resolver, restarter)
	if err != nil {
		log.Fatalf("could not build watchdog: %v", err)
	}

	run(watchdog, conf)
}

func run(watchdog *internal.Watchdog, conf *conf.Config) {
	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}
	metricsErrChan := make(chan error, 1)
	go func() {
		if conf.MetricsAddr != "" {
			wg.Add(1)
			metricsServer, err := metrics.New(conf.MetricsAddr)
			if err != nil {
				metricsErrChan <- err
			} else {
				if err := metricsServer.StartServer(ctx, wg); err != nil {
					metricsErrChan <- err
				}
			}
		} else if conf.MetricsFile != "" {
			wg.Add(1)
			metrics.StartMetricsWriter(ctx, wg, conf.MetricsFile)
		}
	}()

	watchdogErrChan := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchdogErrChan <- watchdog.Run(ctx)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	var exitCode int
	select {
	case <-sigc:
		slog.Info("Received signal")
		exitCode = 0
	case err := <-metricsErrChan:
		slog.Error("could not start metrics subsystem", "err", err)
		exitCode = 1
	case err := <-watchdogErrChan:
		if err != nil {
			slog.Error("Watchdog reached terminal failure", "err", err)
			exitCode = 1
		}
	}

	cancel()
	gracefulExitDone := make(chan struct{})

	go func() {
		slog.Info("Waiting for components to shut down gracefully")
		wg.Wait()
		close(gracefulExitDone)
	}()

	select {
	case <-gracefulExitDone:
		slog.Debug("All components shut down gracefully within the timeout")
	case <-time.After(30 * time.Second):
		slog.Error("Killing process forcefully")
	}
	os.Exit(exitCode)
}

func setupLogging() {
	var level slog.Leveler = slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func buildProber(c *conf.Config) (internal.Prober, error) {
	switch c.Prober {
	case conf.ProberIcmp:
		return probe.NewIcmpProber(c.ProbeTimeout), nil
	case conf.ProberTcp:
		return probe.NewTcpProber(c.ProbePort, c.ProbeTimeout)
	default:
		return nil, fmt.Errorf("no prober %q available", c.Prober)
	}
}

func buildRestarter(c *conf.Config) (internal.AdapterRestarter, error) {
	switch c.Restarter {
	case conf.RestarterLink:
		return netif.NewLinkRestarter(), nil
	case conf.RestarterNetworkctl:
		return netif.NewNetworkctlRestarter()
	default:
		return nil, fmt.Errorf("no restarter %q available", c.Restarter)
	}
}
