package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"tunprobe/internal/logging"
	"tunprobe/internal/netcfg"
	"tunprobe/internal/probe"
	"tunprobe/internal/tun"
)

func main() {
	var configPath, name, backend string
	flag.StringVar(&configPath, "config", "", "path to config file (empty uses built-in defaults)")
	flag.StringVar(&name, "name", "", "override tun interface name")
	flag.StringVar(&backend, "backend", "", "override tun backend (ioctl or water)")
	flag.Parse()

	cfg, err := LoadConfig(configPath, func(c *Config) {
		if name != "" {
			c.TunName = name
		}
		if backend != "" {
			c.Backend = backend
		}
	})
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		slog.Error("logger error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("probe error", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	probes, err := cfg.BuildProbes()
	if err != nil {
		return err
	}
	backend, err := tun.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	dev, err := tun.Open(tun.Config{Name: cfg.deviceName(), Backend: backend})
	if err != nil {
		return fmt.Errorf("tun open: %w", err)
	}
	defer dev.Close()
	flags, err := dev.Flags()
	if err != nil {
		log.Warn("read tun flags failed", "err", err)
	} else if flags != tun.IFF_TUN|tun.IFF_NO_PI {
		log.Warn("unexpected tun flags", "flags", fmt.Sprintf("%#x", flags))
	}
	log.Info("tun device ready", "name", dev.Name, "backend", dev.Backend, "flags", fmt.Sprintf("%#x", flags))

	if cfg.Address != "" {
		ifc := cfg.interfaceConfig()
		ifc.Name = dev.Name
		if err := netcfg.ConfigureInterface(ifc); err != nil {
			return fmt.Errorf("configure tun: %w", err)
		}
		routes := cfg.routes()
		if err := netcfg.AddRoutes(dev.Name, routes); err != nil {
			return fmt.Errorf("add routes: %w", err)
		}
		defer func() {
			if err := netcfg.DeleteRoutes(dev.Name, routes); err != nil {
				log.Warn("route cleanup failed", "err", err)
			}
		}()
	}

	metrics := probe.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, log)
		defer srv.Close()
	}

	runner := probe.NewRunner(dev, cfg.runnerOptions(), log, metrics, os.Stdout)
	exchanges, err := runner.Run(ctx, probes)
	if err != nil {
		return err
	}
	replies := 0
	for _, ex := range exchanges {
		replies += len(ex.Replies)
	}
	log.Info("done", "probes", len(exchanges), "replies", replies)
	return nil
}
