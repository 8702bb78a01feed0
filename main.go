package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdnet "net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"LiveBoard/internal/config"
	"LiveBoard/internal/export"
	"LiveBoard/internal/logging"
	"LiveBoard/internal/net"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
	"LiveBoard/internal/ui"
)

func main() {
	if err := mainInner(os.Args[1:]); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// command is a subcommand body, run after the config is loaded and the
// default logger is set.
type command func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error

func newRootCmd() *cobra.Command {
	var configPath string
	wrap := func(fn command) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			slog.SetDefault(logger)
			return fn(cmd.Context(), cfg, logger)
		}
	}

	root := &cobra.Command{
		Use:           "liveboard",
		Short:         "Shared whiteboard and chat for a local network",
		Long:          "Without a subcommand liveboard opens the desktop board.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          wrap(runBoard),
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a liveboard.yaml config file")

	root.AddCommand(&cobra.Command{
		Use:   "board",
		Short: "Open the desktop board",
		Args:  cobra.NoArgs,
		RunE:  wrap(runBoard),
	})
	root.AddCommand(&cobra.Command{
		Use:   "relay",
		Short: "Run a relay server",
		Args:  cobra.NoArgs,
		RunE:  wrap(runRelay),
	})

	var output string
	var wait time.Duration
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Join a room, wait for catch-up and write the board to a PDF",
		Args:  cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
			return runExport(ctx, cfg, logger, output, wait)
		}),
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "liveboard.pdf", "output file")
	exportCmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "how long to wait for catch-up")
	root.AddCommand(exportCmd)
	return root
}

func clientConfig(cfg *config.Config) net.Config {
	return net.Config{
		URL:             cfg.Relay.URL,
		Room:            cfg.Relay.Room,
		Keepalive:       cfg.Relay.Keepalive,
		DialTimeout:     cfg.Relay.DialTimeout,
		DiscoverTimeout: cfg.Relay.DiscoverTimeout,
		Replica:         state.Options{LockDuration: cfg.Board.ClearLock},
	}
}

func runBoard(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := net.NewClient(clientConfig(cfg), logger)
	window := ui.NewApp(client, ui.Options{Color: cfg.Board.Color, Size: cfg.Board.Size}, logger)
	client.OnChange = window.Update

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- client.Run(ctx) }()

	// The window stays open after the relay goes away, showing the board as
	// it was with a disconnected status.
	window.Run(ctx.Done())
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, net.ErrTransportClosed) {
		return err
	}
	return nil
}

func runRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var bus relay.Bus = relay.NewMemoryBus()
	if cfg.Server.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Server.Redis.Addr, Password: cfg.Server.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis %s: %w", cfg.Server.Redis.Addr, err)
		}
		redisBus := relay.NewRedisBus(rdb, logger)
		logger.Info("sharing rooms through redis", "addr", cfg.Server.Redis.Addr, "node", redisBus.Node())
		bus = redisBus
	}
	defer bus.Close()

	var gatherer prometheus.Gatherer
	var metrics *relay.Metrics
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = relay.NewMetrics(reg)
		gatherer = reg
	}
	srv := relay.NewServer(relay.Options{Bus: bus, Logger: logger, Metrics: metrics})

	ln, err := stdnet.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	port := ln.Addr().(*stdnet.TCPAddr).Port
	logger.Info("share this relay", "url", net.ShareURL(port))

	if cfg.Server.Advertise {
		mdnsServer, err := net.Advertise(port, cfg.Relay.Room)
		if err != nil {
			logger.Warn("mdns advertise failed", "err", err)
		} else {
			defer mdnsServer.Shutdown()
			logger.Info("advertising relay", "port", port)
		}
	}
	return srv.Serve(ctx, ln, gatherer)
}

func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, output string, wait time.Duration) error {
	client := net.NewClient(clientConfig(cfg), logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- client.Run(ctx) }()

	// Catch-up has no completion signal, so wait a fixed time after joining.
	select {
	case <-time.After(wait):
	case err := <-errc:
		if err == nil {
			return errors.New("interrupted before the board was received")
		}
		return err
	}
	v := client.View()
	if !v.Joined {
		return errors.New("relay did not assign an id in time")
	}
	if err := export.WriteFile(output, v); err != nil {
		return err
	}
	logger.Info("exported board", "path", output, "strokes", len(v.Strokes))
	cancel()
	return <-errc
}
