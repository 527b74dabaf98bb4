package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/midprice-exporter/internal/config"
	"github.com/rickgao/midprice-exporter/internal/feed"
	"github.com/rickgao/midprice-exporter/internal/metrics"
	"github.com/rickgao/midprice-exporter/internal/processor"
	"github.com/rickgao/midprice-exporter/internal/server"
	"github.com/rickgao/midprice-exporter/internal/store"
	"github.com/rickgao/midprice-exporter/internal/supervisor"
	"github.com/rickgao/midprice-exporter/internal/version"
)

// options holds command-line flags. Flags override file and environment.
type options struct {
	configPath string
	symbols    []string
	port       int
	timeout    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "midprice-exporter",
		Short:         "Export exchange mid-prices as Prometheus gauges",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			return run(cmd.Context(), cfg, newLogger(cfg.Log))
		},
	}

	bindFlags(root.Flags(), &opts)
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "midprice-exporter "+version.String())
		},
	}
}

func bindFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	fs.StringSliceVar(&opts.symbols, "symbol", nil, "symbol to export (repeatable, comma-separated allowed)")
	fs.IntVar(&opts.port, "port", server.DefaultConfig().Port, "metrics port")
	fs.StringVar(&opts.timeout, "timeout", "", "stall timeout in seconds")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig resolves defaults, file and environment, then applies the
// flags the user actually set.
func loadConfig(fs *pflag.FlagSet, opts options) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(opts.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed("symbol") {
		cfg.Symbols.List = opts.symbols
	}
	if fs.Changed("port") {
		cfg.Metrics.Port = opts.port
	}
	if fs.Changed("timeout") {
		d, err := config.ParseTimeout(opts.timeout)
		if err != nil {
			return nil, fmt.Errorf("parse --timeout: %w", err)
		}
		cfg.Feed.StallTimeout = d
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// run wires the components and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting midprice-exporter", version.LogAttrs()...)

	filter := processor.NewSymbolFilter(cfg.SymbolList())
	if filter.Len() == 0 {
		logger.Warn("no symbols configured, exporting every symbol on the feed")
	}
	logger.Info("configuration loaded",
		"source", cfg.Feed.Source,
		"url", cfg.Feed.URL,
		"symbols", filter.Symbols(),
		"port", cfg.Metrics.Port,
		"stall_timeout", cfg.Feed.StallTimeout,
	)

	reg := prometheus.NewRegistry()
	prices := store.New(cfg.Metrics.Name)
	if err := reg.Register(prices); err != nil {
		return fmt.Errorf("register price store: %w", err)
	}
	feedMetrics := metrics.NewFeed(reg)
	metrics.RegisterRuntime(reg)

	proc := processor.New(processor.Config{
		Source: cfg.Feed.Source,
		Filter: filter,
	}, prices, feedMetrics, logger.With("component", "processor"))

	feedCfg := feedConfig(cfg.Feed)
	feedLogger := logger.With("component", "feed")
	open := func(ctx context.Context) (feed.Session, error) {
		return feed.Open(ctx, feedCfg, feedLogger)
	}

	sup := supervisor.New(supervisor.Config{
		StallTimeout:       cfg.Feed.StallTimeout,
		ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
	}, open, proc, feedMetrics, logger.With("component", "supervisor"))

	srvCfg := server.DefaultConfig()
	srvCfg.Port = cfg.Metrics.Port
	srvCfg.HealthPath = cfg.Metrics.HealthPath
	srv := server.New(srvCfg, reg, func() (string, bool) {
		st := sup.State()
		return st.String(), st == supervisor.StateStreaming
	}, logger.With("component", "server"))

	var g errgroup.Group
	g.Go(func() error {
		return sup.Run(ctx)
	})
	g.Go(func() error {
		// The feed keeps running when the endpoint cannot be served.
		if err := srv.Serve(ctx); err != nil {
			logger.Warn("metrics endpoint unavailable", "error", err)
		}
		return nil
	})

	err := g.Wait()
	logger.Info("midprice-exporter stopped", "sessions", sup.Sessions(), "symbols", prices.Len())
	return err
}

func feedConfig(c config.FeedConfig) feed.Config {
	return feed.Config{
		URL:              c.URL,
		Topics:           c.Topics,
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
		ReadLimit:        c.ReadLimit,
		BufferSize:       c.BufferSize,
	}
}
