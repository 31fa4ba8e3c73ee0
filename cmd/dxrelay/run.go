package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rsclarke/dxrelay/internal/auth"
	"github.com/rsclarke/dxrelay/internal/config"
	"github.com/rsclarke/dxrelay/internal/db"
	"github.com/rsclarke/dxrelay/internal/logging"
	"github.com/rsclarke/dxrelay/internal/matrix"
	"github.com/rsclarke/dxrelay/internal/metrics"
	"github.com/rsclarke/dxrelay/internal/queue"
	"github.com/rsclarke/dxrelay/internal/relay"
	"github.com/rsclarke/dxrelay/internal/resolver"
	"github.com/rsclarke/dxrelay/internal/server"
	"github.com/rsclarke/dxrelay/internal/supervisor"
	"github.com/rsclarke/dxrelay/internal/telnet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runFlags struct {
	host       string
	username   string
	apiListen  string
	dbPath     string
	nameserver string
	format     string
	stdin      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the cluster and relay spots",
	Long: `Connect to the DX cluster, log in, and relay relevant spot lines.

Spots go to the configured Matrix room, or to stdout when no homeserver is
set. Operator text is written back to the cluster from the HTTP API
(POST /v1/messages) and, with --stdin, from standard input.

The process exits non-zero as soon as any part of the relay stops.`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.host, "host", "", "cluster address as host:port (overrides telnet.host)")
	runCmd.Flags().StringVar(&runFlags.username, "username", "", "cluster login (overrides telnet.username)")
	runCmd.Flags().StringVar(&runFlags.apiListen, "api-listen", "", "API listen address, \"off\" to disable (overrides api.listen)")
	runCmd.Flags().StringVar(&runFlags.dbPath, "db", "", "database path (overrides db.path)")
	runCmd.Flags().StringVar(&runFlags.nameserver, "nameserver", "", "resolve the cluster host via this DNS server (overrides dns.nameserver)")
	runCmd.Flags().StringVar(&runFlags.format, "format", "", "console output format, text or json (overrides output.format)")
	runCmd.Flags().BoolVar(&runFlags.stdin, "stdin", false, "send lines read from stdin to the cluster")
}

// loadRunConfig layers explicitly set flags over the config file and
// environment.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Telnet.Host = runFlags.host
	}
	if flags.Changed("username") {
		cfg.Telnet.Username = runFlags.username
	}
	if flags.Changed("api-listen") {
		cfg.API.Listen = runFlags.apiListen
		if cfg.API.Listen == "off" {
			cfg.API.Listen = ""
		}
	}
	if flags.Changed("db") {
		cfg.DB.Path = runFlags.dbPath
	}
	if flags.Changed("nameserver") {
		cfg.DNS.Nameserver = runFlags.nameserver
	}
	if flags.Changed("format") {
		cfg.Output.Format = runFlags.format
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("starting dxrelay", zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spots := queue.New[string]()
	outbound := queue.New[string]()
	inbox := queue.New[string]()

	m, err := metrics.NewCollector(prometheus.DefaultRegisterer, func() float64 {
		return float64(outbound.Len() + inbox.Len())
	})
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var res telnet.Resolver = resolver.System()
	if cfg.DNS.Nameserver != "" {
		res = resolver.New(cfg.DNS.Nameserver, logger.Named("resolver"))
		logger.Info("using explicit nameserver", logging.Nameserver(cfg.DNS.Nameserver))
	}

	manager := telnet.NewManager(
		telnet.Config{Host: cfg.Telnet.Host, Username: cfg.Telnet.Username},
		spots, outbound,
		telnet.Options{Logger: logger.Named("telnet"), Resolver: res, Metrics: m},
	)

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}

	tasks := []supervisor.Task{
		{Name: "telnet", Run: manager.Run},
		{Name: "forward", Run: func(ctx context.Context) error {
			return relay.Forward(ctx, spots, sink, logger.Named("relay"), m)
		}},
		{Name: "pump", Run: func(ctx context.Context) error {
			return relay.Pump(ctx, inbox, outbound)
		}},
	}

	apiEnabled := cfg.API.Listen != ""
	if apiEnabled {
		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()

		if err := ensureAPIKey(database); err != nil {
			return err
		}

		apiSrv := &server.APIServer{
			DB:      database,
			Inbox:   inbox,
			Host:    cfg.Telnet.Host,
			State:   func() string { return manager.State().String() },
			Metrics: m,
			Logger:  logger.Named("api"),
		}
		managed, err := server.NewManagedServer("api",
			server.DefaultServerConfig(cfg.API.Listen, apiSrv.Handler(), logger.Named("api")))
		if err != nil {
			return err
		}
		tasks = append(tasks, supervisor.Task{Name: "api", Run: managed.Run})
	}

	if runFlags.stdin {
		go func() {
			err := relay.ReadLines(ctx, os.Stdin, inbox)
			logger.Info("stdin closed", zap.Error(err))
			if !apiEnabled {
				inbox.Close()
			}
		}()
	}

	err = supervisor.Run(ctx, logger, tasks...)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newSink(ctx context.Context, cfg *config.Config) (relay.Sink, error) {
	if !cfg.Matrix.Enabled() {
		return &relay.Console{W: os.Stdout, JSON: cfg.Output.Format == "json"}, nil
	}

	mc, err := matrix.NewClient(matrix.Config{
		Homeserver:  cfg.Matrix.Homeserver,
		AccessToken: cfg.Matrix.AccessToken,
		UserID:      cfg.Matrix.UserID,
		DeviceID:    cfg.Matrix.DeviceID,
	})
	if err != nil {
		return nil, err
	}
	if err := mc.CheckSession(ctx); err != nil {
		return nil, err
	}

	room, err := relay.JoinRoom(ctx, mc, cfg.Matrix.RoomID)
	if err != nil {
		return nil, err
	}
	logger.Info("joined matrix room", logging.Room(room.ID()))
	return room, nil
}

// ensureAPIKey creates and prints the first API key on a fresh database.
func ensureAPIKey(database *sql.DB) error {
	count, err := db.CountAPIKeys(database)
	if err != nil {
		return fmt.Errorf("count API keys: %w", err)
	}
	if count > 0 {
		return nil
	}

	key, err := auth.Generate()
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	if _, err := db.CreateAPIKey(database, key.Prefix, key.Hash, "initial"); err != nil {
		return fmt.Errorf("create API key: %w", err)
	}
	fmt.Fprintln(os.Stderr, "=============================================================")
	fmt.Fprintln(os.Stderr, "API KEY CREATED (save this, it will not be shown again):")
	fmt.Fprintln(os.Stderr, key.Display)
	fmt.Fprintln(os.Stderr, "=============================================================")
	return nil
}
