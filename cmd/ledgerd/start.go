package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/blockberries/ledger/config"
	"github.com/blockberries/ledger/db"
	ledgergrpc "github.com/blockberries/ledger/grpc"
	"github.com/blockberries/ledger/shell"
	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/vm/native"
)

const stateDBName = "state"

type startFlags struct {
	configPath string
	home       string
	backend    string
	listen     string
	logLevel   string
}

func newStartCmd() *cobra.Command {
	var f startFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open the state and serve the ledger over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "JSON config file")
	flags.StringVar(&f.home, "home", "", "data directory")
	flags.StringVar(&f.backend, "db", "", "db backend (memory, goleveldb, badger)")
	flags.StringVar(&f.listen, "listen", "", "gRPC listen address")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, crit)")
	return cmd
}

// resolve loads the config file, if any, and applies the flags the
// user set on top of it.
func (f startFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("home") {
		cfg.Home = f.home
	}
	if flags.Changed("db") {
		cfg.DBBackend = db.Backend(f.backend)
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = f.listen
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

func setupLogger(cfg config.Config) error {
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
	return nil
}

// openShell opens the state under cfg and builds the application on
// top of it.
func openShell(cfg config.Config) (*shell.Shell, error) {
	backend, err := db.Open(cfg.DBBackend, cfg.Home, stateDBName)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(backend, cfg.StorageOptions())
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	reg := native.NewRegistry(cfg.GuestMemory)
	return shell.New(store, reg, reg, shell.Options{
		MaxTxBytes:     cfg.MaxTxBytes,
		MaxParallelVps: cfg.MaxParallelVps,
	}), nil
}

func run(ctx context.Context, cfg config.Config) error {
	if err := setupLogger(cfg); err != nil {
		return err
	}
	logger := log.New("module", "ledgerd")

	app, err := openShell(cfg)
	if err != nil {
		return err
	}
	defer app.Storage().Close()
	if info, ok := app.Storage().LastCommitted(); ok {
		logger.Info("Opened state", "height", info.Height, "root", info.Root, "chain", info.ChainID)
	} else {
		logger.Info("Opened empty state", "backend", cfg.DBBackend, "home", cfg.Home)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	gs := grpc.NewServer()
	ledgergrpc.NewGRPCServer(app).Register(gs)

	errc := make(chan error, 1)
	go func() { errc <- gs.Serve(lis) }()
	logger.Info("Serving ledger", "addr", lis.Addr(), "version", Version)

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		gs.GracefulStop()
		return nil
	case err := <-errc:
		return err
	}
}
