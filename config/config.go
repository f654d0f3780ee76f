// Package config holds the settings of a ledger node.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/storage"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the node configuration. The JSON field names are the keys
// of the config file.
type Config struct {
	// Home is the data directory.
	Home string `json:"home"`
	// DBBackend is one of memory, goleveldb or badger.
	DBBackend db.Backend `json:"db_backend"`
	// ListenAddr is the gRPC listen address.
	ListenAddr string `json:"listen_addr"`
	// LogLevel is a geth log level name (trace, debug, info, warn,
	// error, crit).
	LogLevel string `json:"log_level"`
	// NodeCacheSize is the number of tree nodes kept in memory.
	NodeCacheSize int `json:"node_cache_size"`
	// MaxTxBytes overrides the genesis transaction size limit.
	MaxTxBytes uint64 `json:"max_tx_bytes"`
	// MaxParallelVps bounds the validity predicates run at once.
	MaxParallelVps int `json:"max_parallel_vps"`
	// GuestMemory is the linear memory size of each guest run.
	GuestMemory uint32 `json:"guest_memory"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Home:          ".ledger",
		DBBackend:     db.LevelDBBackend,
		ListenAddr:    "127.0.0.1:26658",
		LogLevel:      "info",
		NodeCacheSize: storage.DefaultOptions().NodeCacheSize,
		GuestMemory:   1 << 20,
	}
}

// Load reads a JSON file over DefaultConfig. Keys missing from the
// file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field.
func (c Config) Validate() error {
	switch c.DBBackend {
	case db.MemoryBackend, db.LevelDBBackend, db.BadgerBackend:
	default:
		return fmt.Errorf("%w: db_backend %q", ErrInvalid, c.DBBackend)
	}
	if c.DBBackend != db.MemoryBackend && c.Home == "" {
		return fmt.Errorf("%w: home is required for the %s backend", ErrInvalid, c.DBBackend)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: listen_addr: %v", ErrInvalid, err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.NodeCacheSize < 0 {
		return fmt.Errorf("%w: node_cache_size %d", ErrInvalid, c.NodeCacheSize)
	}
	if c.MaxParallelVps < 0 {
		return fmt.Errorf("%w: max_parallel_vps %d", ErrInvalid, c.MaxParallelVps)
	}
	if c.GuestMemory == 0 {
		return fmt.Errorf("%w: guest_memory must be positive", ErrInvalid)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit", "critical":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
}

// StorageOptions returns the storage settings of c.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{NodeCacheSize: c.NodeCacheSize}
}

// Save writes c as indented JSON.
func (c Config) Save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
