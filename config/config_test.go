package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/db"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	lvl, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, log.LevelInfo, lvl)
	require.Equal(t, cfg.NodeCacheSize, cfg.StorageOptions().NodeCacheSize)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_backend":"badger","log_level":"debug","max_tx_bytes":1024}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, db.BadgerBackend, cfg.DBBackend)
	require.Equal(t, uint64(1024), cfg.MaxTxBytes)
	require.Equal(t, DefaultConfig().ListenAddr, cfg.ListenAddr)
	lvl, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, lvl)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	cfg := DefaultConfig()
	cfg.Home = "/var/lib/ledger"
	cfg.MaxParallelVps = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_backend":`), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":      func(c *Config) { c.DBBackend = "rocksdb" },
		"home":         func(c *Config) { c.Home = "" },
		"listen":       func(c *Config) { c.ListenAddr = "localhost" },
		"log level":    func(c *Config) { c.LogLevel = "loud" },
		"cache":        func(c *Config) { c.NodeCacheSize = -1 },
		"parallel vps": func(c *Config) { c.MaxParallelVps = -2 },
		"guest memory": func(c *Config) { c.GuestMemory = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := DefaultConfig()
	cfg.DBBackend = db.MemoryBackend
	cfg.Home = ""
	require.NoError(t, cfg.Validate())
}
