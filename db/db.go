// Package db is the key-value layer under the ledger storage. The
// Merkle tree nodes, the raw state values and the commit metadata all
// live in one DB, separated into table spaces.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown db backend")

// DB is the minimal key-value store the ledger needs. Implementations
// must be safe for concurrent use.
type DB interface {
	// Get returns the value for key, or nil, nil when the key is absent.
	// A present empty value is returned as a non-nil empty slice.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every entry whose key starts with prefix, in
	// ascending byte order, until fn returns false. Key and value are
	// owned by fn.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	NewBatch() Batch
	Close() error
}

// Batch collects writes that land atomically on Write.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Write() error
}

// Backend names a DB implementation.
type Backend string

const (
	MemoryBackend  Backend = "memory"
	LevelDBBackend Backend = "goleveldb"
	BadgerBackend  Backend = "badger"
)

// Open opens the named backend. Disk backends keep their files under
// dir/name; the memory backend ignores dir.
func Open(backend Backend, dir, name string) (DB, error) {
	switch backend {
	case MemoryBackend:
		return NewMemDB()
	case LevelDBBackend, BadgerBackend:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if backend == BadgerBackend {
		return NewBadgerDB(path)
	}
	return NewLevelDB(path)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
