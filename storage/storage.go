// Package storage is the Merkle-committed state of the ledger.
//
// Every state entry is a leaf of a sparse Merkle tree: the leaf is
// addressed by the digest of the storage key and holds the digest of
// the value. Balances are additionally kept in an in-memory map so
// balance checks never touch the tree. The tree and the map are only
// ever changed together.
//
// Writes are staged in memory and reach the backing db.DB on Commit.
package storage

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/celestiaorg/smt"
	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/types"
)

var (
	// ErrAddressNotFound is returned when an address has never been
	// assigned a balance.
	ErrAddressNotFound = errors.New("address not found")
	// ErrInsufficientBalance is returned when a balance is lower than
	// the amount requested.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow is returned when a credit would overflow the
	// target balance.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrTree wraps failures of the Merkle tree itself. They indicate a
	// broken store, not bad input, and are not recoverable.
	ErrTree = errors.New("merkle tree failure")
)

// Options configures a Storage.
type Options struct {
	// NodeCacheSize is the number of tree nodes kept in the LRU read
	// cache. Zero disables the cache.
	NodeCacheSize int
	Logger        log.Logger
}

// DefaultOptions returns the options used by NewInMemory.
func DefaultOptions() Options {
	return Options{NodeCacheSize: 10000}
}

// BlockStorage is the per-block part of the state: the tree, the
// current block header data and the balance ledger.
type BlockStorage struct {
	tree     *smt.SparseMerkleTree
	Hash     types.BlockHash
	Height   types.BlockHeight
	Balances map[types.Address]types.Balance
}

// Storage is the single owner of the tree and the balance ledger.
// It is safe for concurrent use; mutations are serialized.
type Storage struct {
	mu     sync.RWMutex
	logger log.Logger

	backend db.DB
	cache   *db.Cache
	nodes   *mapStore
	leaves  *mapStore
	data    db.DB
	meta    db.DB

	chainID   string
	block     BlockStorage
	committed *CommitInfo
}

// NewInMemory returns an empty storage over an in-memory database.
func NewInMemory() (*Storage, error) {
	backend, err := db.NewMemDB()
	if err != nil {
		return nil, err
	}
	return Open(backend, DefaultOptions())
}

// Open loads the last committed state from backend. An empty backend
// yields empty storage: an empty tree, no balances, height zero and
// the all-zero block hash.
func Open(backend db.DB, opts Options) (*Storage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New("module", "storage")
	}
	cache := db.NewCache(backend)
	nodes, err := newMapStore(db.NewPrefixed(cache, db.NodeSpace), opts.NodeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("node cache: %w", err)
	}
	leaves, _ := newMapStore(db.NewPrefixed(cache, db.LeafSpace), 0)
	s := &Storage{
		logger:  logger,
		backend: backend,
		cache:   cache,
		nodes:   nodes,
		leaves:  leaves,
		data:    db.NewPrefixed(cache, db.DataSpace),
		meta:    db.NewPrefixed(cache, db.MetaSpace),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the backing database. Uncommitted changes are lost.
func (s *Storage) Close() error {
	return s.backend.Close()
}

// MerkleRoot returns the current root of the tree.
func (s *Storage) MerkleRoot() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root()
}

func (s *Storage) root() types.Hash {
	var h types.Hash
	copy(h[:], s.block.tree.Root())
	return h
}

// UpdateTree sets the leaf at keyDigest to valueDigest. It is the only
// way leaves change. The zero value digest removes the leaf.
func (s *Storage) UpdateTree(keyDigest, valueDigest types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTree(keyDigest, valueDigest)
}

func (s *Storage) updateTree(keyDigest, valueDigest types.Hash) error {
	var err error
	if valueDigest.IsZero() {
		_, err = s.block.tree.Delete(keyDigest[:])
	} else {
		_, err = s.block.tree.Update(keyDigest[:], valueDigest[:])
	}
	if err != nil {
		return fmt.Errorf("%w: leaf %s: %v", ErrTree, keyDigest, err)
	}
	return nil
}

// UpdateBalance sets the balance of addr. The balance map is only
// touched once the tree update succeeded.
func (s *Storage) UpdateBalance(addr types.Address, balance types.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBalance(addr, balance)
}

func (s *Storage) updateBalance(addr types.Address, balance types.Balance) error {
	key, err := types.BalanceKey(addr)
	if err != nil {
		return err
	}
	if err := s.updateTree(key.Hash256(), balance.Hash256()); err != nil {
		return err
	}
	if err := s.data.Set([]byte(key.String()), balance.Bytes()); err != nil {
		return err
	}
	s.block.Balances[addr] = balance
	return nil
}

// Balance returns the balance of addr and whether it has one.
func (s *Storage) Balance(addr types.Address) (types.Balance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.block.Balances[addr]
	return b, ok
}

// Balances returns a copy of the balance ledger.
func (s *Storage) Balances() map[types.Address]types.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.block.Balances)
}

// HasBalanceGTE checks that addr holds at least amount. It reads the
// balance map only.
func (s *Storage) HasBalanceGTE(addr types.Address, amount uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bal, ok := s.block.Balances[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAddressNotFound, addr)
	}
	if uint64(bal) < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, addr, bal, amount)
	}
	return nil
}

// Transfer moves amount from src to dest. Nothing changes unless both
// the debit and the credit land. Transfers to self and transfers of
// zero go through both updates like any other.
func (s *Storage) Transfer(src, dest types.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcBal, ok := s.block.Balances[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAddressNotFound, src)
	}
	if uint64(srcBal) < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, src, srcBal, amount)
	}
	destBal := s.block.Balances[dest]
	if dest == src {
		destBal = srcBal - types.Balance(amount)
	}
	if uint64(destBal) > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, dest)
	}

	if err := s.updateBalance(src, srcBal-types.Balance(amount)); err != nil {
		return err
	}
	// Read after the debit so a transfer to self sees it.
	destBal = s.block.Balances[dest]
	if err := s.updateBalance(dest, destBal+types.Balance(amount)); err != nil {
		if rerr := s.updateBalance(src, srcBal); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

// SetChainID records the chain identifier. The chain id belongs to the
// block header, which the consensus layer attests, so it is not part
// of the tree and does not change the root.
func (s *Storage) SetChainID(id string) error {
	if err := types.ValidateChainID(id); err != nil {
		return err
	}
	s.mu.Lock()
	s.chainID = id
	s.mu.Unlock()
	return nil
}

// ChainID returns the chain identifier.
func (s *Storage) ChainID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// BeginBlock starts a new block. Like the chain id, block hash and
// height are header data and are not committed to the tree.
func (s *Storage) BeginBlock(hash types.BlockHash, height types.BlockHeight) {
	s.mu.Lock()
	s.block.Hash = hash
	s.block.Height = height
	s.mu.Unlock()
}

// BlockHeight returns the height of the current block.
func (s *Storage) BlockHeight() types.BlockHeight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.block.Height
}

// BlockHash returns the hash of the current block.
func (s *Storage) BlockHash() types.BlockHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.block.Hash
}
