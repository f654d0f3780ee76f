package storage

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/celestiaorg/smt"

	"github.com/blockberries/ledger/types"
)

var commitInfoKey = []byte("commit")

// CommitInfo describes the last committed state.
type CommitInfo struct {
	Root      types.Hash        `cramberry:"1"`
	Height    types.BlockHeight `cramberry:"2"`
	BlockHash types.BlockHash   `cramberry:"3"`
	ChainID   string            `cramberry:"4"`
}

// Commit persists every change since the last commit, together with
// the block header data, in one batch.
func (s *Storage) Commit() (types.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := CommitInfo{
		Root:      s.root(),
		Height:    s.block.Height,
		BlockHash: s.block.Hash,
		ChainID:   s.chainID,
	}
	bz, err := cramberry.Marshal(info)
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode commit info: %w", err)
	}
	if err := s.meta.Set(commitInfoKey, bz); err != nil {
		return types.Hash{}, err
	}
	staged := s.cache.Len()
	if err := s.cache.Flush(); err != nil {
		return types.Hash{}, fmt.Errorf("flush: %w", err)
	}
	s.committed = &info
	s.logger.Debug("Committed state", "height", info.Height, "root", info.Root, "writes", staged)
	return info.Root, nil
}

// Rollback discards every change since the last commit.
func (s *Storage) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Discard()
	s.nodes.purge()
	return s.load()
}

// LastCommitted returns the last commit, or false if nothing has been
// committed yet.
func (s *Storage) LastCommitted() (CommitInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.committed == nil {
		return CommitInfo{}, false
	}
	return *s.committed, true
}

// load rebuilds the in-memory state from the committed data.
func (s *Storage) load() error {
	s.committed = nil
	s.chainID = ""
	s.block = BlockStorage{Balances: make(map[types.Address]types.Balance)}

	bz, err := s.meta.Get(commitInfoKey)
	if err != nil {
		return fmt.Errorf("read commit info: %w", err)
	}
	if bz == nil {
		s.block.tree = smt.NewSparseMerkleTree(s.nodes, s.leaves, types.NewHasher())
		return nil
	}
	var info CommitInfo
	if err := cramberry.Unmarshal(bz, &info); err != nil {
		return fmt.Errorf("decode commit info: %w", err)
	}
	s.committed = &info
	s.chainID = info.ChainID
	s.block.Hash = info.BlockHash
	s.block.Height = info.Height
	s.block.tree = smt.ImportSparseMerkleTree(s.nodes, s.leaves, types.NewHasher(), info.Root[:])

	var decodeErr error
	err = s.data.Iterate([]byte(types.AddressMarker), func(k, v []byte) bool {
		key, err := types.ParseKey(string(k))
		if err != nil {
			return true
		}
		owner, ok := types.IsBalanceKey(key)
		if !ok {
			return true
		}
		b, err := types.BalanceFromBytes(v)
		if err != nil {
			decodeErr = fmt.Errorf("balance of %s: %w", owner, err)
			return false
		}
		s.block.Balances[owner] = b
		return true
	})
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	if decodeErr != nil {
		return decodeErr
	}
	s.logger.Info("Loaded state", "height", info.Height, "root", info.Root, "accounts", len(s.block.Balances))
	return nil
}
