package storage

import (
	"fmt"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/types"
)

// leafDigest is the value digest committed for key. Balance keys hash
// as a Balance so that a zero balance leaves no leaf.
func leafDigest(key types.Key, value []byte) types.Hash {
	if _, ok := types.IsBalanceKey(key); ok {
		if b, err := types.BalanceFromBytes(value); err == nil {
			return b.Hash256()
		}
	}
	return types.HashBytes(value)
}

// Read returns the value stored under key.
func (s *Storage) Read(key types.Key) ([]byte, bool, error) {
	val, err := s.data.Get([]byte(key.String()))
	if err != nil {
		return nil, false, err
	}
	return val, val != nil, nil
}

// HasKey reports whether key holds a value.
func (s *Storage) HasKey(key types.Key) (bool, error) {
	return s.data.Has([]byte(key.String()))
}

// Write stores value under key and updates its leaf. Writes to balance
// keys must carry an encoded Balance and go through UpdateBalance.
func (s *Storage) Write(key types.Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := types.IsBalanceKey(key); ok {
		b, err := types.BalanceFromBytes(value)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return s.updateBalance(owner, b)
	}
	if err := s.updateTree(key.Hash256(), types.HashBytes(value)); err != nil {
		return err
	}
	return s.data.Set([]byte(key.String()), value)
}

// Delete removes key and its leaf. Deleting a balance key removes the
// account from the balance ledger.
func (s *Storage) Delete(key types.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateTree(key.Hash256(), types.Hash{}); err != nil {
		return err
	}
	if err := s.data.Delete([]byte(key.String())); err != nil {
		return err
	}
	if owner, ok := types.IsBalanceKey(key); ok {
		delete(s.block.Balances, owner)
	}
	return nil
}

// Iterator walks a snapshot of the entries under a prefix, in key
// order. The snapshot is taken when the iterator is opened.
type Iterator struct {
	entries []types.KeyVal
	pos     int
}

// Next returns the next entry, or false once the iterator is
// exhausted.
func (it *Iterator) Next() (types.KeyVal, bool) {
	if it.pos >= len(it.entries) {
		return types.KeyVal{}, false
	}
	kv := it.entries[it.pos]
	it.pos++
	return kv, true
}

// IterPrefix opens an iterator over every entry whose key text starts
// with prefix.
func (s *Storage) IterPrefix(prefix string) (*Iterator, error) {
	return iterPrefix(s.data, prefix)
}

func iterPrefix(data db.DB, prefix string) (*Iterator, error) {
	it := &Iterator{}
	err := data.Iterate([]byte(prefix), func(k, v []byte) bool {
		it.entries = append(it.entries, types.KeyVal{Key: string(k), Val: v})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate %q: %w", prefix, err)
	}
	return it, nil
}
