// Package writelog holds the tentative writes of one transaction on
// top of the durable storage, and serves the two views validity
// predicates compare: pre (storage as it was before the transaction)
// and post (storage with the transaction's writes applied).
package writelog

import (
	"fmt"
	"slices"

	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
)

// Store is the durable storage under a write log.
type Store interface {
	Read(key types.Key) ([]byte, bool, error)
	HasKey(key types.Key) (bool, error)
	Write(key types.Key, value []byte) error
	Delete(key types.Key) error
	IterPrefix(prefix string) (*storage.Iterator, error)
}

var _ Store = (*storage.Storage)(nil)

// Iterator yields storage entries one at a time.
type Iterator interface {
	Next() (types.KeyVal, bool)
}

// Modification is a pending change to one key: either a new value or
// a deletion.
type Modification struct {
	Key     types.Key
	Value   []byte
	Deleted bool
}

// WriteLog is the pending write set of one transaction. It is not
// safe for concurrent use.
type WriteLog struct {
	store Store
	mods  map[string]Modification
}

// New returns an empty write log over store.
func New(store Store) *WriteLog {
	return &WriteLog{store: store, mods: make(map[string]Modification)}
}

// ReadPre reads key as of before the transaction.
func (w *WriteLog) ReadPre(key types.Key) ([]byte, bool, error) {
	return w.store.Read(key)
}

// ReadPost reads key with the transaction's writes applied.
func (w *WriteLog) ReadPost(key types.Key) ([]byte, bool, error) {
	if m, ok := w.mods[key.String()]; ok {
		if m.Deleted {
			return nil, false, nil
		}
		return slices.Clone(m.Value), true, nil
	}
	return w.store.Read(key)
}

// HasKeyPre reports whether key existed before the transaction.
func (w *WriteLog) HasKeyPre(key types.Key) (bool, error) {
	return w.store.HasKey(key)
}

// HasKeyPost reports whether key exists with the transaction's writes
// applied.
func (w *WriteLog) HasKeyPost(key types.Key) (bool, error) {
	if m, ok := w.mods[key.String()]; ok {
		return !m.Deleted, nil
	}
	return w.store.HasKey(key)
}

// Write records a new value for key. Balance keys only accept encoded
// balances.
func (w *WriteLog) Write(key types.Key, value []byte) error {
	if _, ok := types.IsBalanceKey(key); ok {
		if _, err := types.BalanceFromBytes(value); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	w.mods[key.String()] = Modification{Key: key, Value: slices.Clone(value)}
	return nil
}

// Delete records the deletion of key.
func (w *WriteLog) Delete(key types.Key) {
	w.mods[key.String()] = Modification{Key: key, Deleted: true}
}

// IterPrefixPre iterates the entries under prefix as of before the
// transaction.
func (w *WriteLog) IterPrefixPre(prefix string) (Iterator, error) {
	it, err := w.store.IterPrefix(prefix)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// IterPrefixPost iterates the entries under prefix that existed before
// the transaction, with the transaction's writes applied. Keys deleted
// by the transaction are skipped. Keys created by the transaction are
// not visited.
func (w *WriteLog) IterPrefixPost(prefix string) (Iterator, error) {
	it, err := w.store.IterPrefix(prefix)
	if err != nil {
		return nil, err
	}
	return &postIterator{log: w, inner: it}, nil
}

type postIterator struct {
	log   *WriteLog
	inner Iterator
}

func (p *postIterator) Next() (types.KeyVal, bool) {
	for {
		kv, ok := p.inner.Next()
		if !ok {
			return types.KeyVal{}, false
		}
		m, changed := p.log.mods[kv.Key]
		if !changed {
			return kv, true
		}
		if m.Deleted {
			continue
		}
		return types.KeyVal{Key: kv.Key, Val: slices.Clone(m.Value)}, true
	}
}

// ChangedKeys returns the keys written or deleted, sorted by their text
// form.
func (w *WriteLog) ChangedKeys() []types.Key {
	names := make([]string, 0, len(w.mods))
	for k := range w.mods {
		names = append(names, k)
	}
	slices.Sort(names)
	keys := make([]types.Key, len(names))
	for i, n := range names {
		keys[i] = w.mods[n].Key
	}
	return keys
}

// Len returns the number of changed keys.
func (w *WriteLog) Len() int { return len(w.mods) }

// Commit applies the pending writes to the store in key order and
// empties the log.
func (w *WriteLog) Commit() error {
	for _, key := range w.ChangedKeys() {
		m := w.mods[key.String()]
		var err error
		if m.Deleted {
			err = w.store.Delete(key)
		} else {
			err = w.store.Write(key, m.Value)
		}
		if err != nil {
			return fmt.Errorf("apply %s: %w", key, err)
		}
	}
	w.Drop()
	return nil
}

// Drop discards the pending writes.
func (w *WriteLog) Drop() {
	clear(w.mods)
}
