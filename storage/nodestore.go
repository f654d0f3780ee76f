package storage

import (
	"github.com/celestiaorg/smt"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blockberries/ledger/db"
)

// mapStore adapts a db.DB to the tree's MapStore. Node reads go
// through an optional LRU; tree nodes are content addressed, so a
// cached node never goes stale.
type mapStore struct {
	db    db.DB
	cache *lru.Cache[string, []byte]
}

var _ smt.MapStore = (*mapStore)(nil)

func newMapStore(backing db.DB, cacheSize int) (*mapStore, error) {
	ms := &mapStore{db: backing}
	if cacheSize > 0 {
		cache, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			return nil, err
		}
		ms.cache = cache
	}
	return ms, nil
}

// withBacking returns a store over a different DB that shares the
// node cache.
func (m *mapStore) withBacking(backing db.DB) *mapStore {
	return &mapStore{db: backing, cache: m.cache}
}

func (m *mapStore) Get(key []byte) ([]byte, error) {
	if m.cache != nil {
		if val, ok := m.cache.Get(string(key)); ok {
			return val, nil
		}
	}
	val, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, &smt.InvalidKeyError{Key: key}
	}
	if m.cache != nil {
		m.cache.Add(string(key), val)
	}
	return val, nil
}

func (m *mapStore) Set(key, value []byte) error {
	if err := m.db.Set(key, value); err != nil {
		return err
	}
	if m.cache != nil {
		m.cache.Add(string(key), value)
	}
	return nil
}

func (m *mapStore) Delete(key []byte) error {
	if m.cache != nil {
		m.cache.Remove(string(key))
	}
	return m.db.Delete(key)
}

func (m *mapStore) purge() {
	if m.cache != nil {
		m.cache.Purge()
	}
}
