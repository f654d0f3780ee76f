package db

import (
	"bytes"
	"slices"
	"strings"
	"sync"
)

type staged struct {
	value   []byte
	deleted bool
}

// Cache stages writes in memory on top of a parent DB. Reads see the
// staged writes; the parent is untouched until Flush writes them in a
// single batch.
type Cache struct {
	mu     sync.RWMutex
	parent DB
	writes map[string]staged
}

// NewCache returns an empty cache over parent.
func NewCache(parent DB) *Cache {
	return &Cache{parent: parent, writes: make(map[string]staged)}
}

// Parent returns the DB the cache flushes into.
func (c *Cache) Parent() DB { return c.parent }

func (c *Cache) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	w, ok := c.writes[string(key)]
	c.mu.RUnlock()
	if ok {
		if w.deleted {
			return nil, nil
		}
		return copyBytes(w.value), nil
	}
	return c.parent.Get(key)
}

func (c *Cache) Has(key []byte) (bool, error) {
	val, err := c.Get(key)
	return val != nil, err
}

func (c *Cache) Set(key, value []byte) error {
	c.mu.Lock()
	c.writes[string(key)] = staged{value: copyBytes(value)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(key []byte) error {
	c.mu.Lock()
	c.writes[string(key)] = staged{deleted: true}
	c.mu.Unlock()
	return nil
}

// Iterate merges the staged writes with the parent's entries.
func (c *Cache) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	if err := c.parent.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	c.mu.RLock()
	for k, w := range c.writes {
		if !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		if w.deleted {
			delete(merged, k)
		} else {
			merged[k] = copyBytes(w.value)
		}
	}
	c.mu.RUnlock()

	keys := make([][]byte, 0, len(merged))
	for k := range merged {
		keys = append(keys, []byte(k))
	}
	slices.SortFunc(keys, bytes.Compare)
	for _, k := range keys {
		if !fn(k, merged[string(k)]) {
			break
		}
	}
	return nil
}

// NewBatch returns a batch that stages into the cache.
func (c *Cache) NewBatch() Batch {
	return &cacheBatch{c: c}
}

// Close is a no-op; the parent is closed by its owner.
func (c *Cache) Close() error { return nil }

// Len returns the number of staged writes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.writes)
}

// Flush writes every staged change to the parent in one batch and
// clears the cache. On error nothing is cleared.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	batch := c.parent.NewBatch()
	for k, w := range c.writes {
		var err error
		if w.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Set([]byte(k), w.value)
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	c.writes = make(map[string]staged)
	return nil
}

// Discard drops every staged change.
func (c *Cache) Discard() {
	c.mu.Lock()
	c.writes = make(map[string]staged)
	c.mu.Unlock()
}

type cacheBatch struct {
	c   *Cache
	ops []func()
}

func (b *cacheBatch) Set(key, value []byte) error {
	k, v := string(key), copyBytes(value)
	b.ops = append(b.ops, func() { b.c.writes[k] = staged{value: v} })
	return nil
}

func (b *cacheBatch) Delete(key []byte) error {
	k := string(key)
	b.ops = append(b.ops, func() { b.c.writes[k] = staged{deleted: true} })
	return nil
}

func (b *cacheBatch) Write() error {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	for _, op := range b.ops {
		op()
	}
	b.ops = nil
	return nil
}
