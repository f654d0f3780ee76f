// Package guest is the guest side of the state-access protocol: typed
// helpers that drive the raw host functions through a linear memory,
// the way compiled guest code would.
//
// Values are cramberry encoded. A stored value that does not decode
// as the requested type reads as absent.
package guest

import (
	"bytes"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/vm/memory"
)

// Reader is a view of storage from inside a guest: the transaction's
// own view, or either view of a validity predicate.
type Reader interface {
	ReadBytes(key string) ([]byte, bool, error)
	HasKey(key string) (bool, error)
	IterPrefix(prefix string) (*Iter, error)
}

// Entry is a decoded storage entry.
type Entry[T any] struct {
	Key   string
	Value T
}

// caller owns the guest memory. Every call starts from an empty
// memory; results are copied out before the call returns.
type caller struct {
	mem *memory.Linear
}

func (c caller) put(b []byte) (uint32, uint32, error) {
	ptr, err := c.mem.Put(b)
	if err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(b)), nil
}

// fetch completes a probe that returned n: it allocates room for the
// result, has fill move it there and copies it out.
func (c caller) fetch(n int64, fill func(ptr uint32) error) ([]byte, bool, error) {
	if n == host.Sentinel {
		return nil, false, nil
	}
	if n < 0 {
		return nil, false, fmt.Errorf("unexpected probe result %d", n)
	}
	ptr, err := c.mem.Allocate(uint32(n))
	if err != nil {
		return nil, false, err
	}
	if err := fill(ptr); err != nil {
		return nil, false, err
	}
	b, err := c.mem.Read(ptr, uint32(n))
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c caller) chainID(get func(ptr uint32) error) (string, error) {
	c.mem.Reset()
	ptr, err := c.mem.Allocate(types.ChainIDLength)
	if err != nil {
		return "", err
	}
	if err := get(ptr); err != nil {
		return "", err
	}
	b, err := c.mem.Read(ptr, types.ChainIDLength)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}

func (c caller) blockHash(get func(ptr uint32) error) (types.BlockHash, error) {
	c.mem.Reset()
	ptr, err := c.mem.Allocate(types.BlockHashLength)
	if err != nil {
		return types.BlockHash{}, err
	}
	if err := get(ptr); err != nil {
		return types.BlockHash{}, err
	}
	b, err := c.mem.Read(ptr, types.BlockHashLength)
	if err != nil {
		return types.BlockHash{}, err
	}
	return types.BlockHashFromBytes(b)
}

func (c caller) log(logString func(ptr, n uint32) error, msg string) error {
	c.mem.Reset()
	ptr, n, err := c.put([]byte(msg))
	if err != nil {
		return err
	}
	return logString(ptr, n)
}

// Iter walks the entries of a prefix iterator opened in the host.
type Iter struct {
	c    caller
	id   uint64
	next func(id uint64) (int64, error)
	fill func(ptr uint32) error
}

// Next returns the next entry, or false at the end.
func (it *Iter) Next() (types.KeyVal, bool, error) {
	it.c.mem.Reset()
	n, err := it.next(it.id)
	if err != nil {
		return types.KeyVal{}, false, err
	}
	b, ok, err := it.c.fetch(n, it.fill)
	if err != nil || !ok {
		return types.KeyVal{}, false, err
	}
	kv, err := host.DecodeKeyVal(b)
	if err != nil {
		return types.KeyVal{}, false, err
	}
	return kv, true, nil
}

// Read reads and decodes the value under key.
func Read[T any](r Reader, key string) (T, bool, error) {
	var v T
	b, ok, err := r.ReadBytes(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := cramberry.Unmarshal(b, &v); err != nil {
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// ReadBalance reads the balance of addr.
func ReadBalance(r Reader, addr types.Address) (types.Balance, bool, error) {
	key, err := types.BalanceKey(addr)
	if err != nil {
		return 0, false, err
	}
	b, ok, err := r.ReadBytes(key.String())
	if err != nil || !ok {
		return 0, false, err
	}
	bal, err := types.BalanceFromBytes(b)
	if err != nil {
		return 0, false, nil
	}
	return bal, true, nil
}

// IterPrefix collects the entries under prefix that decode as T.
// Entries that do not decode are skipped.
func IterPrefix[T any](r Reader, prefix string) ([]Entry[T], error) {
	it, err := r.IterPrefix(prefix)
	if err != nil {
		return nil, err
	}
	var out []Entry[T]
	for {
		kv, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		var v T
		if err := cramberry.Unmarshal(kv.Val, &v); err != nil {
			continue
		}
		out = append(out, Entry[T]{Key: kv.Key, Value: v})
	}
}
