package types

import (
	"encoding/binary"
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// StorageHashTag separates storage digests from blake2b digests
// computed for any other purpose. It is part of the committed hash
// domain and must never change for an existing chain.
const StorageHashTag = "ledger storage"

// Hashable is implemented by every value that can be committed to
// the storage tree.
type Hashable interface {
	Hash256() Hash
}

var hasherPool = sync.Pool{
	New: func() any { return NewHasher() },
}

// NewHasher returns a fresh blake2b-256 hasher parameterized with
// StorageHashTag. The Merkle tree uses the same hasher for its inner
// nodes.
func NewHasher() hash.Hash {
	h, err := blake2b.New256([]byte(StorageHashTag))
	if err != nil {
		// Only possible for keys longer than 64 bytes.
		panic("types: invalid storage hash tag: " + err.Error())
	}
	return h
}

// HashBytes hashes raw bytes. The empty slice maps to the all-zero
// digest without invoking the hash function.
func HashBytes(b []byte) Hash {
	if len(b) == 0 {
		return Hash{}
	}
	h := hasherPool.Get().(hash.Hash)
	h.Reset()
	h.Write(b)
	var out Hash
	h.Sum(out[:0])
	hasherPool.Put(h)
	return out
}

// HashString hashes the UTF-8 bytes of s. The empty string maps to
// the all-zero digest.
func HashString(s string) Hash {
	return HashBytes([]byte(s))
}

// HashUint64 hashes the little-endian encoding of v. Zero is hashed
// like any other value; only Balance treats zero specially.
func HashUint64(v uint64) Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return HashBytes(buf[:])
}
