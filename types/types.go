// Package types defines the core data types of the ledger: the
// address and storage-key model, the values committed to the Merkle
// tree, and the messages exchanged with the consensus engine.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns (gRPC codec
// registration) are handled in the transport packages.
package types

import "encoding/hex"

// Hash is a 32-byte cryptographic digest. The all-zero value is the
// canonical digest of "absent": empty byte strings and zero balances
// hash to it, and a tree leaf holding it is indistinguishable from no
// leaf at all.
type Hash [32]byte

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool { return h == Hash{} }

// Bytes returns a copy of the digest as a slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// AppHash is the Merkle root of the application state after
// execution.
type AppHash [32]byte

func (h AppHash) String() string { return hex.EncodeToString(h[:]) }

// Tx is an opaque transaction as carried by the consensus engine.
// The ledger decodes it into a Transaction.
type Tx []byte

// QueryPath selects what a state query reads
// (e.g., "/balance", "/value").
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}

// KeyVal is a storage entry as handed to guest code by prefix
// iteration.
type KeyVal struct {
	Key string `cramberry:"1"`
	Val []byte `cramberry:"2"`
}
