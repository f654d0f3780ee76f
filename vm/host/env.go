package host

import (
	"github.com/blockberries/ledger/types"
)

// ChainInfo is the block header data visible to guest code.
type ChainInfo interface {
	ChainID() string
	BlockHeight() types.BlockHeight
	BlockHash() types.BlockHash
}

// parseKey parses a key crossing the boundary. Malformed keys cannot
// hold a value, so readers treat them as absent.
func parseKey(key string) (types.Key, bool) {
	k, err := types.ParseKey(key)
	return k, err == nil
}
