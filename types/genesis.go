package types

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// GenesisDoc is the raw genesis document for chain initialization.
type GenesisDoc struct {
	ChainID       string    `cramberry:"1"`
	GenesisTime   Timestamp `cramberry:"2"`
	InitialHeight uint64    `cramberry:"3"`
	Params        Params    `cramberry:"4"`
	// Cramberry-encoded GenesisState.
	AppState []byte `cramberry:"5"`
}

// GenesisAccount is an account that exists from the first block.
type GenesisAccount struct {
	Address Address `cramberry:"1"`
	Balance uint64  `cramberry:"2"`
	// Raw ed25519 public key. Empty = no key.
	PublicKey []byte `cramberry:"3"`
	// Validity predicate code. Empty = no predicate.
	VpCode []byte `cramberry:"4"`
}

// GenesisState is the application part of the genesis document.
type GenesisState struct {
	Accounts []GenesisAccount `cramberry:"1"`
}

// Encode returns the cramberry encoding for GenesisDoc.AppState.
func (g GenesisState) Encode() ([]byte, error) {
	return cramberry.Marshal(g)
}

// DecodeGenesisState decodes GenesisDoc.AppState. Empty input is an
// empty state.
func DecodeGenesisState(b []byte) (GenesisState, error) {
	var g GenesisState
	if len(b) == 0 {
		return g, nil
	}
	if err := cramberry.Unmarshal(b, &g); err != nil {
		return GenesisState{}, fmt.Errorf("decode genesis state: %w", err)
	}
	return g, nil
}
