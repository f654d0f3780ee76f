package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// ChainIDLength is the maximum length of a chain identifier in
	// bytes. Guest code reads the chain id into a buffer of this size.
	ChainIDLength = 20
	// BlockHashLength is the length of a block hash in bytes.
	BlockHashLength = 32
)

var (
	// ErrBlockHashLength is returned when a block hash is built from a
	// slice of the wrong length.
	ErrBlockHashLength = errors.New("unexpected block hash length")
	// ErrChainIDTooLong is returned for chain ids over ChainIDLength bytes.
	ErrChainIDTooLong = errors.New("chain id too long")
	// ErrBalanceEncoding is returned when a stored balance is not
	// exactly eight bytes.
	ErrBalanceEncoding = errors.New("malformed balance encoding")
)

// Balance is an account balance.
type Balance uint64

// Hash256 maps the zero balance to the zero digest so an account
// with nothing in it occupies no leaf in the tree.
func (b Balance) Hash256() Hash {
	if b == 0 {
		return Hash{}
	}
	return HashUint64(uint64(b))
}

// Bytes returns the stored form of the balance: eight bytes,
// little-endian.
func (b Balance) Bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(b))
	return buf
}

// BalanceFromBytes decodes the stored form of a balance.
func BalanceFromBytes(b []byte) (Balance, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrBalanceEncoding, len(b))
	}
	return Balance(binary.LittleEndian.Uint64(b)), nil
}

// BlockHeight is the height of a block. It is supplied by the
// consensus engine and never computed by the ledger.
type BlockHeight uint64

// BlockHash is the hash of a block as supplied by the consensus engine.
type BlockHash [BlockHashLength]byte

// BlockHashFromBytes copies b into a BlockHash. It fails unless b is
// exactly BlockHashLength bytes long.
func BlockHashFromBytes(b []byte) (BlockHash, error) {
	var h BlockHash
	if len(b) != BlockHashLength {
		return h, fmt.Errorf("%w: %d, expected %d", ErrBlockHashLength, len(b), BlockHashLength)
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the hash as a slice.
func (h BlockHash) Bytes() []byte {
	out := make([]byte, BlockHashLength)
	copy(out, h[:])
	return out
}

// Hash256 hashes the raw block hash bytes.
func (h BlockHash) Hash256() Hash {
	return HashBytes(h[:])
}

func (h BlockHash) String() string { return hex.EncodeToString(h[:]) }

// ValidateChainID checks the length bound of a chain identifier.
func ValidateChainID(id string) error {
	if len(id) > ChainIDLength {
		return fmt.Errorf("%w: %d bytes, max %d", ErrChainIDTooLong, len(id), ChainIDLength)
	}
	return nil
}
