package types

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Transaction is the decoded form of a Tx.
//
// A transaction with code is executed by the guest runtime and then
// checked by the validity predicates of every verifier it touched.
// A transaction without code is a native transfer: Data holds a
// signed Transfer that the ledger applies directly.
type Transaction struct {
	Code      []byte    `cramberry:"1"`
	Data      []byte    `cramberry:"2"`
	Timestamp Timestamp `cramberry:"3"`
}

// Encode returns the canonical binary encoding of the transaction.
// Signatures are produced over this encoding.
func (t Transaction) Encode() ([]byte, error) {
	return cramberry.Marshal(t)
}

// IsNative reports whether t is a native transfer.
func (t Transaction) IsNative() bool { return len(t.Code) == 0 }

// DecodeTransaction decodes a raw Tx.
func DecodeTransaction(tx Tx) (Transaction, error) {
	var t Transaction
	if err := cramberry.Unmarshal(tx, &t); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	return t, nil
}

// TxHash identifies a raw transaction.
func TxHash(tx Tx) Hash {
	return HashBytes(tx)
}

// Transfer moves Amount from Source to Target.
type Transfer struct {
	Source Address `cramberry:"1"`
	Target Address `cramberry:"2"`
	Amount uint64  `cramberry:"3"`
}

// IntentIDs is the set of intents a matchmaker asks to remove.
type IntentIDs struct {
	IDs [][]byte `cramberry:"1"`
}
