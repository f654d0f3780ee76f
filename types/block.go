package types

// TxOutcome is the result of executing a single transaction.
type TxOutcome struct {
	// Position of this tx in the block (0-indexed).
	Index uint32 `cramberry:"1"`
	// Result code. 0 = accepted; see the TxCode constants.
	Code uint32 `cramberry:"2"`
	// Human-readable result info (non-deterministic, for debugging).
	Info string `cramberry:"3"`
	// Data returned from execution (deterministic).
	Data []byte `cramberry:"4"`
	// Events emitted by this transaction.
	Events []Event `cramberry:"5"`
	// Keys the transaction changed, in key order.
	ChangedKeys []string `cramberry:"6"`
	// Addresses whose validity predicates were consulted.
	Verifiers []Address `cramberry:"7"`
	// Accounts created by the transaction.
	InitializedAccounts []Address `cramberry:"8"`
}

// OK returns true if the transaction was accepted.
func (t TxOutcome) OK() bool { return t.Code == TxCodeOK }

// Transaction result codes.
const (
	TxCodeOK uint32 = iota
	// TxCodeInvalid: the tx could not be decoded or is malformed.
	TxCodeInvalid
	// TxCodeExecutionFailed: the guest transaction trapped.
	TxCodeExecutionFailed
	// TxCodeRejected: a validity predicate rejected the tx.
	TxCodeRejected
	// TxCodeInsufficientBalance: a native transfer overdrew its source.
	TxCodeInsufficientBalance
	// TxCodeUnknownAddress: a native transfer named an unknown source.
	TxCodeUnknownAddress
	// TxCodeUnauthorized: a native transfer carried a bad signature.
	TxCodeUnauthorized
)

// BlockOutcome is the comprehensive output of executing a finalized block.
type BlockOutcome struct {
	// Per-transaction results, in block order.
	TxOutcomes []TxOutcome `cramberry:"1"`
	// Block-level events.
	BlockEvents []Event `cramberry:"2"`
	// Merkle root of the application state after this block.
	AppHash AppHash `cramberry:"3"`
}

// FinalizedBlock is a decided block delivered to the application
// for execution.
type FinalizedBlock struct {
	Height uint64    `cramberry:"1"`
	Time   Timestamp `cramberry:"2"`
	// Hash of this block, as computed by the engine.
	Hash          Hash `cramberry:"3"`
	Txs           []Tx `cramberry:"4"`
	LastBlockHash Hash `cramberry:"5"`
}

// CommitResult is returned after the application persists
// state to disk.
type CommitResult struct {
	// Minimum height the app still needs for queries / proofs.
	// 0 = no pruning preference.
	RetainHeight uint64 `cramberry:"1"`
	// Merkle root that was persisted.
	AppHash AppHash `cramberry:"2"`
}
