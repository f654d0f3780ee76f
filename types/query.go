package types

// Query paths served by the ledger.
const (
	// QueryBalance reads an account balance. Data = encoded address.
	QueryBalance QueryPath = "/balance"
	// QueryValue reads a raw storage value. Data = key text form.
	QueryValue QueryPath = "/value"
	// QueryPrefix lists storage entries. Data = key prefix.
	QueryPrefix QueryPath = "/prefix"
	// QueryChainID reads the chain identifier.
	QueryChainID QueryPath = "/chain_id"
)

// Query result codes.
const (
	QueryCodeOK uint32 = iota
	QueryCodeNotFound
	QueryCodeInvalid
	QueryCodeUnknownPath
	QueryCodeHeightUnavailable
)

// StateQuery is a request to read application state.
type StateQuery struct {
	Path QueryPath `cramberry:"1"`
	Data []byte    `cramberry:"2"`
	// Height to query at. Nil = latest committed state.
	Height *uint64 `cramberry:"3"`
	// If true, include a Merkle proof in the result.
	Prove bool `cramberry:"4"`
}

// StateQueryResult is the application's response to a state query.
type StateQueryResult struct {
	Code   uint32       `cramberry:"1"`
	Key    []byte       `cramberry:"2"`
	Value  []byte       `cramberry:"3"`
	Height uint64       `cramberry:"4"`
	Proof  *MerkleProof `cramberry:"5"`
	Info   string       `cramberry:"6"`
	// Entries returned by prefix queries.
	Entries []KeyVal `cramberry:"7"`
}

// MerkleProof is an inclusion/exclusion proof against the
// app state root.
type MerkleProof struct {
	Root Hash      `cramberry:"1"`
	Ops  []ProofOp `cramberry:"2"`
}

// ProofOpSparseMerkle is the type of a proof op produced by the
// storage tree. Key is the key digest, Data the encoded tree proof.
const ProofOpSparseMerkle = "smt:blake2b"

// ProofOp is a single operation in a Merkle proof.
type ProofOp struct {
	Type string `cramberry:"1"`
	Key  []byte `cramberry:"2"`
	Data []byte `cramberry:"3"`
}
