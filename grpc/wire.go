package ledgergrpc

import "github.com/blockberries/ledger/types"

// Request and response wrappers for RPCs whose Go signatures take or
// return more than one struct.

// CheckTxRequest carries the arguments of CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx             `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// CommitRequest is the empty request of Commit.
type CommitRequest struct{}

// SimulateRequest carries the argument of Simulate.
type SimulateRequest struct {
	Tx types.Tx `cramberry:"1"`
}
