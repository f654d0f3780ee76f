package host

//go:generate mockgen -source runner.go -destination runner_mocks.go -package host

import (
	"context"

	"github.com/blockberries/ledger/types"
)

// TxRunner executes transaction code against a TxEnv. The sandbox
// behind it is outside the ledger; an error means the transaction
// trapped and its writes must be dropped.
type TxRunner interface {
	RunTx(ctx context.Context, code, data []byte, env *TxEnv) error
}

// VpInput is what a validity predicate is asked to judge.
type VpInput struct {
	// Addr is the account whose predicate runs.
	Addr types.Address
	// Data is the transaction data, or the input given to Eval.
	Data []byte
	// KeysChanged lists every key the transaction wrote or deleted.
	KeysChanged []types.Key
	// Verifiers lists every account whose predicate runs for the
	// transaction.
	Verifiers []types.Address
}

// VpRunner executes validity predicate code against a VpEnv and
// reports whether the predicate accepts.
type VpRunner interface {
	RunVp(ctx context.Context, code []byte, input VpInput, env *VpEnv) (bool, error)
}

// Matchmaker receives the calls of matchmaker guest code.
type Matchmaker interface {
	SendMatch(data []byte)
	UpdateData(data []byte)
	RemoveIntents(ids [][]byte)
}
