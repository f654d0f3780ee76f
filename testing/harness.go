package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/server"
	"github.com/blockberries/ledger/types"
)

// Harness drives an application through the lifecycle server and
// fails the test on any unexpected error.
type Harness struct {
	t   testing.TB
	srv *server.Server
}

// NewHarness creates a harness wrapping app.
func NewHarness(t testing.TB, app ledger.Lifecycle) *Harness {
	t.Helper()
	return &Harness{t: t, srv: server.New(app)}
}

// Server returns the underlying server.
func (h *Harness) Server() *server.Server {
	return h.srv
}

// Genesis performs a genesis handshake.
func (h *Harness) Genesis(genesis types.GenesisDoc) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.srv.Handshake(context.Background(), types.HandshakeRequest{Genesis: &genesis})
	if err != nil {
		h.t.Fatalf("Handshake (genesis) failed: %v", err)
	}
	return resp
}

// Restart performs a restart handshake at block.
func (h *Harness) Restart(block types.BlockID) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.srv.Handshake(context.Background(), types.HandshakeRequest{LastCommitted: &block})
	if err != nil {
		h.t.Fatalf("Handshake (restart) failed: %v", err)
	}
	return resp
}

// ExecuteBlock executes a block without committing it.
func (h *Harness) ExecuteBlock(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome, err := h.srv.ExecuteBlock(context.Background(), block)
	if err != nil {
		h.t.Fatalf("ExecuteBlock (height=%d) failed: %v", block.Height, err)
	}
	return outcome
}

// Commit commits the last executed block.
func (h *Harness) Commit() types.CommitResult {
	h.t.Helper()
	result, err := h.srv.Commit(context.Background())
	if err != nil {
		h.t.Fatalf("Commit failed: %v", err)
	}
	return result
}

// ExecuteAndCommit executes and commits block. It fails the test when
// the committed root differs from the root the block produced.
func (h *Harness) ExecuteAndCommit(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome := h.ExecuteBlock(block)
	if res := h.Commit(); res.AppHash != outcome.AppHash {
		h.t.Fatalf("height %d: committed root %s, executed root %s", block.Height, res.AppHash, outcome.AppHash)
	}
	return outcome
}

// CheckTx gate-checks a transaction seen for the first time.
func (h *Harness) CheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		h.t.Fatalf("CheckTx failed: %v", err)
	}
	return verdict
}

// RecheckTx re-validates a transaction already in the mempool.
func (h *Harness) RecheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolRevalidation)
	if err != nil {
		h.t.Fatalf("RecheckTx failed: %v", err)
	}
	return verdict
}

// Query reads committed state at the latest height.
func (h *Harness) Query(path types.QueryPath, data []byte) types.StateQueryResult {
	h.t.Helper()
	return h.QueryReq(types.StateQuery{Path: path, Data: data})
}

// QueryReq runs a full state query.
func (h *Harness) QueryReq(req types.StateQuery) types.StateQueryResult {
	h.t.Helper()
	result, err := h.srv.Query(context.Background(), req)
	if err != nil {
		h.t.Fatalf("Query %s failed: %v", req.Path, err)
	}
	return result
}

// Simulate dry-runs tx. The application must declare CapSimulation.
func (h *Harness) Simulate(tx types.Tx) types.TxOutcome {
	h.t.Helper()
	sim := h.srv.AsSimulator()
	if sim == nil {
		h.t.Fatal("application does not declare CapSimulation")
	}
	out, err := sim.Simulate(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("Simulate failed: %v", err)
	}
	return out
}

// MustAcceptTx asserts that tx passes the mempool gate.
func (h *Harness) MustAcceptTx(tx types.Tx) {
	h.t.Helper()
	if v := h.CheckTx(tx); !v.Accepted() {
		h.t.Fatalf("expected tx accepted, got code=%d info=%q", v.Code, v.Info)
	}
}

// MustRejectTx asserts that tx is kept out of the mempool.
func (h *Harness) MustRejectTx(tx types.Tx) {
	h.t.Helper()
	if v := h.CheckTx(tx); v.Accepted() {
		h.t.Fatal("expected tx rejected, got accepted")
	}
}

var genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultGenesis returns a genesis document with no accounts.
func DefaultGenesis() types.GenesisDoc {
	return types.GenesisDoc{
		ChainID:       "test-chain",
		GenesisTime:   types.TimeToTimestamp(genesisTime),
		InitialHeight: 1,
		Params: types.Params{
			MaxBlockBytes: 1024 * 1024,
			MaxTxBytes:    64 * 1024,
		},
	}
}

// MakeBlock creates the finalized block at height. The block hash is
// derived from the height so replays on separate instances agree.
func MakeBlock(height uint64, txs ...types.Tx) types.FinalizedBlock {
	return types.FinalizedBlock{
		Height:        height,
		Time:          types.TimeToTimestamp(genesisTime.Add(time.Duration(height) * 5 * time.Second)),
		Hash:          types.HashUint64(height),
		LastBlockHash: types.HashUint64(height - 1),
		Txs:           txs,
	}
}

// MakeEmptyBlock creates an empty block at height.
func MakeEmptyBlock(height uint64) types.FinalizedBlock {
	return MakeBlock(height)
}
