// Package ledgertest provides test utilities for ledger applications
// and the engines that drive them: a configurable mock, a harness
// around the lifecycle server, ready-made ledger fixtures and a
// lifecycle compliance suite.
package ledgertest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/types"
)

var _ ledger.Application = (*MockApp)(nil)

// MockApp is a configurable ledger application for engine testing.
// Every method can be replaced through its function field.
//
// By default it behaves like a tiny ledger: the genesis root is the
// hash of the chain id and each accepted transaction folds into it, so
// empty blocks leave the root alone and Commit reports the root of the
// last executed block.
type MockApp struct {
	// DeclaredCapabilities controls the bitfield returned at handshake.
	DeclaredCapabilities types.Capabilities

	HandshakeFn    func(context.Context, types.HandshakeRequest) (types.HandshakeResponse, error)
	CheckTxFn      func(context.Context, types.Tx, types.MempoolContext) (types.GateVerdict, error)
	ExecuteBlockFn func(context.Context, types.FinalizedBlock) (types.BlockOutcome, error)
	CommitFn       func(context.Context) (types.CommitResult, error)
	QueryFn        func(context.Context, types.StateQuery) (types.StateQueryResult, error)
	SimulateFn     func(context.Context, types.Tx) (types.TxOutcome, error)

	HandshakeCalls    atomic.Int64
	CheckTxCalls      atomic.Int64
	ExecuteBlockCalls atomic.Int64
	CommitCalls       atomic.Int64
	QueryCalls        atomic.Int64
	SimulateCalls     atomic.Int64

	mu        sync.Mutex
	chainID   string
	working   types.Hash
	committed types.Hash
	height    uint64
	pending   uint64
}

func fold(root types.Hash, tx types.Tx) types.Hash {
	return types.HashBytes(slices.Concat(root[:], tx))
}

func (m *MockApp) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	m.HandshakeCalls.Add(1)
	if m.HandshakeFn != nil {
		return m.HandshakeFn(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Genesis != nil {
		m.chainID = req.Genesis.ChainID
		m.committed = types.HashString(m.chainID)
	}
	root := types.AppHash(m.committed)
	return types.HandshakeResponse{AppHash: &root, Capabilities: m.DeclaredCapabilities}, nil
}

func (m *MockApp) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	m.CheckTxCalls.Add(1)
	if m.CheckTxFn != nil {
		return m.CheckTxFn(ctx, tx, mctx)
	}
	if len(tx) == 0 {
		return types.GateVerdict{Code: types.TxCodeInvalid, Info: "empty tx"}, nil
	}
	return types.GateVerdict{}, nil
}

func (m *MockApp) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	m.ExecuteBlockCalls.Add(1)
	if m.ExecuteBlockFn != nil {
		return m.ExecuteBlockFn(ctx, block)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working = m.committed
	outcomes := make([]types.TxOutcome, len(block.Txs))
	for i, tx := range block.Txs {
		outcomes[i] = types.TxOutcome{Index: uint32(i)}
		if len(tx) == 0 {
			outcomes[i].Code = types.TxCodeInvalid
			continue
		}
		m.working = fold(m.working, tx)
	}
	m.pending = block.Height
	return types.BlockOutcome{TxOutcomes: outcomes, AppHash: types.AppHash(m.working)}, nil
}

func (m *MockApp) Commit(ctx context.Context) (types.CommitResult, error) {
	m.CommitCalls.Add(1)
	if m.CommitFn != nil {
		return m.CommitFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = m.working
	m.height = m.pending
	return types.CommitResult{AppHash: types.AppHash(m.committed)}, nil
}

func (m *MockApp) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	m.QueryCalls.Add(1)
	if m.QueryFn != nil {
		return m.QueryFn(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Path != types.QueryChainID {
		return types.StateQueryResult{Code: types.QueryCodeUnknownPath, Height: m.height}, nil
	}
	return types.StateQueryResult{Value: []byte(m.chainID), Height: m.height}, nil
}

func (m *MockApp) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	m.SimulateCalls.Add(1)
	if m.SimulateFn != nil {
		return m.SimulateFn(ctx, tx)
	}
	if len(tx) == 0 {
		return types.TxOutcome{Code: types.TxCodeInvalid}, nil
	}
	return types.TxOutcome{}, nil
}
