// Package ledger defines the boundary between a consensus engine and
// the authenticated ledger state machine.
//
// The core [Lifecycle] interface is required. [Simulator] is an
// optional capability discovered via Go type assertion at handshake
// time. Consensus concerns (proposals, votes, snapshots) are owned by
// the engine and do not cross this boundary.
package ledger

import (
	"context"

	"github.com/blockberries/ledger/types"
)

// Lifecycle is the core interface every ledger application must
// implement. It covers the complete path from boot to steady-state
// block execution.
//
// The engine guarantees the following call order:
//  1. Handshake is called exactly once, before anything else.
//  2. ExecuteBlock(h) is called exactly once per committed height h.
//  3. Commit is called exactly once after each ExecuteBlock.
//  4. CheckTx, Query may be called concurrently at any time after Handshake.
type Lifecycle interface {
	// Handshake is called once on every startup (cold start or restart).
	//
	// If LastCommitted is nil, this is a fresh genesis and Genesis will
	// be populated. The chain identifier carried by the genesis document
	// is recorded by the application but never committed to the state
	// root: chain identity is attested by the engine's block headers.
	//
	// The application returns its own view of its state so the engine
	// can detect and recover from any divergence.
	Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error)

	// CheckTx gate-checks a transaction before it enters the mempool.
	//
	// This method MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// ExecuteBlock deterministically executes a finalized block.
	//
	// The block's hash and height are handed to the state layer before
	// any transaction runs. The AppHash in the returned BlockOutcome is
	// the Merkle root of the application state after the last
	// transaction.
	//
	// This method MUST NOT persist state to disk; that happens in Commit.
	ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error)

	// Commit persists all state changes from the last ExecuteBlock to
	// durable storage. Either all changes land, or none do.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads the last committed application state, optionally with
	// a Merkle proof against the committed root.
	//
	// This method MUST be safe for concurrent use.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// Simulator provides a dedicated path for dry-run execution.
//
// Declared via: types.CapSimulation in HandshakeResponse.Capabilities
type Simulator interface {
	// Simulate dry-runs a transaction against current state without
	// persisting any changes. Returns the execution result including
	// events and the validity predicates that were consulted.
	//
	// This method MUST be safe for concurrent use.
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Application is a convenience interface for applications that
// support every capability.
type Application interface {
	Lifecycle
	Simulator
}

// Connection represents a transport-agnostic connection to a ledger
// application. Both gRPC clients and in-process adapters implement this.
type Connection interface {
	Lifecycle

	// Capabilities returns the capabilities discovered at handshake.
	// Must only be called after Handshake completes.
	Capabilities() types.Capabilities

	// AsSimulator returns the Simulator interface if available.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
