// Package local provides an in-process ledger connection.
//
// For a ledger compiled into the same binary as the consensus engine,
// this adapter wraps the application with the lifecycle guard and
// capability discovery without any serialization.
package local

import (
	"context"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/server"
	"github.com/blockberries/ledger/types"
)

var _ ledger.Connection = (*Connection)(nil)

// Connection is an in-process ledger.Connection.
type Connection struct {
	srv *server.Server
}

// NewConnection wraps app.
func NewConnection(app ledger.Lifecycle) *Connection {
	return &Connection{srv: server.New(app)}
}

func (c *Connection) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	return c.srv.Handshake(ctx, req)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	return c.srv.ExecuteBlock(ctx, block)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) Capabilities() types.Capabilities {
	return c.srv.Capabilities()
}

func (c *Connection) AsSimulator() ledger.Simulator {
	return c.srv.AsSimulator()
}

func (c *Connection) Close() error { return c.srv.Close() }

// Server returns the underlying server.
func (c *Connection) Server() *server.Server {
	return c.srv
}
