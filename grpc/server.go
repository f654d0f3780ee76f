package ledgergrpc

import (
	"context"
	"net"

	"github.com/ethereum/go-ethereum/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/server"
	"github.com/blockberries/ledger/types"
)

var _ LedgerServiceServer = (*GRPCServer)(nil)

// GRPCServer serves a ledger application over gRPC.
type GRPCServer struct {
	srv    *server.Server
	logger log.Logger
}

// NewGRPCServer wraps app.
func NewGRPCServer(app ledger.Lifecycle) *GRPCServer {
	return &GRPCServer{
		srv:    server.New(app),
		logger: log.New("module", "grpc"),
	}
}

// Register adds the ledger service to gs.
func (s *GRPCServer) Register(gs grpc.ServiceRegistrar) {
	RegisterLedgerServiceServer(gs, s)
}

// Serve serves on lis until the listener fails or the server is
// stopped.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	s.logger.Info("Serving ledger", "addr", lis.Addr())
	return gs.Serve(lis)
}

// Server returns the underlying server.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

// statusError turns a halt into codes.Aborted so the engine can tell
// it apart from a retryable failure.
func statusError(err error) error {
	if _, ok := ledger.IsHalt(err); ok {
		return status.Error(codes.Aborted, err.Error())
	}
	return err
}

func (s *GRPCServer) Handshake(ctx context.Context, req *types.HandshakeRequest) (*types.HandshakeResponse, error) {
	resp, err := s.srv.Handshake(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCServer) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.GateVerdict, error) {
	verdict, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (s *GRPCServer) ExecuteBlock(ctx context.Context, block *types.FinalizedBlock) (*types.BlockOutcome, error) {
	outcome, err := s.srv.ExecuteBlock(ctx, *block)
	if err != nil {
		return nil, statusError(err)
	}
	return &outcome, nil
}

func (s *GRPCServer) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	return &result, nil
}

func (s *GRPCServer) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *GRPCServer) Simulate(ctx context.Context, req *SimulateRequest) (*types.TxOutcome, error) {
	if s.srv.AsSimulator() == nil {
		return nil, status.Error(codes.Unimplemented, "ledger: Simulator not supported")
	}
	outcome, err := s.srv.Simulate(ctx, req.Tx)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
