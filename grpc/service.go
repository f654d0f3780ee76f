package ledgergrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/blockberries/ledger/types"
)

const serviceName = "ledger.v1.LedgerService"

// LedgerServiceServer is the server side of the ledger service.
type LedgerServiceServer interface {
	Handshake(context.Context, *types.HandshakeRequest) (*types.HandshakeResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*types.GateVerdict, error)
	ExecuteBlock(context.Context, *types.FinalizedBlock) (*types.BlockOutcome, error)
	Commit(context.Context, *CommitRequest) (*types.CommitResult, error)
	Query(context.Context, *types.StateQuery) (*types.StateQueryResult, error)
	Simulate(context.Context, *SimulateRequest) (*types.TxOutcome, error)
}

// RegisterLedgerServiceServer registers srv on s.
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary adapts a typed method to a grpc.MethodDesc handler.
func unary[Req any, Resp any](call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		return call(srv.(LedgerServiceServer), ctx, req)
	}
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handshake", Handler: unary(LedgerServiceServer.Handshake)},
		{MethodName: "CheckTx", Handler: unary(LedgerServiceServer.CheckTx)},
		{MethodName: "ExecuteBlock", Handler: unary(LedgerServiceServer.ExecuteBlock)},
		{MethodName: "Commit", Handler: unary(LedgerServiceServer.Commit)},
		{MethodName: "Query", Handler: unary(LedgerServiceServer.Query)},
		{MethodName: "Simulate", Handler: unary(LedgerServiceServer.Simulate)},
	},
	Metadata: "ledger/v1/service.cram",
}
