package ledgergrpc_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/ledger"
	ledgergrpc "github.com/blockberries/ledger/grpc"
	"github.com/blockberries/ledger/storage"
	ledgertest "github.com/blockberries/ledger/testing"
	"github.com/blockberries/ledger/types"
)

// startServer serves app on a random local port until the test ends.
func startServer(t *testing.T, app ledger.Lifecycle) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := grpc.NewServer()
	ledgergrpc.NewGRPCServer(app).Register(s)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.GracefulStop)
	return lis.Addr().String()
}

func dial(t *testing.T, addr string) *ledgergrpc.Client {
	t.Helper()
	client, err := ledgergrpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGRPCLedgerLifecycle(t *testing.T) {
	alice := ledgertest.NewAccount(t, "alice", 1, 100)
	bob := ledgertest.NewAccount(t, "bob", 2, 0)
	client := dial(t, startServer(t, ledgertest.NewShell(t)))
	ctx := context.Background()

	genesis := ledgertest.Genesis(t, alice, bob)
	resp, err := client.Handshake(ctx, types.HandshakeRequest{Genesis: &genesis})
	require.NoError(t, err)
	require.NotNil(t, resp.AppHash)
	require.True(t, resp.Capabilities.Has(types.CapSimulation))

	transfer := ledgertest.GuestTransferTx(t, alice, bob.Address, 30)
	verdict, err := client.CheckTx(ctx, transfer, types.MempoolFirstSeen)
	require.NoError(t, err)
	require.True(t, verdict.Accepted(), verdict.Info)

	sim, err := client.AsSimulator().Simulate(ctx, transfer)
	require.NoError(t, err)
	require.True(t, sim.OK(), sim.Info)
	require.Equal(t, []types.Address{alice.Address, bob.Address}, sim.Verifiers)

	outcome, err := client.ExecuteBlock(ctx, ledgertest.MakeBlock(1, transfer))
	require.NoError(t, err)
	require.Len(t, outcome.TxOutcomes, 1)
	require.True(t, outcome.TxOutcomes[0].OK(), outcome.TxOutcomes[0].Info)

	res, err := client.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, outcome.AppHash, res.AppHash)

	qr, err := client.Query(ctx, types.StateQuery{
		Path:  types.QueryBalance,
		Data:  []byte(bob.Address.Encode()),
		Prove: true,
	})
	require.NoError(t, err)
	require.Equal(t, types.QueryCodeOK, qr.Code)
	require.Equal(t, uint64(1), qr.Height)
	require.NotNil(t, qr.Proof)
	require.Equal(t, types.Hash(res.AppHash), qr.Proof.Root)

	key, err := types.BalanceKey(bob.Address)
	require.NoError(t, err)
	require.True(t, storage.VerifyProof(*qr.Proof, key, qr.Value))
	require.Equal(t, types.Balance(30).Bytes(), qr.Value)
}

func TestGRPCCheckTxRejects(t *testing.T) {
	alice := ledgertest.NewAccount(t, "alice", 1, 100)
	bob := ledgertest.NewAccount(t, "bob", 2, 0)
	client := dial(t, startServer(t, ledgertest.NewShell(t)))

	genesis := ledgertest.Genesis(t, alice, bob)
	_, err := client.Handshake(context.Background(), types.HandshakeRequest{Genesis: &genesis})
	require.NoError(t, err)

	verdict, err := client.CheckTx(context.Background(), ledgertest.TransferTx(t, alice, bob.Address, 500), types.MempoolFirstSeen)
	require.NoError(t, err)
	require.Equal(t, types.TxCodeInsufficientBalance, verdict.Code)

	verdict, err = client.CheckTx(context.Background(), ledgertest.TransferTx(t, alice, bob.Address, 50), types.MempoolRevalidation)
	require.NoError(t, err)
	require.True(t, verdict.Accepted(), verdict.Info)
	require.Equal(t, alice.Address.Encode(), verdict.Sender)
}

func TestGRPCNoCapabilities(t *testing.T) {
	client := dial(t, startServer(t, &ledgertest.MockApp{}))

	_, err := client.Handshake(context.Background(), types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "mock"}})
	require.NoError(t, err)
	require.Equal(t, types.Capabilities(0), client.Capabilities())
	require.Nil(t, client.AsSimulator())
}

func TestGRPCHalt(t *testing.T) {
	app := &ledgertest.MockApp{
		ExecuteBlockFn: func(_ context.Context, b types.FinalizedBlock) (types.BlockOutcome, error) {
			return types.BlockOutcome{}, ledger.WrapHalt(b.Height, "state tree update failed", errors.New("missing node"))
		},
	}
	client := dial(t, startServer(t, app))
	ctx := context.Background()

	_, err := client.Handshake(ctx, types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "mock"}})
	require.NoError(t, err)

	_, err = client.ExecuteBlock(ctx, ledgertest.MakeEmptyBlock(1))
	h, ok := ledger.IsHalt(err)
	require.True(t, ok)
	require.Equal(t, uint64(1), h.Height)

	// The client stays halted without asking the server again.
	_, err = client.ExecuteBlock(ctx, ledgertest.MakeEmptyBlock(1))
	_, ok = ledger.IsHalt(err)
	require.True(t, ok)
	require.Equal(t, int64(1), app.ExecuteBlockCalls.Load())

	// Reads still go through.
	qr, err := client.Query(ctx, types.StateQuery{Path: types.QueryChainID})
	require.NoError(t, err)
	require.Equal(t, "mock", string(qr.Value))
}

func TestGRPCCompliance(t *testing.T) {
	ledgertest.RunComplianceSuite(t, func(t testing.TB) ledger.Lifecycle {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		s := grpc.NewServer()
		ledgergrpc.NewGRPCServer(&ledgertest.MockApp{}).Register(s)
		go func() { _ = s.Serve(lis) }()
		t.Cleanup(s.GracefulStop)

		client, err := ledgergrpc.Dial(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		return client
	})
}
