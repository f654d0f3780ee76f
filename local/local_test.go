package local

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	ledgertest "github.com/blockberries/ledger/testing"
	"github.com/blockberries/ledger/types"
)

func TestLocalConnectionFullCycle(t *testing.T) {
	alice := ledgertest.NewAccount(t, "alice", 1, 100)
	bob := ledgertest.NewAccount(t, "bob", 2, 0)

	conn := NewConnection(ledgertest.NewShell(t))
	defer conn.Close()

	g := ledgertest.Genesis(t, alice, bob)
	resp, err := conn.Handshake(context.Background(), types.HandshakeRequest{Genesis: &g})
	require.NoError(t, err)
	require.NotNil(t, resp.AppHash)
	require.True(t, conn.Capabilities().Has(types.CapSimulation))

	tx := ledgertest.TransferTx(t, alice, bob.Address, 42)
	sim, err := conn.AsSimulator().Simulate(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, sim.OK(), sim.Info)

	outcome, err := conn.ExecuteBlock(context.Background(), ledgertest.MakeBlock(1, tx))
	require.NoError(t, err)
	require.True(t, outcome.TxOutcomes[0].OK(), outcome.TxOutcomes[0].Info)
	require.NotEqual(t, *resp.AppHash, outcome.AppHash)

	res, err := conn.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, outcome.AppHash, res.AppHash)

	q, err := conn.Query(context.Background(), types.StateQuery{
		Path: types.QueryBalance,
		Data: []byte(bob.Address.Encode()),
	})
	require.NoError(t, err)
	require.Equal(t, types.QueryCodeOK, q.Code)
	bal, err := types.BalanceFromBytes(q.Value)
	require.NoError(t, err)
	require.Equal(t, types.Balance(42), bal)
	require.Equal(t, uint64(1), q.Height)
}

func TestLocalConnectionCheckTxConcurrent(t *testing.T) {
	alice := ledgertest.NewAccount(t, "alice", 1, 100)
	bob := ledgertest.NewAccount(t, "bob", 2, 0)

	conn := NewConnection(ledgertest.NewShell(t))
	g := ledgertest.Genesis(t, alice, bob)
	_, err := conn.Handshake(context.Background(), types.HandshakeRequest{Genesis: &g})
	require.NoError(t, err)

	good := ledgertest.TransferTx(t, alice, bob.Address, 1)
	overdraw := ledgertest.TransferTx(t, bob, alice.Address, 1)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, want := good, true
			if i%2 == 1 {
				tx, want = overdraw, false
			}
			v, err := conn.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
			if err != nil || v.Accepted() != want {
				t.Errorf("CheckTx %d: err=%v verdict=%+v", i, err, v)
			}
		}()
	}
	wg.Wait()
}
