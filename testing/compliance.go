package ledgertest

import (
	"context"
	"sync"
	"testing"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/types"
)

// Suite is the lifecycle compliance suite. It checks the guarantees
// every ledger application owes its engine: deterministic roots, a
// committed root equal to the executed one, and reads that are safe
// to run concurrently.
type Suite struct {
	// New returns a fresh application for each subtest.
	New func(t testing.TB) ledger.Lifecycle
	// Genesis is used for every genesis handshake. Zero value means
	// DefaultGenesis.
	Genesis types.GenesisDoc
	// Txs feed the blocks of the transaction subtests. They should
	// include at least one transaction that changes state.
	Txs []types.Tx
}

// RunComplianceSuite runs the suite with the default genesis and
// opaque transactions.
func RunComplianceSuite(t *testing.T, factory func(t testing.TB) ledger.Lifecycle) {
	t.Helper()
	Suite{New: factory}.Run(t)
}

func (s Suite) genesis() types.GenesisDoc {
	if s.Genesis.ChainID == "" {
		return DefaultGenesis()
	}
	return s.Genesis
}

func (s Suite) txs() []types.Tx {
	if len(s.Txs) == 0 {
		return []types.Tx{
			{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x03, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		}
	}
	return s.Txs
}

func (s Suite) start(t *testing.T) (*Harness, types.HandshakeResponse) {
	t.Helper()
	h := NewHarness(t, s.New(t))
	return h, h.Genesis(s.genesis())
}

// Run runs every subtest.
func (s Suite) Run(t *testing.T) {
	t.Helper()

	t.Run("genesis_handshake", func(t *testing.T) {
		_, resp := s.start(t)
		if resp.LastBlock != nil {
			t.Error("genesis handshake should return nil LastBlock")
		}
		if resp.AppHash == nil {
			t.Error("genesis handshake should return the genesis root")
		}
	})

	t.Run("empty_blocks_keep_root", func(t *testing.T) {
		h, resp := s.start(t)
		if resp.AppHash == nil {
			t.Skip("no genesis root")
		}
		for i := uint64(1); i <= 5; i++ {
			outcome := h.ExecuteAndCommit(MakeEmptyBlock(i))
			if outcome.AppHash != *resp.AppHash {
				t.Errorf("height %d: empty block moved root to %s", i, outcome.AppHash)
			}
		}
	})

	t.Run("deterministic_with_txs", func(t *testing.T) {
		h1, _ := s.start(t)
		h2, _ := s.start(t)

		for i := uint64(1); i <= 2; i++ {
			block := MakeBlock(i, s.txs()...)
			o1 := h1.ExecuteAndCommit(block)
			o2 := h2.ExecuteAndCommit(block)

			if o1.AppHash != o2.AppHash {
				t.Errorf("height %d: non-deterministic root: %s != %s", i, o1.AppHash, o2.AppHash)
			}
			if len(o1.TxOutcomes) != len(o2.TxOutcomes) {
				t.Fatalf("height %d: outcome count mismatch: %d != %d", i, len(o1.TxOutcomes), len(o2.TxOutcomes))
			}
			for j := range o1.TxOutcomes {
				if o1.TxOutcomes[j].Code != o2.TxOutcomes[j].Code {
					t.Errorf("height %d tx %d: code %d != %d", i, j, o1.TxOutcomes[j].Code, o2.TxOutcomes[j].Code)
				}
			}
		}
	})

	t.Run("accepted_txs_move_root", func(t *testing.T) {
		h, resp := s.start(t)
		outcome := h.ExecuteAndCommit(MakeBlock(1, s.txs()...))
		accepted := 0
		for _, o := range outcome.TxOutcomes {
			if o.OK() {
				accepted++
			}
		}
		if accepted == 0 {
			t.Skip("no transaction was accepted")
		}
		if resp.AppHash != nil && outcome.AppHash == *resp.AppHash {
			t.Error("root unchanged after accepted transactions")
		}
	})

	t.Run("tx_outcome_indices", func(t *testing.T) {
		h, _ := s.start(t)
		txs := s.txs()
		outcome := h.ExecuteAndCommit(MakeBlock(1, txs...))
		if len(outcome.TxOutcomes) != len(txs) {
			t.Fatalf("expected %d tx outcomes, got %d", len(txs), len(outcome.TxOutcomes))
		}
		for i, o := range outcome.TxOutcomes {
			if o.Index != uint32(i) {
				t.Errorf("tx %d: expected index %d, got %d", i, i, o.Index)
			}
		}
	})

	t.Run("concurrent_checktx_after_handshake", func(t *testing.T) {
		h, _ := s.start(t)
		txs := s.txs()

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tx := txs[i%len(txs)]
				if _, err := h.Server().CheckTx(context.Background(), tx, types.MempoolFirstSeen); err != nil {
					t.Errorf("concurrent CheckTx failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent_query_after_handshake", func(t *testing.T) {
		h, _ := s.start(t)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.Server().Query(context.Background(), types.StateQuery{Path: types.QueryChainID}); err != nil {
					t.Errorf("concurrent Query failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("query_returns_height", func(t *testing.T) {
		h, _ := s.start(t)
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		h.ExecuteAndCommit(MakeEmptyBlock(2))

		result := h.Query(types.QueryChainID, nil)
		if result.Height != 2 {
			t.Errorf("query height should be 2 after two commits, got %d", result.Height)
		}
		if string(result.Value) != s.genesis().ChainID {
			t.Errorf("chain id %q, expected %q", result.Value, s.genesis().ChainID)
		}
	})
}
