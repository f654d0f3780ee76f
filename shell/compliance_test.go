package shell_test

import (
	"testing"

	"github.com/blockberries/ledger"
	ledgertest "github.com/blockberries/ledger/testing"
	"github.com/blockberries/ledger/types"
)

func TestShellCompliance(t *testing.T) {
	alice := ledgertest.NewAccount(t, "alice", 1, 1000)
	bob := ledgertest.NewAccount(t, "bob", 2, 10)

	ledgertest.Suite{
		New:     func(t testing.TB) ledger.Lifecycle { return ledgertest.NewShell(t) },
		Genesis: ledgertest.Genesis(t, alice, bob),
		Txs: []types.Tx{
			ledgertest.TransferTx(t, alice, bob.Address, 10),
			ledgertest.GuestTransferTx(t, bob, alice.Address, 5),
			// Overdraws bob.
			ledgertest.TransferTx(t, bob, alice.Address, 1000),
		},
	}.Run(t)
}

func TestShellDefaultCompliance(t *testing.T) {
	ledgertest.RunComplianceSuite(t, func(t testing.TB) ledger.Lifecycle { return ledgertest.NewShell(t) })
}
