package ledgertest

import (
	"bytes"
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/shell"
	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/native"
)

// GuestMemorySize is the linear memory given to native programs run
// by fixture shells.
const GuestMemorySize = 1 << 16

// Account is a genesis account together with its signing key.
type Account struct {
	Address types.Address
	Keypair ed25519.Keypair
	Balance uint64
	// Vp is the native predicate guarding the account. Empty = none.
	Vp string
}

// NewAccount returns a basic account whose key is derived from seed.
// It is guarded by the user predicate.
func NewAccount(t testing.TB, id string, seed byte, balance uint64) Account {
	t.Helper()
	kp, err := ed25519.KeypairFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	return Account{Address: types.NewBasicAddress(id), Keypair: kp, Balance: balance, Vp: native.VpUser}
}

// Genesis returns DefaultGenesis carrying accounts.
func Genesis(t testing.TB, accounts ...Account) types.GenesisDoc {
	t.Helper()
	var state types.GenesisState
	for _, acc := range accounts {
		state.Accounts = append(state.Accounts, types.GenesisAccount{
			Address:   acc.Address,
			Balance:   acc.Balance,
			PublicKey: acc.Keypair.Public().Bytes(),
			VpCode:    []byte(acc.Vp),
		})
	}
	appState, err := state.Encode()
	if err != nil {
		t.Fatalf("encode genesis state: %v", err)
	}
	g := DefaultGenesis()
	g.AppState = appState
	return g
}

// NewShell returns a shell over in-memory storage, running guest code
// with the built-in native programs. The storage is closed when the
// test ends.
func NewShell(t testing.TB) *shell.Shell {
	t.Helper()
	backend, err := db.NewMemDB()
	if err != nil {
		t.Fatalf("memdb: %v", err)
	}
	store, err := storage.Open(backend, storage.DefaultOptions())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	reg := native.NewRegistry(GuestMemorySize)
	return shell.New(store, reg, reg, shell.Options{})
}

func encode(t testing.TB, tx types.Transaction) types.Tx {
	t.Helper()
	raw, err := tx.Encode()
	if err != nil {
		t.Fatalf("encode tx: %v", err)
	}
	return raw
}

// TransferTx returns a native transfer from src to dst signed by src.
func TransferTx(t testing.TB, src Account, dst types.Address, amount uint64) types.Tx {
	t.Helper()
	data, err := cramberry.Marshal(types.Transfer{Source: src.Address, Target: dst, Amount: amount})
	if err != nil {
		t.Fatalf("encode transfer: %v", err)
	}
	tx, err := ed25519.SignTx(src.Keypair, types.Transaction{Data: data})
	if err != nil {
		t.Fatalf("sign transfer: %v", err)
	}
	return encode(t, tx)
}

// GuestTx returns a transaction running the native program code with
// the cramberry encoding of payload, signed by signer.
func GuestTx(t testing.TB, signer Account, code string, payload any) types.Tx {
	t.Helper()
	data, err := cramberry.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	tx, err := ed25519.SignTx(signer.Keypair, types.Transaction{Code: []byte(code), Data: data})
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	return encode(t, tx)
}

// GuestTransferTx moves amount from src to dst through the transfer
// program, so both accounts' predicates judge it.
func GuestTransferTx(t testing.TB, src Account, dst types.Address, amount uint64) types.Tx {
	t.Helper()
	return GuestTx(t, src, native.TxTransfer, types.Transfer{Source: src.Address, Target: dst, Amount: amount})
}
