package native

import (
	"context"
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/guest"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/writelog"
)

var (
	alice = types.NewBasicAddress("alice")
	bob   = types.NewBasicAddress("bob")
)

type fixture struct {
	store *storage.Storage
	wl    *writelog.WriteLog
	reg   *Registry
	kp    ed25519.Keypair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	kp, err := ed25519.KeypairFromSeed(make([]byte, ed25519.SeedSize))
	require.NoError(t, err)

	require.NoError(t, s.UpdateBalance(alice, 100))
	pkKey, err := ed25519.PkKey(alice)
	require.NoError(t, err)
	pk := kp.Public()
	require.NoError(t, s.Write(pkKey, pk.Bytes()))

	return &fixture{store: s, wl: writelog.New(s), reg: NewRegistry(1 << 16), kp: kp}
}

func (f *fixture) signed(t *testing.T, code string, payload any) types.Transaction {
	t.Helper()
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	default:
		var err error
		data, err = cramberry.Marshal(p)
		require.NoError(t, err)
	}
	tx, err := ed25519.SignTx(f.kp, types.Transaction{Code: []byte(code), Data: data})
	require.NoError(t, err)
	return tx
}

func (f *fixture) runTx(t *testing.T, tx types.Transaction) (*host.TxEnv, error) {
	t.Helper()
	env := host.NewTxEnv(f.wl, f.store, types.HashString(string(tx.Code)), nil)
	t.Cleanup(env.Close)
	return env, f.reg.RunTx(context.Background(), tx.Code, tx.Data, env)
}

func (f *fixture) runVp(t *testing.T, code string, tx types.Transaction, addr types.Address) bool {
	t.Helper()
	input := host.VpInput{Addr: addr, Data: tx.Data, KeysChanged: f.wl.ChangedKeys()}
	env := host.NewVpEnv(f.wl, f.store, tx, input, f.reg, nil)
	defer env.Close()
	ok, err := f.reg.RunVp(context.Background(), []byte(code), input, env)
	require.NoError(t, err)
	return ok
}

func balance(t *testing.T, wl *writelog.WriteLog, addr types.Address) types.Balance {
	t.Helper()
	key, err := types.BalanceKey(addr)
	require.NoError(t, err)
	raw, ok, err := wl.ReadPost(key)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	b, err := types.BalanceFromBytes(raw)
	require.NoError(t, err)
	return b
}

func TestUnknownProgram(t *testing.T) {
	f := newFixture(t)
	_, err := f.runTx(t, types.Transaction{Code: []byte("tx_nothing")})
	assert.ErrorIs(t, err, ErrUnknownProgram)

	env := host.NewVpEnv(f.wl, f.store, types.Transaction{}, host.VpInput{}, nil, nil)
	defer env.Close()
	_, err = f.reg.RunVp(context.Background(), []byte("vp_nothing"), host.VpInput{}, env)
	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestBuiltins(t *testing.T) {
	reg := NewRegistry(0)
	assert.Equal(t, []string{TxInitAccount, TxTransfer, TxUpdateVp, TxWrite}, reg.TxPrograms())
	assert.Equal(t, []string{VpAlwaysFalse, VpAlwaysTrue, VpEval, VpUser}, reg.VpPrograms())
}

func TestTxWrite(t *testing.T) {
	f := newFixture(t)
	_, err := f.runTx(t, f.signed(t, TxWrite, types.KeyVal{Key: "notes/1", Val: []byte("hi")}))
	require.NoError(t, err)

	key, err := types.ParseKey("notes/1")
	require.NoError(t, err)
	val, ok, err := f.wl.ReadPost(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), val)

	_, err = f.runTx(t, types.Transaction{Code: []byte(TxWrite), Data: []byte("not signed")})
	assert.Error(t, err)
}

func TestTxTransfer(t *testing.T) {
	f := newFixture(t)
	tx := f.signed(t, TxTransfer, types.Transfer{Source: alice, Target: bob, Amount: 30})
	_, err := f.runTx(t, tx)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(70), balance(t, f.wl, alice))
	assert.Equal(t, types.Balance(30), balance(t, f.wl, bob))

	// Storage only changes when the write log commits.
	b, _ := f.store.Balance(alice)
	assert.Equal(t, types.Balance(100), b)

	_, err = f.runTx(t, f.signed(t, TxTransfer, types.Transfer{Source: bob, Target: alice, Amount: 31}))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestVpUser(t *testing.T) {
	f := newFixture(t)
	tx := f.signed(t, TxTransfer, types.Transfer{Source: alice, Target: bob, Amount: 10})
	_, err := f.runTx(t, tx)
	require.NoError(t, err)

	// Debit signed by the stored key.
	assert.True(t, f.runVp(t, VpUser, tx, alice))
	// Credit needs no signature.
	assert.True(t, f.runVp(t, VpUser, tx, bob))

	other, err := ed25519.GenerateKeypair(nil)
	require.NoError(t, err)
	forged, err := ed25519.SignTx(other, types.Transaction{Code: tx.Code, Data: []byte("x")})
	require.NoError(t, err)
	assert.False(t, f.runVp(t, VpUser, forged, alice))

	unsigned := types.Transaction{Code: tx.Code, Data: []byte("plain")}
	assert.False(t, f.runVp(t, VpUser, unsigned, alice))
}

func TestVpUserWithoutKey(t *testing.T) {
	f := newFixture(t)
	tx := f.signed(t, TxWrite, types.KeyVal{Key: "#" + bob.Encode() + "/data", Val: []byte("v")})
	_, err := f.runTx(t, tx)
	require.NoError(t, err)
	assert.False(t, f.runVp(t, VpUser, tx, bob))
}

func TestVpEval(t *testing.T) {
	f := newFixture(t)
	accept := f.signed(t, TxWrite, EvalRequest{Code: []byte(VpAlwaysTrue)})
	reject := f.signed(t, TxWrite, EvalRequest{Code: []byte(VpAlwaysFalse)})
	unknown := f.signed(t, TxWrite, EvalRequest{Code: []byte("vp_missing")})

	assert.True(t, f.runVp(t, VpEval, accept, alice))
	assert.False(t, f.runVp(t, VpEval, reject, alice))
	assert.False(t, f.runVp(t, VpEval, unknown, alice))
}

func TestInitAndUpdateVp(t *testing.T) {
	f := newFixture(t)
	env, err := f.runTx(t, f.signed(t, TxInitAccount, []byte(VpAlwaysTrue)))
	require.NoError(t, err)
	accounts := env.InitializedAccounts()
	require.Len(t, accounts, 1)

	env, err = f.runTx(t, f.signed(t, TxUpdateVp, UpdateVp{Addr: alice, Code: []byte(VpAlwaysFalse)}))
	require.NoError(t, err)
	assert.Equal(t, []types.Address{alice}, env.Verifiers())
	vpKey, err := types.VpKey(alice)
	require.NoError(t, err)
	code, ok, err := f.wl.ReadPost(vpKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(VpAlwaysFalse), code)
}

func TestRegisterCustom(t *testing.T) {
	f := newFixture(t)
	f.reg.RegisterTx("tx_note", func(_ context.Context, tx *guest.Tx, data []byte) error {
		return tx.WriteBytes("notes/custom", data)
	})
	_, err := f.runTx(t, types.Transaction{Code: []byte("tx_note"), Data: []byte("raw")})
	require.NoError(t, err)
	assert.Equal(t, 1, f.wl.Len())
}
