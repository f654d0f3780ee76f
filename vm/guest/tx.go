package guest

import (
	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/vm/memory"
)

// Tx is the view of a transaction's code.
type Tx struct {
	caller
	imp *host.TxImports
}

// NewTx binds env through mem.
func NewTx(env *host.TxEnv, mem *memory.Linear) *Tx {
	return &Tx{caller: caller{mem: mem}, imp: host.NewTxImports(env, mem)}
}

func (t *Tx) ReadBytes(key string) ([]byte, bool, error) {
	t.mem.Reset()
	ptr, n, err := t.put([]byte(key))
	if err != nil {
		return nil, false, err
	}
	size, err := t.imp.Read(ptr, n)
	if err != nil {
		return nil, false, err
	}
	return t.fetch(size, t.imp.ResultBuffer)
}

func (t *Tx) HasKey(key string) (bool, error) {
	t.mem.Reset()
	ptr, n, err := t.put([]byte(key))
	if err != nil {
		return false, err
	}
	res, err := t.imp.HasKey(ptr, n)
	return res == 1, err
}

func (t *Tx) IterPrefix(prefix string) (*Iter, error) {
	t.mem.Reset()
	ptr, n, err := t.put([]byte(prefix))
	if err != nil {
		return nil, err
	}
	id, err := t.imp.IterPrefix(ptr, n)
	if err != nil {
		return nil, err
	}
	return &Iter{c: t.caller, id: id, next: t.imp.IterNext, fill: t.imp.ResultBuffer}, nil
}

// WriteBytes stores raw bytes under key.
func (t *Tx) WriteBytes(key string, value []byte) error {
	t.mem.Reset()
	kptr, klen, err := t.put([]byte(key))
	if err != nil {
		return err
	}
	vptr, vlen, err := t.put(value)
	if err != nil {
		return err
	}
	return t.imp.Write(kptr, klen, vptr, vlen)
}

// WriteBalance stores the balance of addr.
func (t *Tx) WriteBalance(addr types.Address, bal types.Balance) error {
	key, err := types.BalanceKey(addr)
	if err != nil {
		return err
	}
	return t.WriteBytes(key.String(), bal.Bytes())
}

func (t *Tx) Delete(key string) error {
	t.mem.Reset()
	ptr, n, err := t.put([]byte(key))
	if err != nil {
		return err
	}
	return t.imp.Delete(ptr, n)
}

func (t *Tx) InsertVerifier(addr types.Address) error {
	t.mem.Reset()
	ptr, n, err := t.put([]byte(addr.Encode()))
	if err != nil {
		return err
	}
	return t.imp.InsertVerifier(ptr, n)
}

func (t *Tx) UpdateValidityPredicate(addr types.Address, code []byte) error {
	t.mem.Reset()
	aptr, alen, err := t.put([]byte(addr.Encode()))
	if err != nil {
		return err
	}
	cptr, clen, err := t.put(code)
	if err != nil {
		return err
	}
	return t.imp.UpdateValidityPredicate(aptr, alen, cptr, clen)
}

// InitAccount creates an account guarded by code and returns its
// address.
func (t *Tx) InitAccount(code []byte) (types.Address, error) {
	t.mem.Reset()
	ptr, n, err := t.put(code)
	if err != nil {
		return types.Address{}, err
	}
	size, err := t.imp.InitAccount(ptr, n)
	if err != nil {
		return types.Address{}, err
	}
	b, _, err := t.fetch(size, t.imp.ResultBuffer)
	if err != nil {
		return types.Address{}, err
	}
	return types.ParseAddress(string(b))
}

func (t *Tx) ChainID() (string, error) { return t.chainID(t.imp.GetChainID) }

func (t *Tx) BlockHeight() types.BlockHeight { return types.BlockHeight(t.imp.GetBlockHeight()) }

func (t *Tx) BlockHash() (types.BlockHash, error) { return t.blockHash(t.imp.GetBlockHash) }

func (t *Tx) Log(msg string) error { return t.log(t.imp.LogString, msg) }

// Write encodes v and stores it under key.
func Write[T any](t *Tx, key string, v T) error {
	b, err := cramberry.Marshal(v)
	if err != nil {
		return err
	}
	return t.WriteBytes(key, b)
}
