package guest

import (
	"context"

	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/vm/memory"
)

// Vp is the view of a validity predicate's code.
type Vp struct {
	caller
	imp *host.VpImports
}

// NewVp binds env through mem.
func NewVp(env *host.VpEnv, mem *memory.Linear) *Vp {
	return &Vp{caller: caller{mem: mem}, imp: host.NewVpImports(env, mem)}
}

// Pre returns the state before the transaction.
func (v *Vp) Pre() *View { return &View{vp: v} }

// Post returns the state with the transaction's writes applied.
func (v *Vp) Post() *View { return &View{vp: v, post: true} }

func (v *Vp) ChainID() (string, error) { return v.chainID(v.imp.GetChainID) }

func (v *Vp) BlockHeight() types.BlockHeight { return types.BlockHeight(v.imp.GetBlockHeight()) }

func (v *Vp) BlockHash() (types.BlockHash, error) { return v.blockHash(v.imp.GetBlockHash) }

func (v *Vp) Log(msg string) error { return v.log(v.imp.LogString, msg) }

// VerifyTxSignature reports whether sig by pk signs the transaction.
func (v *Vp) VerifyTxSignature(pk ed25519.PublicKey, sig []byte) (bool, error) {
	v.mem.Reset()
	pkPtr, pkLen, err := v.put(pk.Bytes())
	if err != nil {
		return false, err
	}
	sigPtr, sigLen, err := v.put(sig)
	if err != nil {
		return false, err
	}
	res, err := v.imp.VerifyTxSignature(pkPtr, pkLen, sigPtr, sigLen)
	return res == 1, err
}

// Eval runs the predicate code with input and reports its verdict.
func (v *Vp) Eval(ctx context.Context, code, input []byte) (bool, error) {
	v.mem.Reset()
	cptr, clen, err := v.put(code)
	if err != nil {
		return false, err
	}
	iptr, ilen, err := v.put(input)
	if err != nil {
		return false, err
	}
	res, err := v.imp.Eval(ctx, cptr, clen, iptr, ilen)
	return res == 1, err
}

// View is one side of a predicate's state.
type View struct {
	vp   *Vp
	post bool
}

func (w *View) ReadBytes(key string) ([]byte, bool, error) {
	w.vp.mem.Reset()
	ptr, n, err := w.vp.put([]byte(key))
	if err != nil {
		return nil, false, err
	}
	if w.post {
		size, err := w.vp.imp.ReadPost(ptr, n)
		if err != nil {
			return nil, false, err
		}
		return w.vp.fetch(size, w.vp.imp.PostResultBuffer)
	}
	size, err := w.vp.imp.ReadPre(ptr, n)
	if err != nil {
		return nil, false, err
	}
	return w.vp.fetch(size, w.vp.imp.PreResultBuffer)
}

func (w *View) HasKey(key string) (bool, error) {
	w.vp.mem.Reset()
	ptr, n, err := w.vp.put([]byte(key))
	if err != nil {
		return false, err
	}
	var res int64
	if w.post {
		res, err = w.vp.imp.HasKeyPost(ptr, n)
	} else {
		res, err = w.vp.imp.HasKeyPre(ptr, n)
	}
	return res == 1, err
}

func (w *View) IterPrefix(prefix string) (*Iter, error) {
	w.vp.mem.Reset()
	ptr, n, err := w.vp.put([]byte(prefix))
	if err != nil {
		return nil, err
	}
	if w.post {
		id, err := w.vp.imp.IterPrefixPost(ptr, n)
		if err != nil {
			return nil, err
		}
		return &Iter{c: w.vp.caller, id: id, next: w.vp.imp.IterPostNext, fill: w.vp.imp.PostResultBuffer}, nil
	}
	id, err := w.vp.imp.IterPrefixPre(ptr, n)
	if err != nil {
		return nil, err
	}
	return &Iter{c: w.vp.caller, id: id, next: w.vp.imp.IterPreNext, fill: w.vp.imp.PreResultBuffer}, nil
}
