package native

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/guest"
	"github.com/blockberries/ledger/vm/host"
)

// Names of the built-in programs.
const (
	TxWrite       = "tx_write"
	TxTransfer    = "tx_transfer"
	TxInitAccount = "tx_init_account"
	TxUpdateVp    = "tx_update_vp"

	VpAlwaysTrue  = "vp_always_true"
	VpAlwaysFalse = "vp_always_false"
	VpUser        = "vp_user"
	VpEval        = "vp_eval"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// UpdateVp is the data of tx_update_vp.
type UpdateVp struct {
	Addr types.Address `cramberry:"1"`
	Code []byte        `cramberry:"2"`
}

// EvalRequest is the data vp_eval expects: the predicate to delegate
// to and the input to give it.
type EvalRequest struct {
	Code  []byte `cramberry:"1"`
	Input []byte `cramberry:"2"`
}

// unsign returns the payload of signed transaction data. Built-in
// transactions are always signed; the signature itself is checked by
// the predicates of the accounts they touch.
func unsign(data []byte) ([]byte, error) {
	signed, err := ed25519.DecodeSignedTxData(data)
	if err != nil {
		return nil, err
	}
	return signed.Data, nil
}

// txWrite stores a KeyVal.
func txWrite(_ context.Context, tx *guest.Tx, data []byte) error {
	var kv types.KeyVal
	payload, err := unsign(data)
	if err != nil {
		return err
	}
	if err := cramberry.Unmarshal(payload, &kv); err != nil {
		return fmt.Errorf("decode key value: %w", err)
	}
	return tx.WriteBytes(kv.Key, kv.Val)
}

// txTransfer moves tokens between balance keys. The accounts'
// predicates judge it through the changed keys.
func txTransfer(_ context.Context, tx *guest.Tx, data []byte) error {
	var t types.Transfer
	payload, err := unsign(data)
	if err != nil {
		return err
	}
	if err := cramberry.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("decode transfer: %w", err)
	}
	src, _, err := guest.ReadBalance(tx, t.Source)
	if err != nil {
		return err
	}
	if uint64(src) < t.Amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, t.Source, src, t.Amount)
	}
	if t.Source == t.Target {
		return nil
	}
	dst, _, err := guest.ReadBalance(tx, t.Target)
	if err != nil {
		return err
	}
	if uint64(dst) > math.MaxUint64-t.Amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, t.Target)
	}
	if err := tx.WriteBalance(t.Source, src-types.Balance(t.Amount)); err != nil {
		return err
	}
	return tx.WriteBalance(t.Target, dst+types.Balance(t.Amount))
}

// txInitAccount creates an account guarded by the code in data.
func txInitAccount(_ context.Context, tx *guest.Tx, data []byte) error {
	code, err := unsign(data)
	if err != nil {
		return err
	}
	addr, err := tx.InitAccount(code)
	if err != nil {
		return err
	}
	return tx.Log("initialized account " + addr.Encode())
}

func txUpdateVp(_ context.Context, tx *guest.Tx, data []byte) error {
	var u UpdateVp
	payload, err := unsign(data)
	if err != nil {
		return err
	}
	if err := cramberry.Unmarshal(payload, &u); err != nil {
		return fmt.Errorf("decode vp update: %w", err)
	}
	if err := tx.InsertVerifier(u.Addr); err != nil {
		return err
	}
	return tx.UpdateValidityPredicate(u.Addr, u.Code)
}

func vpAlwaysTrue(context.Context, *guest.Vp, host.VpInput) (bool, error) { return true, nil }

func vpAlwaysFalse(context.Context, *guest.Vp, host.VpInput) (bool, error) { return false, nil }

// vpUser accepts credits to the account from anyone. Every other
// change to the account's keys needs a transaction signature by the
// account's public key.
func vpUser(_ context.Context, vp *guest.Vp, input host.VpInput) (bool, error) {
	needSig := false
	for _, key := range input.KeysChanged {
		owner, ok := key.Owner()
		if !ok || owner != input.Addr {
			continue
		}
		if _, ok := types.IsBalanceKey(key); !ok {
			needSig = true
			break
		}
		pre, _, err := guest.ReadBalance(vp.Pre(), owner)
		if err != nil {
			return false, err
		}
		post, _, err := guest.ReadBalance(vp.Post(), owner)
		if err != nil {
			return false, err
		}
		if post < pre {
			needSig = true
			break
		}
	}
	if !needSig {
		return true, nil
	}
	pkKey, err := ed25519.PkKey(input.Addr)
	if err != nil {
		return false, err
	}
	raw, ok, err := vp.Pre().ReadBytes(pkKey.String())
	if err != nil || !ok {
		return false, err
	}
	pk, err := ed25519.PublicKeyFromBytes(raw)
	if err != nil {
		return false, nil
	}
	signed, err := ed25519.DecodeSignedTxData(input.Data)
	if err != nil {
		_ = vp.Log("unsigned transaction rejected")
		return false, nil
	}
	return vp.VerifyTxSignature(pk, signed.Sig)
}

// vpEval delegates the verdict to the predicate named in the signed
// transaction data.
func vpEval(ctx context.Context, vp *guest.Vp, input host.VpInput) (bool, error) {
	payload, err := unsign(input.Data)
	if err != nil {
		return false, nil
	}
	var req EvalRequest
	if err := cramberry.Unmarshal(payload, &req); err != nil {
		return false, nil
	}
	return vp.Eval(ctx, req.Code, req.Input)
}
