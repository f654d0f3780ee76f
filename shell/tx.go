package shell

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"golang.org/x/sync/errgroup"

	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/writelog"
)

// errNoVp marks accounts that cannot judge a transaction because they
// have no predicate.
var errNoVp = errors.New("account has no validity predicate")

// applyTx runs one transaction. Failures of the transaction itself are
// reported in the outcome; a returned error means the state can no
// longer be trusted. Writes land only when commit is set.
func (s *Shell) applyTx(ctx context.Context, raw types.Tx, commit bool) (types.TxOutcome, error) {
	if uint64(len(raw)) > s.maxTxBytes {
		return rejected(types.TxCodeInvalid, fmt.Sprintf("tx is %d bytes, limit %d", len(raw), s.maxTxBytes)), nil
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return rejected(types.TxCodeInvalid, err.Error()), nil
	}
	if tx.IsNative() {
		return s.applyTransfer(tx, commit)
	}
	return s.applyGuestTx(ctx, raw, tx, commit)
}

func rejected(code uint32, info string) types.TxOutcome {
	return types.TxOutcome{Code: code, Info: info}
}

// checkTransfer decodes a native transfer and checks its signature
// against the public key stored for the source account.
func (s *Shell) checkTransfer(tx types.Transaction) (types.Transfer, uint32, error) {
	signed, err := ed25519.DecodeSignedTxData(tx.Data)
	if err != nil {
		return types.Transfer{}, types.TxCodeInvalid, err
	}
	var t types.Transfer
	if err := cramberry.Unmarshal(signed.Data, &t); err != nil {
		return types.Transfer{}, types.TxCodeInvalid, fmt.Errorf("decode transfer: %w", err)
	}
	if err := t.Source.Validate(); err != nil {
		return types.Transfer{}, types.TxCodeInvalid, err
	}
	if err := t.Target.Validate(); err != nil {
		return types.Transfer{}, types.TxCodeInvalid, err
	}
	pkKey, err := ed25519.PkKey(t.Source)
	if err != nil {
		return types.Transfer{}, types.TxCodeInvalid, err
	}
	raw, ok, err := s.store.Read(pkKey)
	if err != nil {
		return types.Transfer{}, types.TxCodeUnauthorized, err
	}
	if !ok {
		return types.Transfer{}, types.TxCodeUnauthorized, fmt.Errorf("%s has no public key", t.Source)
	}
	pk, err := ed25519.PublicKeyFromBytes(raw)
	if err != nil {
		return types.Transfer{}, types.TxCodeUnauthorized, err
	}
	if err := ed25519.VerifySignedTx(pk, tx); err != nil {
		return types.Transfer{}, types.TxCodeUnauthorized, err
	}
	return t, types.TxCodeOK, nil
}

func transferCode(err error) uint32 {
	switch {
	case errors.Is(err, storage.ErrAddressNotFound):
		return types.TxCodeUnknownAddress
	case errors.Is(err, storage.ErrInsufficientBalance), errors.Is(err, storage.ErrBalanceOverflow):
		return types.TxCodeInsufficientBalance
	default:
		return types.TxCodeExecutionFailed
	}
}

func (s *Shell) applyTransfer(tx types.Transaction, commit bool) (types.TxOutcome, error) {
	t, code, err := s.checkTransfer(tx)
	if err != nil {
		return rejected(code, err.Error()), nil
	}
	if commit {
		err = s.store.Transfer(t.Source, t.Target, t.Amount)
	} else {
		err = s.store.HasBalanceGTE(t.Source, t.Amount)
	}
	if err != nil {
		if errors.Is(err, storage.ErrTree) {
			return types.TxOutcome{}, err
		}
		return rejected(transferCode(err), err.Error()), nil
	}

	var changed []string
	for _, addr := range []types.Address{t.Source, t.Target} {
		key, err := types.BalanceKey(addr)
		if err != nil {
			return types.TxOutcome{}, err
		}
		changed = append(changed, key.String())
	}
	slices.Sort(changed)
	return types.TxOutcome{
		ChangedKeys: slices.Compact(changed),
		Events: []types.Event{{
			Kind: "transfer",
			Attributes: []types.EventAttribute{
				{Key: "source", Value: t.Source.Encode(), Index: true},
				{Key: "target", Value: t.Target.Encode(), Index: true},
				{Key: "amount", Value: strconv.FormatUint(t.Amount, 10)},
			},
		}},
	}, nil
}

func (s *Shell) applyGuestTx(ctx context.Context, raw types.Tx, tx types.Transaction, commit bool) (types.TxOutcome, error) {
	if s.txRunner == nil || s.vpRunner == nil {
		return rejected(types.TxCodeExecutionFailed, "no guest runtime"), nil
	}
	wl := writelog.New(s.store)
	env := host.NewTxEnv(wl, s.store, types.TxHash(raw), s.logger)
	err := s.txRunner.RunTx(ctx, tx.Code, tx.Data, env)
	env.Close()
	if err != nil {
		wl.Drop()
		return rejected(types.TxCodeExecutionFailed, err.Error()), nil
	}

	changed := wl.ChangedKeys()
	initialized := env.InitializedAccounts()
	verifiers := verifierSet(env.Verifiers(), changed, initialized)
	out := types.TxOutcome{
		ChangedKeys:         make([]string, len(changed)),
		Verifiers:           verifiers,
		InitializedAccounts: initialized,
	}
	for i, k := range changed {
		out.ChangedKeys[i] = k.String()
	}

	if err := s.runVps(ctx, wl, tx, changed, verifiers, initialized); err != nil {
		wl.Drop()
		out.Code, out.Info = types.TxCodeRejected, err.Error()
		return out, nil
	}
	if !commit {
		wl.Drop()
		return out, nil
	}
	// A write set that fails to land may have landed in part, so the
	// block cannot go on.
	if err := wl.Commit(); err != nil {
		return types.TxOutcome{}, err
	}
	for _, addr := range initialized {
		out.Events = append(out.Events, types.Event{
			Kind:       "init_account",
			Attributes: []types.EventAttribute{{Key: "address", Value: addr.Encode(), Index: true}},
		})
	}
	return out, nil
}

// verifierSet is every inserted verifier, every owner of a changed key
// and every account the transaction created, in address order.
func verifierSet(inserted []types.Address, changed []types.Key, initialized []types.Address) []types.Address {
	set := slices.Clone(inserted)
	for _, k := range changed {
		if owner, ok := k.Owner(); ok {
			set = append(set, owner)
		}
	}
	set = append(set, initialized...)
	slices.SortFunc(set, types.Address.Compare)
	return slices.Compact(set)
}

// runVps runs the predicate of every verifier and fails unless all of
// them accept. Predicates only read, so they run in parallel. Every
// predicate is resolved before any of them starts, and none outlives
// the call.
func (s *Shell) runVps(ctx context.Context, wl *writelog.WriteLog, tx types.Transaction, changed []types.Key, verifiers, initialized []types.Address) error {
	codes := make([][]byte, len(verifiers))
	for i, addr := range verifiers {
		code, err := s.vpCode(wl, addr, slices.Contains(initialized, addr))
		if err != nil {
			return fmt.Errorf("%s: %w", addr, err)
		}
		codes[i] = code
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.opts.MaxParallelVps > 0 {
		g.SetLimit(s.opts.MaxParallelVps)
	}
	for i, addr := range verifiers {
		code := codes[i]
		input := host.VpInput{Addr: addr, Data: tx.Data, KeysChanged: changed, Verifiers: verifiers}
		g.Go(func() error {
			env := host.NewVpEnv(wl, s.store, tx, input, s.vpRunner, s.logger)
			defer env.Close()
			ok, err := s.vpRunner.RunVp(ctx, code, input, env)
			if err != nil {
				return fmt.Errorf("%s: %w", addr, err)
			}
			if !ok {
				return fmt.Errorf("%s: rejected by validity predicate", addr)
			}
			return nil
		})
	}
	return g.Wait()
}

// vpCode returns the predicate guarding addr as it was before the
// transaction. Accounts created by the transaction have no earlier
// predicate and are guarded by the one they were created with.
func (s *Shell) vpCode(wl *writelog.WriteLog, addr types.Address, initialized bool) ([]byte, error) {
	key, err := types.VpKey(addr)
	if err != nil {
		return nil, err
	}
	read := wl.ReadPre
	if initialized {
		read = wl.ReadPost
	}
	code, ok, err := read(key)
	if err != nil {
		return nil, err
	}
	if !ok || len(code) == 0 {
		return nil, errNoVp
	}
	return code, nil
}
