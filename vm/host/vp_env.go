package host

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/writelog"
)

// VpEnv is the environment of one validity predicate invocation. The
// pre and post views have separate sessions, so results and iterators
// of one can never be consumed through the other.
type VpEnv struct {
	logger log.Logger
	wl     *writelog.WriteLog
	chain  ChainInfo
	tx     types.Transaction
	input  VpInput
	runner VpRunner
	pre    *Session
	post   *Session
}

// NewVpEnv opens the environment for a predicate judging tx. runner
// serves Eval.
func NewVpEnv(wl *writelog.WriteLog, chain ChainInfo, tx types.Transaction, input VpInput, runner VpRunner, logger log.Logger) *VpEnv {
	if logger == nil {
		logger = log.Root()
	}
	return &VpEnv{
		logger: logger.With("channel", "vp", "addr", input.Addr),
		wl:     wl,
		chain:  chain,
		tx:     tx,
		input:  input,
		runner: runner,
		pre:    NewSession(ChannelVpPre),
		post:   NewSession(ChannelVpPost),
	}
}

// Input returns what the predicate is judging.
func (e *VpEnv) Input() VpInput { return e.input }

// ReadPre probes key as of before the transaction.
func (e *VpEnv) ReadPre(key string) (Response, error) {
	k, ok := parseKey(key)
	if !ok {
		return e.pre.stash(nil, false)
	}
	val, found, err := e.wl.ReadPre(k)
	if err != nil {
		return Response{}, err
	}
	return e.pre.stash(val, found)
}

// ReadPost probes key with the transaction's writes applied.
func (e *VpEnv) ReadPost(key string) (Response, error) {
	k, ok := parseKey(key)
	if !ok {
		return e.post.stash(nil, false)
	}
	val, found, err := e.wl.ReadPost(k)
	if err != nil {
		return Response{}, err
	}
	return e.post.stash(val, found)
}

// PreResultBuffer materializes the last pre probe.
func (e *VpEnv) PreResultBuffer(dst []byte) (int, error) {
	return e.pre.Materialize(dst)
}

// PostResultBuffer materializes the last post probe.
func (e *VpEnv) PostResultBuffer(dst []byte) (int, error) {
	return e.post.Materialize(dst)
}

func (e *VpEnv) HasKeyPre(key string) (bool, error) {
	if err := e.pre.check(); err != nil {
		return false, err
	}
	k, ok := parseKey(key)
	if !ok {
		return false, nil
	}
	return e.wl.HasKeyPre(k)
}

func (e *VpEnv) HasKeyPost(key string) (bool, error) {
	if err := e.post.check(); err != nil {
		return false, err
	}
	k, ok := parseKey(key)
	if !ok {
		return false, nil
	}
	return e.wl.HasKeyPost(k)
}

// IterPrefixPre opens an iterator on the pre view.
func (e *VpEnv) IterPrefixPre(prefix string) (uint64, error) {
	if err := e.pre.check(); err != nil {
		return 0, err
	}
	it, err := e.wl.IterPrefixPre(prefix)
	if err != nil {
		return 0, err
	}
	return e.pre.openIterator(it)
}

// IterPrefixPost opens an iterator on the post view.
func (e *VpEnv) IterPrefixPost(prefix string) (uint64, error) {
	if err := e.post.check(); err != nil {
		return 0, err
	}
	it, err := e.wl.IterPrefixPost(prefix)
	if err != nil {
		return 0, err
	}
	return e.post.openIterator(it)
}

func (e *VpEnv) IterPreNext(id uint64) (Response, error) {
	return e.pre.nextEntry(id)
}

func (e *VpEnv) IterPostNext(id uint64) (Response, error) {
	return e.post.nextEntry(id)
}

func (e *VpEnv) ChainID() string { return e.chain.ChainID() }

func (e *VpEnv) BlockHeight() types.BlockHeight { return e.chain.BlockHeight() }

func (e *VpEnv) BlockHash() types.BlockHash { return e.chain.BlockHash() }

// VerifyTxSignature reports whether sig, made with the key pk, signs
// the transaction under judgement. Malformed keys and signatures do
// not verify.
func (e *VpEnv) VerifyTxSignature(pk, sig []byte) bool {
	pubKey, err := ed25519.PublicKeyFromBytes(pk)
	if err != nil {
		return false
	}
	signature, err := ed25519.SignatureFromBytes(sig)
	if err != nil {
		return false
	}
	return ed25519.VerifyTxSig(pubKey, e.tx, signature) == nil
}

// EvalPredicate runs another predicate's code with input as its data,
// against the same views, changed keys and verifiers. Any failure of
// the evaluated code counts as a rejection.
func (e *VpEnv) EvalPredicate(ctx context.Context, code, input []byte) bool {
	if e.runner == nil {
		return false
	}
	in := e.input
	in.Data = input
	child := NewVpEnv(e.wl, e.chain, e.tx, in, e.runner, e.logger)
	defer child.Close()
	ok, err := e.runner.RunVp(ctx, code, in, child)
	if err != nil {
		e.logger.Debug("Evaluated predicate failed", "err", err)
		return false
	}
	return ok
}

// LogString logs a message from the guest.
func (e *VpEnv) LogString(msg string) {
	e.logger.Info(msg)
}

// Close ends the invocation.
func (e *VpEnv) Close() {
	e.pre.Close()
	e.post.Close()
}
