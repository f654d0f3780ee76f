// Package native runs guest programs written in Go in-process. Code
// bytes name a registered program; the program talks to the host
// only through the guest helpers and its own linear memory, exactly
// as sandboxed code would.
package native

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/vm/guest"
	"github.com/blockberries/ledger/vm/host"
	"github.com/blockberries/ledger/vm/memory"
)

// ErrUnknownProgram is returned for code that names no registered
// program.
var ErrUnknownProgram = errors.New("unknown program")

// TxProgram is transaction code.
type TxProgram func(ctx context.Context, tx *guest.Tx, data []byte) error

// VpProgram is validity predicate code.
type VpProgram func(ctx context.Context, vp *guest.Vp, input host.VpInput) (bool, error)

// Registry resolves code to programs. It implements host.TxRunner and
// host.VpRunner.
type Registry struct {
	mu      sync.RWMutex
	logger  log.Logger
	memSize uint32
	txs     map[string]TxProgram
	vps     map[string]VpProgram
}

var (
	_ host.TxRunner = (*Registry)(nil)
	_ host.VpRunner = (*Registry)(nil)
)

// NewRegistry returns a registry holding the built-in programs. Each
// invocation gets a fresh memory of memSize bytes, or
// memory.DefaultSize when memSize is zero.
func NewRegistry(memSize uint32) *Registry {
	r := &Registry{
		logger:  log.New("module", "vm"),
		memSize: memSize,
		txs:     make(map[string]TxProgram),
		vps:     make(map[string]VpProgram),
	}
	r.RegisterTx(TxWrite, txWrite)
	r.RegisterTx(TxTransfer, txTransfer)
	r.RegisterTx(TxInitAccount, txInitAccount)
	r.RegisterTx(TxUpdateVp, txUpdateVp)
	r.RegisterVp(VpAlwaysTrue, vpAlwaysTrue)
	r.RegisterVp(VpAlwaysFalse, vpAlwaysFalse)
	r.RegisterVp(VpUser, vpUser)
	r.RegisterVp(VpEval, vpEval)
	return r
}

// RegisterTx makes p runnable as transaction code name, replacing any
// program registered under it.
func (r *Registry) RegisterTx(name string, p TxProgram) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[name] = p
}

// RegisterVp makes p runnable as predicate code name.
func (r *Registry) RegisterVp(name string, p VpProgram) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vps[name] = p
}

// TxPrograms returns the registered transaction program names, sorted.
func (r *Registry) TxPrograms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.txs))
	for name := range r.txs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// VpPrograms returns the registered predicate program names, sorted.
func (r *Registry) VpPrograms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.vps))
	for name := range r.vps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RunTx runs the transaction program named by code.
func (r *Registry) RunTx(ctx context.Context, code, data []byte, env *host.TxEnv) error {
	r.mu.RLock()
	p, ok := r.txs[string(code)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: tx %q", ErrUnknownProgram, code)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.logger.Debug("Running tx program", "program", string(code))
	return p(ctx, guest.NewTx(env, memory.New(r.memSize)), data)
}

// RunVp runs the predicate program named by code.
func (r *Registry) RunVp(ctx context.Context, code []byte, input host.VpInput, env *host.VpEnv) (bool, error) {
	r.mu.RLock()
	p, ok := r.vps[string(code)]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: vp %q", ErrUnknownProgram, code)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.logger.Debug("Running vp program", "program", string(code), "addr", input.Addr)
	return p(ctx, guest.NewVp(env, memory.New(r.memSize)), input)
}
