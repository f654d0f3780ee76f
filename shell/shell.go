// Package shell is the ledger application: it drives the Merkle
// storage from the consensus lifecycle, runs guest transactions
// against a write log and lets the validity predicates of every
// touched account judge them before their writes land.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/key/ed25519"
	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/vm/host"
)

var (
	_ ledger.Lifecycle = (*Shell)(nil)
	_ ledger.Simulator = (*Shell)(nil)
)

var (
	// ErrNoGenesis is returned by a genesis handshake without a
	// genesis document.
	ErrNoGenesis = errors.New("genesis handshake without genesis document")
	// ErrAlreadyInitialized is returned by a genesis handshake on
	// storage that already holds committed state.
	ErrAlreadyInitialized = errors.New("storage already initialized")
)

// DefaultMaxTxBytes bounds transactions until genesis sets a limit.
const DefaultMaxTxBytes = 64 * 1024

// Options configures a Shell.
type Options struct {
	// MaxTxBytes overrides the transaction size limit of the genesis
	// parameters. Zero keeps the genesis value.
	MaxTxBytes uint64
	// MaxParallelVps bounds the predicates run at once for one
	// transaction. Zero means one per verifier.
	MaxParallelVps int
	Logger         log.Logger
}

// Shell implements ledger.Application over a storage.Storage.
type Shell struct {
	logger   log.Logger
	store    *storage.Storage
	txRunner host.TxRunner
	vpRunner host.VpRunner
	opts     Options

	// exec serializes block execution against simulations, which read
	// the working state.
	exec       sync.RWMutex
	maxTxBytes uint64
}

// New returns a shell over store. Guest code is executed by txRunner
// and vpRunner.
func New(store *storage.Storage, txRunner host.TxRunner, vpRunner host.VpRunner, opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = log.Root()
	}
	maxTx := opts.MaxTxBytes
	if maxTx == 0 {
		maxTx = DefaultMaxTxBytes
	}
	return &Shell{
		logger:     logger.With("module", "shell"),
		store:      store,
		txRunner:   txRunner,
		vpRunner:   vpRunner,
		opts:       opts,
		maxTxBytes: maxTx,
	}
}

// Storage returns the underlying storage.
func (s *Shell) Storage() *storage.Storage { return s.store }

func (s *Shell) Handshake(_ context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	if req.LastCommitted == nil {
		return s.initChain(req.Genesis)
	}
	info, ok := s.store.LastCommitted()
	if !ok {
		s.logger.Warn("Restart handshake on empty storage", "engine_height", req.LastCommitted.Height)
		return types.HandshakeResponse{Capabilities: types.CapSimulation}, nil
	}
	if uint64(info.Height) != req.LastCommitted.Height {
		s.logger.Warn("Engine and ledger heights differ", "engine", req.LastCommitted.Height, "ledger", info.Height)
	}
	appHash := types.AppHash(info.Root)
	s.logger.Info("Resumed from storage", "height", info.Height, "root", info.Root, "chain", info.ChainID)
	return types.HandshakeResponse{
		LastBlock:    &types.BlockID{Height: uint64(info.Height), Hash: types.Hash(info.BlockHash)},
		AppHash:      &appHash,
		Capabilities: types.CapSimulation,
	}, nil
}

// initChain applies the genesis document and commits it, so the first
// block starts from durable state.
func (s *Shell) initChain(genesis *types.GenesisDoc) (types.HandshakeResponse, error) {
	if genesis == nil {
		return types.HandshakeResponse{}, ErrNoGenesis
	}
	if info, ok := s.store.LastCommitted(); ok {
		return types.HandshakeResponse{}, fmt.Errorf("%w at height %d", ErrAlreadyInitialized, info.Height)
	}
	if err := s.store.SetChainID(genesis.ChainID); err != nil {
		return types.HandshakeResponse{}, err
	}
	if s.opts.MaxTxBytes == 0 && genesis.Params.MaxTxBytes > 0 {
		s.maxTxBytes = genesis.Params.MaxTxBytes
	}
	state, err := types.DecodeGenesisState(genesis.AppState)
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	for _, acc := range state.Accounts {
		if err := s.initAccount(acc); err != nil {
			s.rollback()
			return types.HandshakeResponse{}, fmt.Errorf("genesis account %s: %w", acc.Address, err)
		}
	}
	root, err := s.store.Commit()
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	appHash := types.AppHash(root)
	s.logger.Info("Initialized chain", "chain", genesis.ChainID, "accounts", len(state.Accounts), "root", root)
	return types.HandshakeResponse{
		AppHash:      &appHash,
		Capabilities: types.CapSimulation,
	}, nil
}

func (s *Shell) initAccount(acc types.GenesisAccount) error {
	if err := acc.Address.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateBalance(acc.Address, types.Balance(acc.Balance)); err != nil {
		return err
	}
	if len(acc.PublicKey) > 0 {
		pk, err := ed25519.PublicKeyFromBytes(acc.PublicKey)
		if err != nil {
			return err
		}
		key, err := ed25519.PkKey(acc.Address)
		if err != nil {
			return err
		}
		if err := s.store.Write(key, pk.Bytes()); err != nil {
			return err
		}
	}
	if len(acc.VpCode) > 0 {
		key, err := types.VpKey(acc.Address)
		if err != nil {
			return err
		}
		if err := s.store.Write(key, acc.VpCode); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) CheckTx(_ context.Context, raw types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	if uint64(len(raw)) > s.maxTxBytes {
		return types.GateVerdict{
			Code: types.TxCodeInvalid,
			Info: fmt.Sprintf("tx is %d bytes, limit %d", len(raw), s.maxTxBytes),
		}, nil
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return types.GateVerdict{Code: types.TxCodeInvalid, Info: err.Error()}, nil
	}
	if !tx.IsNative() {
		return types.GateVerdict{}, nil
	}
	transfer, code, err := s.checkTransfer(tx)
	if err != nil {
		return types.GateVerdict{Code: code, Info: err.Error()}, nil
	}
	if err := s.store.HasBalanceGTE(transfer.Source, transfer.Amount); err != nil {
		return types.GateVerdict{Code: transferCode(err), Info: err.Error()}, nil
	}
	return types.GateVerdict{Sender: transfer.Source.Encode()}, nil
}

func (s *Shell) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	s.exec.Lock()
	defer s.exec.Unlock()

	s.store.BeginBlock(types.BlockHash(block.Hash), types.BlockHeight(block.Height))
	outcomes := make([]types.TxOutcome, len(block.Txs))
	for i, raw := range block.Txs {
		out, err := s.applyTx(ctx, raw, true)
		if err != nil {
			s.rollback()
			if errors.Is(err, storage.ErrTree) {
				return types.BlockOutcome{}, ledger.WrapHalt(block.Height, "state tree update failed", err)
			}
			return types.BlockOutcome{}, fmt.Errorf("tx %d: %w", i, err)
		}
		out.Index = uint32(i)
		outcomes[i] = out
	}
	root := s.store.MerkleRoot()
	s.logger.Debug("Executed block", "height", block.Height, "txs", len(block.Txs), "root", root)
	return types.BlockOutcome{
		TxOutcomes: outcomes,
		AppHash:    types.AppHash(root),
	}, nil
}

func (s *Shell) Commit(_ context.Context) (types.CommitResult, error) {
	s.exec.Lock()
	defer s.exec.Unlock()
	root, err := s.store.Commit()
	if err != nil {
		return types.CommitResult{}, err
	}
	s.logger.Info("Committed block", "height", s.store.BlockHeight(), "root", root)
	return types.CommitResult{AppHash: types.AppHash(root)}, nil
}

// Simulate runs tx against the working state and discards its writes.
func (s *Shell) Simulate(ctx context.Context, raw types.Tx) (types.TxOutcome, error) {
	s.exec.RLock()
	defer s.exec.RUnlock()
	return s.applyTx(ctx, raw, false)
}

func (s *Shell) rollback() {
	if err := s.store.Rollback(); err != nil {
		s.logger.Error("Rollback failed", "err", err)
	}
}
