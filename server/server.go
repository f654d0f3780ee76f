package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger"
	"github.com/blockberries/ledger/types"
)

// Server wraps a ledger application with lifecycle enforcement and
// capability routing. The consensus engine talks to the application
// only through it.
type Server struct {
	app    ledger.Lifecycle
	guard  *LifecycleGuard
	caps   types.Capabilities
	logger log.Logger

	simulator ledger.Simulator

	mu          sync.Mutex
	lastOutcome *types.BlockOutcome
	halt        *ledger.HaltError
}

// New creates a Server wrapping app.
func New(app ledger.Lifecycle) *Server {
	s := &Server{
		app:    app,
		guard:  NewLifecycleGuard(),
		logger: log.New("module", "server"),
	}
	s.simulator, _ = app.(ledger.Simulator)
	return s
}

// Handshake performs the startup handshake, validates the declared
// capabilities and moves the lifecycle to Ready.
func (s *Server) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	s.guard.AcquireHandshake()

	resp, err := s.app.Handshake(ctx, req)
	if err != nil {
		s.guard.FailHandshake()
		return resp, err
	}
	if err := s.discoverCapabilities(resp.Capabilities); err != nil {
		s.guard.FailHandshake()
		return resp, err
	}

	s.caps = resp.Capabilities
	s.guard.CompleteHandshake()
	s.logger.Info("Handshake complete", "capabilities", resp.Capabilities, "restart", req.LastCommitted != nil)
	return resp, nil
}

// CheckTx gate-checks a transaction. Safe for concurrent use.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	s.guard.CheckConcurrent()
	return s.app.CheckTx(ctx, tx, mctx)
}

// ExecuteBlock executes a finalized block. Once the application
// reported a halt, every later call returns the same HaltError.
func (s *Server) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if h := s.Halted(); h != nil {
		return types.BlockOutcome{}, h
	}
	s.guard.AcquireExecute()

	outcome, err := s.app.ExecuteBlock(ctx, block)
	if err != nil {
		if h, ok := ledger.IsHalt(err); ok {
			s.mu.Lock()
			s.halt = h
			s.mu.Unlock()
			s.guard.Halt()
			s.logger.Error("Ledger halted", "height", h.Height, "reason", h.Reason, "err", h.Err)
			return outcome, err
		}
		s.guard.FailExecute()
		return outcome, err
	}

	s.mu.Lock()
	s.lastOutcome = &outcome
	s.mu.Unlock()

	s.guard.CompleteExecute()
	return outcome, nil
}

// Commit persists the last executed block.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	if h := s.Halted(); h != nil {
		return types.CommitResult{}, h
	}
	s.guard.AcquireCommit()

	result, err := s.app.Commit(ctx)

	s.mu.Lock()
	s.lastOutcome = nil
	s.mu.Unlock()

	s.guard.CompleteCommit()
	return result, err
}

// Query reads committed state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	s.guard.CheckConcurrent()
	return s.app.Query(ctx, req)
}

// Simulate dry-runs tx if the application supports it. Safe for
// concurrent use.
func (s *Server) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if s.simulator == nil {
		return types.TxOutcome{}, fmt.Errorf("ledger: Simulator not supported")
	}
	s.guard.CheckConcurrent()
	return s.simulator.Simulate(ctx, tx)
}

// Capabilities returns the capabilities declared at handshake.
func (s *Server) Capabilities() types.Capabilities {
	return s.caps
}

// AsSimulator returns the Simulator if it was declared, else nil.
func (s *Server) AsSimulator() ledger.Simulator {
	if s.caps.Has(types.CapSimulation) {
		return s.simulator
	}
	return nil
}

// LastOutcome returns the outcome of a block executed but not yet
// committed, or nil.
func (s *Server) LastOutcome() *types.BlockOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Halted returns the error that halted the ledger, or nil.
func (s *Server) Halted() *ledger.HaltError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halt
}

// Close is a no-op.
func (s *Server) Close() error { return nil }

// discoverCapabilities checks the declared capabilities against the
// interfaces the application implements.
func (s *Server) discoverCapabilities(declared types.Capabilities) error {
	_, hasSimulator := s.app.(ledger.Simulator)
	if declared.Has(types.CapSimulation) && !hasSimulator {
		return fmt.Errorf("ledger: app declared CapSimulation but does not implement Simulator")
	}
	if !declared.Has(types.CapSimulation) && hasSimulator {
		s.logger.Warn("App implements Simulator but did not declare it; capability will not be used")
	}
	return nil
}
