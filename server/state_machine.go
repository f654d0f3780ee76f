// Package server wraps a ledger application with the lifecycle state
// machine the consensus engine must follow and routes the optional
// simulation capability.
package server

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// lifecycleState is a state of the ledger lifecycle.
type lifecycleState uint32

const (
	// stateInit: waiting for Handshake.
	stateInit lifecycleState = iota
	// stateReady: between blocks. CheckTx, Query and Simulate may run
	// concurrently.
	stateReady
	// stateExecuting: ExecuteBlock is running.
	stateExecuting
	// stateExecuted: the block executed; only Commit may follow.
	stateExecuted
	// stateCommitting: Commit is running.
	stateCommitting
	// stateHalted: the state tree failed. Nothing may execute or
	// commit on top of it again.
	stateHalted
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateReady:
		return "Ready"
	case stateExecuting:
		return "Executing"
	case stateExecuted:
		return "Executed"
	case stateCommitting:
		return "Committing"
	case stateHalted:
		return "Halted"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the call order of the lifecycle. Misuse is
// a bug in the engine and panics.
type LifecycleGuard struct {
	state atomic.Uint32
	// seqMu serializes ExecuteBlock and Commit.
	seqMu         sync.Mutex
	handshakeDone atomic.Bool
}

// NewLifecycleGuard creates a guard in the Init state.
func NewLifecycleGuard() *LifecycleGuard {
	g := &LifecycleGuard{}
	g.state.Store(uint32(stateInit))
	return g
}

// State returns the current state name.
func (g *LifecycleGuard) State() string {
	return lifecycleState(g.state.Load()).String()
}

// AcquireHandshake moves Init to Ready. Panics in any other state.
func (g *LifecycleGuard) AcquireHandshake() {
	if !g.state.CompareAndSwap(uint32(stateInit), uint32(stateReady)) {
		panic(fmt.Sprintf("ledger: Handshake called in state %s (expected Init)",
			lifecycleState(g.state.Load())))
	}
}

// CompleteHandshake enables the concurrent calls.
func (g *LifecycleGuard) CompleteHandshake() {
	g.handshakeDone.Store(true)
}

// FailHandshake returns to Init so the handshake can be retried.
func (g *LifecycleGuard) FailHandshake() {
	g.state.Store(uint32(stateInit))
}

// AcquireExecute moves Ready to Executing, waiting for any running
// sequential call. Panics unless Ready.
func (g *LifecycleGuard) AcquireExecute() {
	g.seqMu.Lock()
	if state := lifecycleState(g.state.Load()); state != stateReady {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("ledger: ExecuteBlock called in state %s (expected Ready)", state))
	}
	g.state.Store(uint32(stateExecuting))
}

// CompleteExecute moves Executing to Executed.
func (g *LifecycleGuard) CompleteExecute() {
	g.state.Store(uint32(stateExecuted))
	g.seqMu.Unlock()
}

// FailExecute returns to Ready so the block can be retried.
func (g *LifecycleGuard) FailExecute() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// AcquireCommit moves Executed to Committing. Panics unless Executed.
func (g *LifecycleGuard) AcquireCommit() {
	g.seqMu.Lock()
	if state := lifecycleState(g.state.Load()); state != stateExecuted {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("ledger: Commit called in state %s (expected Executed)", state))
	}
	g.state.Store(uint32(stateCommitting))
}

// CompleteCommit moves Committing to Ready.
func (g *LifecycleGuard) CompleteCommit() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// Halt ends a sequential call in the Halted state, which is final.
func (g *LifecycleGuard) Halt() {
	g.state.Store(uint32(stateHalted))
	g.seqMu.Unlock()
}

// IsHalted reports whether the guard reached the Halted state.
func (g *LifecycleGuard) IsHalted() bool {
	return lifecycleState(g.state.Load()) == stateHalted
}

// CheckConcurrent panics unless the handshake completed.
func (g *LifecycleGuard) CheckConcurrent() {
	if !g.handshakeDone.Load() {
		panic("ledger: concurrent call before Handshake completed")
	}
}

// IsReady reports whether the guard is in the Ready state.
func (g *LifecycleGuard) IsReady() bool {
	return lifecycleState(g.state.Load()) == stateReady
}
