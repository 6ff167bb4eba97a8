package engine

import (
	"sync"

	"dexbft/types"
)

// MockEngine is a deterministic, in-memory Engine for replica package
// tests. Grounded on the mempool package's mock/ pattern of a
// hand-written test double living beside the real interface.
type MockEngine struct {
	mu sync.Mutex

	nextHeight   types.BlockNumber
	lastParent   types.Hash
	proposerMode bool
	committed    types.BlockNumber
	done         bool

	// ValidateErr, if set, is returned by Validate for every call.
	ValidateErr error

	validateCalls int
}

// NewMockEngine builds an engine that will propose blocks starting at
// height 1 on top of parent.
func NewMockEngine(parent types.Hash) *MockEngine {
	return &MockEngine{nextHeight: 1, lastParent: parent}
}

func (e *MockEngine) EnterProposerMode() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proposerMode = true
}

func (e *MockEngine) Propose() (*types.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := types.NewBlock(e.nextHeight, e.lastParent, nil)
	e.lastParent = b.Hash()
	e.nextHeight++
	e.proposerMode = false
	return b, nil
}

func (e *MockEngine) Validate(block *types.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validateCalls++
	return e.ValidateErr
}

// ValidateCalls reports how many times Validate has been called, for
// tests asserting that a proposal actually reached the engine.
func (e *MockEngine) ValidateCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateCalls
}

func (e *MockEngine) Commit(height types.BlockNumber) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.committed = height
	return nil
}

func (e *MockEngine) RewindTo(height types.BlockNumber) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.committed = height
	e.nextHeight = height + 1
	return nil
}

func (e *MockEngine) ExperimentDone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// SetDone latches the one-shot experiment-completion signal, for
// tests driving the RSM's shutdown path.
func (e *MockEngine) SetDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.done = true
}

func (e *MockEngine) WriteMeasurements(path string) error {
	return nil
}

// Committed reports the last height Commit was called with.
func (e *MockEngine) Committed() types.BlockNumber {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}
