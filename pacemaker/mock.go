package pacemaker

import (
	"sync"

	"dexbft/types"
)

// MockPacemaker is a scriptable Pacemaker for replica package tests.
// Grounded on the slot package's mock/ pattern in the teacher repo.
type MockPacemaker struct {
	mu sync.Mutex

	selfProposer     bool
	bufferEmpty      bool
	leaderTerminated bool
	stopped          bool

	Proposed []*types.Block
}

// NewMockPacemaker builds a pacemaker that starts with a non-empty
// proposal buffer and no leader termination signaled, so a test's
// Run loop keeps iterating until it explicitly calls SetBufferEmpty.
func NewMockPacemaker() *MockPacemaker {
	return &MockPacemaker{bufferEmpty: false}
}

func (p *MockPacemaker) SetSelfProposer(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selfProposer = v
}

func (p *MockPacemaker) SetBufferEmpty(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bufferEmpty = v
}

func (p *MockPacemaker) SetLeaderTerminated(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaderTerminated = v
}

func (p *MockPacemaker) IsSelfProposer() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selfProposer
}

func (p *MockPacemaker) Propose(block *types.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Proposed = append(p.Proposed, block)
}

func (p *MockPacemaker) AwaitQC() error {
	return nil
}

func (p *MockPacemaker) ProposalBufferEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferEmpty
}

func (p *MockPacemaker) LeaderTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaderTerminated
}

func (p *MockPacemaker) StopProposals() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

// Stopped reports whether StopProposals has been called.
func (p *MockPacemaker) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
