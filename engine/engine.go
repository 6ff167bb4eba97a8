// Package engine declares the Execution Engine contract the core
// consumes but never implements: order-book matching and auction price
// discovery are the engine's business, not the core's.
package engine

import "dexbft/types"

// Engine is the abstract execution engine the RSM drives. Grounded on
// the teacher's state.BlockExecutor interface, generalized from its
// SmallBank-specific CreateProposal/ApplyBlock methods to the opaque
// propose/validate/commit/rewind contract spec.md §6 names.
type Engine interface {
	// EnterProposerMode gates the engine's speculative state; called
	// only while building a proposal.
	EnterProposerMode()

	// Propose returns the next block to propose. Deterministic
	// relative to the engine's local state.
	Propose() (*types.Block, error)

	// Validate checks a candidate block. Pure of side effects visible
	// outside the engine until Commit.
	Validate(block *types.Block) error

	// Commit finalizes execution up to height.
	Commit(height types.BlockNumber) error

	// RewindTo discards any speculative/committed state above height.
	RewindTo(height types.BlockNumber) error

	// ExperimentDone reports whether the engine has latched its
	// one-shot completion signal.
	ExperimentDone() bool

	// WriteMeasurements flushes accumulated measurements to path.
	WriteMeasurements(path string) error
}
