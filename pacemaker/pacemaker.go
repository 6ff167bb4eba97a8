// Package pacemaker declares the consensus liveness-driver contract
// the core consumes: who proposes, when, and whether a quorum
// certificate has been reached. The voting protocol, QC aggregation,
// and signing behind this interface are explicitly out of the core's
// scope.
package pacemaker

import "dexbft/types"

// Pacemaker is the abstract liveness driver the RSM's top-level loop
// queries every tick. Grounded on the teacher's slot.SlotClock,
// generalized from a fixed round timer to the abstract
// leader-signal/QC-signal contract spec.md §6 names.
type Pacemaker interface {
	// IsSelfProposer reports whether this replica is the proposer for
	// the current round.
	IsSelfProposer() bool

	// Propose hands a built proposal to the pacemaker for broadcast.
	Propose(block *types.Block)

	// AwaitQC blocks the proposer thread until a quorum certificate is
	// reached or a pacemaker-owned timeout fires.
	AwaitQC() error

	// ProposalBufferEmpty reports whether the pipeline has drained.
	ProposalBufferEmpty() bool

	// LeaderTerminated reports whether the current leader has signaled
	// shutdown.
	LeaderTerminated() bool

	// StopProposals tells the pacemaker to stop driving new rounds.
	StopProposals()
}
