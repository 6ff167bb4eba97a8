package replica

import (
	"time"

	"github.com/pkg/errors"

	"dexbft/types"
)

// Run drives the top-level propose/wait loop until the pacemaker's
// proposal buffer drains, or the leader terminates unexpectedly before
// this replica ever signalled its own completion. The buffer-empty
// check is unconditional, exactly as spec.md §4.E's pseudocode has it:
// it is the generic termination path every replica takes, leader or
// validator, once its pipeline empties, regardless of whether this
// replica's own engine ever independently latched ExperimentDone.
// LeaderTerminated is the secondary, best-effort signal for a replica
// that never gets a buffer-empty of its own. Grounded on
// consensus.ConsensusState's enterNewSlot -> enterApply -> enterPropose
// event chain, collapsed here into the explicit loop spec.md §4.E
// describes.
func (r *Replica) Run(stop <-chan struct{}) {
	if !r.initialized {
		panic("replica: Run called before InitClean/InitFromDisk")
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		r.drainEvents()

		if r.pacemaker.IsSelfProposer() {
			if err := r.proposeRound(); err != nil {
				r.logger.Error("replica: propose round failed", "err", err)
			}
		} else {
			time.Sleep(r.tick)
		}

		if r.engine.ExperimentDone() && !r.selfSignalledEnd {
			r.experimentDone = true
			r.selfSignalledEnd = true
			r.pacemaker.StopProposals()
		}

		if r.pacemaker.ProposalBufferEmpty() {
			return
		}

		if r.pacemaker.LeaderTerminated() && !r.selfSignalledEnd {
			r.logger.Info("replica: leader terminated without experiment completion")
			return
		}
	}
}

// proposeRound asks the engine for the next block, records its parent
// commitment in the MBHM, and hands the result to the pacemaker for
// broadcast. Serialized by operationMtx: only one proposal is ever
// under construction at a time.
func (r *Replica) proposeRound() error {
	r.operationMtx.Lock()
	defer r.operationMtx.Unlock()

	r.proposerMode = true
	r.engine.EnterProposerMode()
	block, err := r.engine.Propose()
	r.proposerMode = false
	if err != nil {
		return errors.Wrap(err, "engine propose")
	}

	r.mbhm.InsertForProduction(block.Height, block.ParentHash)
	r.metrics.ProposeCount.Inc(1)

	r.confirmationMtx.Lock()
	r.proposalBaseBlock = types.HashedBlock{Height: block.Height, Hash: block.Hash()}
	r.confirmationMtx.Unlock()

	r.pacemaker.Propose(block)
	return r.pacemaker.AwaitQC()
}

// enqueueEvent schedules ev for replay on the loop's own goroutine. A
// full queue drops the event and logs loudly rather than blocking the
// caller, which is typically the fetch manager's delivery path.
func (r *Replica) enqueueEvent(ev types.NetworkEvent) {
	select {
	case r.events <- ev:
	default:
		r.logger.Error("replica: event queue full, dropping event", "kind", ev.Kind())
	}
}

// drainEvents runs every event currently queued, without blocking for
// ones that arrive afterward.
func (r *Replica) drainEvents() {
	for {
		select {
		case ev := <-r.events:
			if fe, ok := ev.(types.FuncEvent); ok {
				fe.Run()
			}
		default:
			return
		}
	}
}
