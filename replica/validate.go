package replica

import (
	"fmt"
	"time"

	"dexbft/types"
)

// ErrAwaitingAncestor is returned by HandleProposal when the
// candidate's parent is not yet the map's committed frontier: the
// caller has issued a fetch request and should expect HandleProposal
// to be invoked again, via the re-enqueued event, once the ancestor
// arrives.
var ErrAwaitingAncestor = fmt.Errorf("awaiting ancestor block")

// HandleProposal is the validation-path callback: given a candidate
// block from proposer, it tentatively records the parent commitment,
// asks the engine to validate, and emits a vote on success. Grounded
// on consensus.ConsensusState's defaultSetProposal (parent check,
// vote-or-reject decision), generalized to call out to the fetch
// manager when the parent is missing instead of assuming same-block
// delivery.
func (r *Replica) HandleProposal(b *types.Block, proposer types.ReplicaID) (*types.Vote, error) {
	r.confirmationMtx.Lock()
	defer r.confirmationMtx.Unlock()

	if !r.initialized {
		panic("replica: HandleProposal called before InitClean/InitFromDisk")
	}

	parentHeight := b.Height - 1
	if !r.mbhm.TentativeInsertForValidation(parentHeight, b.ParentHash) {
		retry := types.FuncEvent{
			Name: "retry-proposal",
			Run: func() {
				if _, err := r.HandleProposal(b, proposer); err != nil {
					r.logger.Info("replica: deferred proposal retry failed", "height", b.Height, "err", err)
				}
			},
		}
		r.bfm.AddFetchRequest(b.ParentHash, proposer, []types.NetworkEvent{retry})
		return nil, ErrAwaitingAncestor
	}

	if err := r.engine.Validate(b); err != nil {
		r.mbhm.RollbackValidation()
		r.metrics.ValidateFailures.Inc(1)
		r.metrics.RollbackCount.Inc(1)
		return nil, err
	}

	return &types.Vote{
		Height:    b.Height,
		BlockHash: b.Hash(),
		Voter:     r.cfg.Self,
		Approve:   true,
	}, nil
}

// HandleCommit finalizes the validation entry at hb.Height, drives the
// engine's own commit, and flushes the MBHM to the DOS every
// PersistBatch commits.
func (r *Replica) HandleCommit(hb types.HashedBlock) error {
	start := time.Now()
	r.confirmationMtx.Lock()
	defer r.confirmationMtx.Unlock()

	r.mbhm.FinalizeValidation(hb.Height)
	if err := r.engine.Commit(hb.Height); err != nil {
		return err
	}

	r.lastCommittedBlock = hb
	r.commitsSince++
	r.metrics.CommitHeight.Update(int64(hb.Height))
	r.metrics.CommitLatency.UpdateSince(start)
	if r.commitsSince >= PersistBatch {
		if err := r.mbhm.Persist(hb.Height); err != nil {
			return err
		}
		r.commitsSince = 0
		r.metrics.PersistCount.Inc(1)
	}
	return nil
}

// HandleRewind rolls the MBHM and the engine back to the pacemaker's
// demanded height c, per spec.md §4.B's RollbackToCommittedRound
// contract (c is the first height discarded).
func (r *Replica) HandleRewind(c types.BlockNumber) error {
	r.confirmationMtx.Lock()
	defer r.confirmationMtx.Unlock()

	if err := r.mbhm.RollbackToCommittedRound(c); err != nil {
		return err
	}

	target := r.mbhm.LastCommittedBlockNumber()
	if err := r.engine.RewindTo(target); err != nil {
		return err
	}

	hash, _ := r.mbhm.Lookup(target)
	r.lastCommittedBlock = types.HashedBlock{Height: target, Hash: hash}
	r.proposalBaseBlock = r.lastCommittedBlock
	r.commitsSince = 0
	return nil
}

// OnBlockDelivered notifies the RSM that block has arrived over the
// network, releasing and re-enqueuing whatever proposals were waiting
// on it.
func (r *Replica) OnBlockDelivered(block *types.Block) {
	for _, ev := range r.bfm.DeliverBlock(block) {
		r.enqueueEvent(ev)
	}
}
