package replica

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/config"
	"dexbft/engine"
	"dexbft/fetch"
	"dexbft/headermap"
	"dexbft/pacemaker"
	"dexbft/store"
	"dexbft/types"
)

func newTestReplica(t *testing.T) (*Replica, *engine.MockEngine, *pacemaker.MockPacemaker, *fetch.BlockFetchManager) {
	t.Helper()

	logger := log.TestingLogger()
	cfg := config.New(1)
	cfg.AddReplica(types.ReplicaInfo{ID: 1})
	cfg.AddReplica(types.ReplicaInfo{ID: 2})

	dos := store.NewMemStore(logger)
	mbhm := headermap.New(dos, logger)
	bfm := fetch.NewBlockFetchManager(cfg, logger)
	bfm.AddReplica(2, fetch.NewChanWorker(8))

	eng := engine.NewMockEngine(types.ZeroHash)
	pm := pacemaker.NewMockPacemaker()

	r := New(cfg, eng, pm, bfm, mbhm, dos, logger)
	r.SetTick(time.Millisecond)
	return r, eng, pm, bfm
}

func TestInitCleanSetsGenesis(t *testing.T) {
	r, _, _, _ := newTestReplica(t)
	r.InitClean()

	require.True(t, r.initialized)
	require.Equal(t, types.BlockNumber(0), r.LastCommittedBlock().Height)
	require.True(t, r.LastCommittedBlock().Hash.IsZero())
}

func TestProposeRoundInsertsProduction(t *testing.T) {
	r, eng, pm, _ := newTestReplica(t)
	r.InitClean()

	require.NoError(t, r.proposeRound())
	require.Len(t, pm.Proposed, 1)
	require.Equal(t, types.BlockNumber(1), pm.Proposed[0].Height)
	require.Equal(t, types.BlockNumber(1), r.mbhm.LastCommittedBlockNumber())
	require.Equal(t, types.BlockNumber(0), eng.Committed())
}

func TestHandleProposalAcceptsDirectChild(t *testing.T) {
	r, _, _, _ := newTestReplica(t)
	r.InitClean()

	block := types.NewBlock(1, types.ZeroHash, nil)
	vote, err := r.HandleProposal(block, 2)
	require.NoError(t, err)
	require.True(t, vote.Approve)
	require.Equal(t, block.Height, vote.Height)
	require.Equal(t, types.ReplicaID(1), vote.Voter)
}

func TestHandleProposalDefersOnMissingAncestor(t *testing.T) {
	r, _, _, bfm := newTestReplica(t)
	r.InitClean()

	parent := types.NewBlock(4, types.SumHash([]byte("grandparent")), nil)
	orphan := types.NewBlock(5, parent.Hash(), nil)
	_, err := r.HandleProposal(orphan, 2)
	require.ErrorIs(t, err, ErrAwaitingAncestor)

	released := bfm.DeliverBlock(parent)
	require.Len(t, released, 1)

	r.enqueueEvent(released[0])
	r.drainEvents()
}

func TestHandleCommitPersistsEveryBatch(t *testing.T) {
	r, eng, _, _ := newTestReplica(t)
	r.InitClean()

	for h := types.BlockNumber(1); h <= PersistBatch; h++ {
		require.NoError(t, r.proposeRound())
		require.NoError(t, r.HandleCommit(types.HashedBlock{Height: h}))
	}

	require.Equal(t, types.BlockNumber(PersistBatch), eng.Committed())
	require.Equal(t, uint64(PersistBatch), r.mbhm.PersistedRound())
	require.Equal(t, types.BlockNumber(0), r.commitsSince)
}

func TestHandleRewindRollsBackMapAndEngine(t *testing.T) {
	r, eng, _, _ := newTestReplica(t)
	r.InitClean()

	for h := types.BlockNumber(1); h <= 3; h++ {
		require.NoError(t, r.proposeRound())
		require.NoError(t, r.HandleCommit(types.HashedBlock{Height: h}))
	}

	require.NoError(t, r.HandleRewind(2))
	require.Equal(t, types.BlockNumber(1), r.mbhm.LastCommittedBlockNumber())
	require.Equal(t, types.BlockNumber(1), eng.Committed())
	require.Equal(t, types.BlockNumber(1), r.LastCommittedBlock().Height)
}

func TestRunStopsWhenExperimentDoneAndBufferDrained(t *testing.T) {
	r, eng, pm, _ := newTestReplica(t)
	r.InitClean()
	pm.SetSelfProposer(false)
	pm.SetBufferEmpty(true)
	eng.SetDone()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r.Run(stop)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after experiment completion")
	}
	require.True(t, pm.Stopped())
}

func TestRunLeavesNoGoroutinesAfterStop(t *testing.T) {
	// Check that Run's loop goroutine actually exits once stop closes,
	// the same leak check the teacher runs on its reactor/mempool
	// broadcast loops.
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	r, _, pm, _ := newTestReplica(t)
	r.InitClean()
	pm.SetSelfProposer(false)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r.Run(stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop was closed")
	}
}
