// Package replica implements the Replica State Machine: the
// propose/validate/commit orchestration loop, its interaction with the
// consensus pacemaker, rewind-to-committed-height, and startup
// reconciliation with persisted state.
package replica

import (
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"dexbft/config"
	"dexbft/engine"
	"dexbft/fetch"
	"dexbft/headermap"
	"dexbft/metrics"
	"dexbft/pacemaker"
	"dexbft/store"
	"dexbft/types"
)

// PersistBatch is the number of commits between MBHM flushes to the
// DOS, per spec.md §4. A smaller batch trades write amplification for
// a smaller durability gap after a crash.
const PersistBatch = 50

// DefaultTick is how long the loop sleeps on a non-proposer turn.
const DefaultTick = 50 * time.Millisecond

// eventQueueSize bounds the backlog of fetch-dependent events waiting
// to be retried. Sized generously relative to GCFreq in the fetch
// package; a replica that overflows this is falling behind its peers
// by more than a fetch manager's garbage-collection cycle.
const eventQueueSize = 4096

// Replica is the Replica State Machine. Grounded on the teacher's
// consensus.ConsensusState: the same mutex discipline
// (confirmationMtx/operationMtx, matching spec.md §5's naming), the
// same engine-driven propose/apply shape, generalized from
// ConsensusState's slot/vote-set bookkeeping to the spec's abstract
// leader-signal/QC-signal contract.
type Replica struct {
	cfg       *config.ReplicaConfig
	engine    engine.Engine
	pacemaker pacemaker.Pacemaker
	bfm       *fetch.BlockFetchManager
	mbhm      *headermap.BlockHeaderHashMap
	dos       store.Store

	logger  log.Logger
	tick    time.Duration
	metrics *metrics.Set

	events chan types.NetworkEvent

	// operationMtx serializes producer-side calls (proposing a block
	// and its MBHM production insert).
	operationMtx sync.Mutex
	// confirmationMtx serializes validation-path calls (tentative
	// insert, finalize, rollback) so they are never issued
	// concurrently, per spec.md §5.
	confirmationMtx sync.Mutex

	proposalBaseBlock  types.HashedBlock
	lastCommittedBlock types.HashedBlock
	proposerMode       bool
	experimentDone     bool
	selfSignalledEnd   bool

	initialized  bool
	commitsSince types.BlockNumber

	measurementsPath string
}

// New constructs an uninitialized Replica. Exactly one of InitClean or
// InitFromDisk must be called before Run or any validation-path call.
func New(
	cfg *config.ReplicaConfig,
	eng engine.Engine,
	pm pacemaker.Pacemaker,
	bfm *fetch.BlockFetchManager,
	mbhm *headermap.BlockHeaderHashMap,
	dos store.Store,
	logger log.Logger,
) *Replica {
	return &Replica{
		cfg:       cfg,
		engine:    eng,
		pacemaker: pm,
		bfm:       bfm,
		mbhm:      mbhm,
		dos:       dos,
		logger:    logger,
		tick:      DefaultTick,
		metrics:   metrics.NewSet(),
		events:    make(chan types.NetworkEvent, eventQueueSize),
	}
}

// SetTick overrides the non-proposer sleep interval; mainly useful in
// tests that want a tight loop.
func (r *Replica) SetTick(d time.Duration) {
	r.tick = d
}

// Metrics exposes the replica's instrument set, for a node's metrics
// HTTP endpoint to read.
func (r *Replica) Metrics() *metrics.Set {
	return r.metrics
}

// SetMeasurementsPath sets the path engine.WriteMeasurements is called
// with on shutdown.
func (r *Replica) SetMeasurementsPath(path string) {
	r.measurementsPath = path
}

// LastCommittedBlock returns the most recent durably-committed block.
func (r *Replica) LastCommittedBlock() types.HashedBlock {
	r.confirmationMtx.Lock()
	defer r.confirmationMtx.Unlock()
	return r.lastCommittedBlock
}

// ExperimentDone reports the one-shot latch, observable to peers.
func (r *Replica) ExperimentDone() bool {
	return r.experimentDone
}

// Close flushes measurements and syncs the DOS, per spec.md §3's
// destruction contract.
func (r *Replica) Close() error {
	if r.measurementsPath != "" {
		if err := r.engine.WriteMeasurements(r.measurementsPath); err != nil {
			r.logger.Error("replica: write measurements failed", "err", err)
		}
	}
	return r.dos.Sync()
}
