package fetch

import (
	"sync"

	"github.com/tendermint/tendermint/libs/log"

	"dexbft/config"
	"dexbft/metrics"
	"dexbft/types"
)

// BlockFetchManager routes fetch requests to replicas and, on
// delivery, releases the network events that depended on the fetch.
// Grounded on the original's BlockFetchManager::add_fetch_request and
// ::deliver_block.
//
// outstanding is the canonical home of each RequestContext; it is
// guarded by mu, since requests and deliveries can arrive on different
// goroutines. Queues hold their own reference to the same context and
// garbage-collect it lazily.
type BlockFetchManager struct {
	cfg *config.ReplicaConfig

	mu          sync.Mutex
	queues      map[types.ReplicaID]*ReplicaFetchQueue
	outstanding map[types.Hash]*RequestContext

	logger  log.Logger
	metrics *metrics.Set
}

// NewBlockFetchManager builds a manager bound to the given replica
// configuration, for validity checks in AddFetchRequest.
func NewBlockFetchManager(cfg *config.ReplicaConfig, logger log.Logger) *BlockFetchManager {
	return &BlockFetchManager{
		cfg:         cfg,
		queues:      make(map[types.ReplicaID]*ReplicaFetchQueue),
		outstanding: make(map[types.Hash]*RequestContext),
		logger:      logger,
		metrics:     metrics.NewSet(),
	}
}

// Metrics exposes the manager's instrument set.
func (m *BlockFetchManager) Metrics() *metrics.Set {
	return m.metrics
}

// AddReplica registers a dispatch queue for a peer. Idempotent
// rejection of duplicates is left to the caller, per spec.md §4.D.
func (m *BlockFetchManager) AddReplica(id types.ReplicaID, worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[id] = NewReplicaFetchQueue(id, worker)
}

// AddFetchRequest asks the manager to fetch requestedBlock from
// targetReplica, releasing events once it arrives.
//
// spec.md §9 flags the original guard here
// (`if (config.is_valid_replica(target)) return;`) as an inverted
// predicate. This implementation proceeds only when targetReplica IS a
// valid peer — the corrected intent — and drops the request otherwise.
func (m *BlockFetchManager) AddFetchRequest(requestedBlock types.Hash, targetReplica types.ReplicaID, events []types.NetworkEvent) {
	if !m.cfg.IsValidReplica(targetReplica) {
		if m.logger != nil {
			m.logger.Info("fetch: dropping request to unknown replica", "replica", targetReplica, "hash", requestedBlock)
		}
		return
	}

	m.mu.Lock()
	ctx, exists := m.outstanding[requestedBlock]
	if !exists {
		ctx = newRequestContext(requestedBlock)
		m.outstanding[requestedBlock] = ctx
	}
	queue := m.queues[targetReplica]
	m.mu.Unlock()

	if queue == nil {
		if m.logger != nil {
			m.logger.Error("fetch: no queue for valid replica", "replica", targetReplica)
		}
		return
	}

	if !ctx.WasRequestedFrom(targetReplica) {
		queue.AddRequest(ctx)
		ctx.MarkRequestedFrom(targetReplica)
		m.metrics.FetchRequests.Inc(1)
	}

	ctx.AddNetworkEvents(events)

	m.mu.Lock()
	m.metrics.FetchOutstanding.Update(int64(len(m.outstanding)))
	m.mu.Unlock()
}

// DeliverBlock marks the context for block's hash received, erases it
// from outstanding, and returns its dependent events for the caller to
// re-enqueue. A delivery for an unknown hash, or a duplicate delivery
// of an already-erased hash, is a no-op that returns an empty slice.
func (m *BlockFetchManager) DeliverBlock(block *types.Block) []types.NetworkEvent {
	hash := block.Hash()

	m.mu.Lock()
	ctx, exists := m.outstanding[hash]
	if exists {
		delete(m.outstanding, hash)
	}
	m.mu.Unlock()

	if !exists {
		if m.logger != nil {
			m.logger.Info("fetch: delivery for unknown or already-delivered hash", "hash", hash)
		}
		return nil
	}

	ctx.MarkReceived()
	m.metrics.FetchDeliveries.Inc(1)
	m.mu.Lock()
	m.metrics.FetchOutstanding.Update(int64(len(m.outstanding)))
	m.mu.Unlock()
	return ctx.NetworkEvents()
}
