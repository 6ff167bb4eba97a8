package fetch

import (
	"container/list"
	"sync"

	"dexbft/types"
)

// GCFreq is the addition count a queue must exceed before it runs a
// lazy garbage-collection pass over its outstanding contexts, matching
// the original's GC_FREQ threshold.
const GCFreq = 64

// ReplicaFetchQueue is the per-peer dispatch queue the BFM forwards
// fetch requests through. Grounded on the original's
// ReplicaFetchQueue::add_request/do_gc: its forward_list splice-out of
// received contexts becomes a container/list Remove here.
type ReplicaFetchQueue struct {
	id     types.ReplicaID
	worker Worker

	mu         sync.Mutex
	contexts   *list.List // of *RequestContext
	numAdded   int
}

// NewReplicaFetchQueue builds a queue for replica id, dispatching
// through worker.
func NewReplicaFetchQueue(id types.ReplicaID, worker Worker) *ReplicaFetchQueue {
	return &ReplicaFetchQueue{
		id:       id,
		worker:   worker,
		contexts: list.New(),
	}
}

// AddRequest pushes ctx onto the queue, asks the worker to dispatch a
// fetch for its hash, and runs a lazy GC pass once the addition count
// exceeds GCFreq (every GCFreq+1 additions).
func (q *ReplicaFetchQueue) AddRequest(ctx *RequestContext) {
	q.mu.Lock()
	q.contexts.PushFront(ctx)
	q.numAdded++
	runGC := q.numAdded > GCFreq
	if runGC {
		q.numAdded = 0
	}
	q.mu.Unlock()

	q.worker.AddRequest(ctx.RequestedHash())

	if runGC {
		q.DoGC()
	}
}

// DoGC splices out every context whose IsReceived is true. O(n) scan,
// amortized O(1) per request thanks to the GCFreq threshold.
func (q *ReplicaFetchQueue) DoGC() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for e := q.contexts.Front(); e != nil; {
		next := e.Next()
		ctx := e.Value.(*RequestContext)
		if ctx.IsReceived() {
			q.contexts.Remove(e)
		}
		e = next
	}
}

// Len reports the number of outstanding contexts currently tracked
// (including ones only GC will drop).
func (q *ReplicaFetchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.contexts.Len()
}
