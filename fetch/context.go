// Package fetch implements the Block Fetch Manager: request
// coalescing across peer replicas for missing ancestor blocks, with
// per-replica dispatch queues and deferred network events released
// exactly once on delivery.
package fetch

import (
	"sync"
	"sync/atomic"

	"dexbft/types"
)

// RequestContext tracks one in-flight ancestor fetch. There is at
// most one live RequestContext per hash in the manager; per-replica
// queues reference it via a shared pointer and garbage-collect their
// reference lazily once it's been delivered.
//
// Grounded on
// _examples/original_source/hotstuff/block_storage/block_fetch_manager.cc's
// RequestContext, translated from std::memory_order_relaxed atomics to
// Go's sync/atomic.
type RequestContext struct {
	requestedHash types.Hash

	received int32 // atomic bool; 0 = not received, 1 = received

	eventsMu        sync.Mutex
	dependentEvents []types.NetworkEvent

	requestedFromMu sync.Mutex
	requestedFrom   map[types.ReplicaID]bool
}

func newRequestContext(hash types.Hash) *RequestContext {
	return &RequestContext{
		requestedHash: hash,
		requestedFrom: make(map[types.ReplicaID]bool),
	}
}

// RequestedHash is the block hash this context is waiting on.
func (c *RequestContext) RequestedHash() types.Hash {
	return c.requestedHash
}

// IsReceived loads the received flag with acquire semantics: if true,
// every event appended before the corresponding MarkReceived is
// visible to the caller.
func (c *RequestContext) IsReceived() bool {
	return atomic.LoadInt32(&c.received) == 1
}

// MarkReceived stores the received flag with release semantics.
func (c *RequestContext) MarkReceived() {
	atomic.StoreInt32(&c.received, 1)
}

// AddNetworkEvents appends events to the dependent list. Append-only
// before delivery; the manager calls this outside its own lock, so
// this method guards the slice itself, and NetworkEvents reads it
// under the same guard.
func (c *RequestContext) AddNetworkEvents(events []types.NetworkEvent) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.dependentEvents = append(c.dependentEvents, events...)
}

// NetworkEvents returns the dependent events accumulated so far, in
// append order. Called once, after delivery.
func (c *RequestContext) NetworkEvents() []types.NetworkEvent {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	out := make([]types.NetworkEvent, len(c.dependentEvents))
	copy(out, c.dependentEvents)
	return out
}

// WasRequestedFrom reports whether this context has already been
// dispatched to replica id.
func (c *RequestContext) WasRequestedFrom(id types.ReplicaID) bool {
	c.requestedFromMu.Lock()
	defer c.requestedFromMu.Unlock()
	return c.requestedFrom[id]
}

// MarkRequestedFrom records that this context has been dispatched to
// replica id.
func (c *RequestContext) MarkRequestedFrom(id types.ReplicaID) {
	c.requestedFromMu.Lock()
	defer c.requestedFromMu.Unlock()
	c.requestedFrom[id] = true
}
