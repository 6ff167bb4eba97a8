package types

// ReplicaID identifies a peer replica slot in the consensus group. The
// BFM dispatches fetch requests to replicas by this ID; it is the
// logical counterpart of the teacher's p2p.ID string identity.
type ReplicaID uint32

// ReplicaInfo is the immutable identity of one peer: its network
// address and its consensus public key. The core only reads these
// fields; it never interprets the key material (signing is the
// pacemaker collaborator's job).
type ReplicaInfo struct {
	ID        ReplicaID
	Address   string
	PublicKey []byte
}

// NetworkEvent is a deferred consensus action the RSM re-enqueues once
// its requested ancestor block arrives. The core never interprets an
// event's payload; it only buffers and releases it, in order, exactly
// once.
type NetworkEvent interface {
	// Kind names the event for logging; it carries no semantics the
	// core depends on.
	Kind() string
}

// FuncEvent adapts a plain closure to NetworkEvent, letting RSM
// callers build dependent events inline instead of hand-rolling a
// type per callback.
type FuncEvent struct {
	Name string
	Run  func()
}

func (e FuncEvent) Kind() string { return e.Name }
