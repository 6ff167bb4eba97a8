package node

import (
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/p2p"

	"dexbft/replica"
	"dexbft/types"
)

// Channel IDs for the two gossip topics this core needs. Grounded on
// the teacher's consensus.Reactor channel layout, trimmed to the two
// message kinds the RSM actually exchanges: proposals and votes.
const (
	ProposalChannel = byte(0x21)
	VoteChannel     = byte(0x22)

	maxMsgSize = 1 << 20
)

// Reactor gossips Proposal and Vote messages between replicas and
// feeds received proposals into the Replica State Machine, re-
// broadcasting the vote it produces. Grounded on the teacher's
// consensus.Reactor: same BaseReactor embedding, same tmjson wire
// encoding (no per-peer state is kept), generalized from its msgInfo/peerMsgQueue
// indirection straight into synchronous RSM calls since this core has
// no separate consensus goroutine to hand off to.
type Reactor struct {
	p2p.BaseReactor

	self types.ReplicaID
	r    *replica.Replica
}

// NewReactor builds a reactor that drives r on behalf of replica self.
func NewReactor(self types.ReplicaID, r *replica.Replica) *Reactor {
	reactor := &Reactor{self: self, r: r}
	reactor.BaseReactor = *p2p.NewBaseReactor("Replica", reactor)
	return reactor
}

// GetChannels implements p2p.Reactor.
func (reactor *Reactor) GetChannels() []*p2p.ChannelDescriptor {
	return []*p2p.ChannelDescriptor{
		{ID: ProposalChannel, Priority: 10, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize, RecvMessageCapacity: maxMsgSize},
		{ID: VoteChannel, Priority: 10, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize, RecvMessageCapacity: maxMsgSize},
	}
}

// AddPeer implements p2p.Reactor. Nothing to initialize per-peer; the
// switch's own peer set is the only bookkeeping a broadcast needs.
func (reactor *Reactor) AddPeer(peer p2p.Peer) {
	reactor.Logger.Info("peer joined", "peer", peer.ID())
}

// RemovePeer implements p2p.Reactor.
func (reactor *Reactor) RemovePeer(peer p2p.Peer, reason interface{}) {
	reactor.Logger.Info("peer left", "peer", peer.ID(), "reason", reason)
}

// Receive implements p2p.Reactor: it decodes the incoming message and
// dispatches to the RSM, broadcasting any vote the RSM produces.
func (reactor *Reactor) Receive(chID byte, src p2p.Peer, msgBytes []byte) {
	switch chID {
	case ProposalChannel:
		var p types.Proposal
		if err := tmjson.Unmarshal(msgBytes, &p); err != nil {
			reactor.Logger.Error("failed to unmarshal proposal", "err", err, "src", src.ID())
			return
		}
		vote, err := reactor.r.HandleProposal(p.Block, p.Proposer)
		if err != nil {
			if err == replica.ErrAwaitingAncestor {
				reactor.Logger.Debug("proposal deferred pending ancestor fetch", "height", p.Block.Height)
				return
			}
			reactor.Logger.Error("failed to handle proposal", "err", err, "height", p.Block.Height)
			return
		}
		reactor.BroadcastVote(vote)

	case VoteChannel:
		var v types.Vote
		if err := tmjson.Unmarshal(msgBytes, &v); err != nil {
			reactor.Logger.Error("failed to unmarshal vote", "err", err, "src", src.ID())
			return
		}
		reactor.Logger.Debug("received vote", "height", v.Height, "voter", v.Voter, "approve", v.Approve)

	default:
		reactor.Logger.Error("unknown channel", "chID", chID, "src", src.ID())
	}
}

// BroadcastProposal gossips a freshly produced proposal to every
// connected peer.
func (reactor *Reactor) BroadcastProposal(p *types.Proposal) {
	bz, err := tmjson.Marshal(p)
	if err != nil {
		reactor.Logger.Error("failed to marshal proposal", "err", err)
		return
	}
	reactor.Switch.Broadcast(ProposalChannel, bz)
}

// BroadcastVote gossips a vote the RSM produced in response to a
// proposal.
func (reactor *Reactor) BroadcastVote(v *types.Vote) {
	if v == nil {
		return
	}
	bz, err := tmjson.Marshal(v)
	if err != nil {
		reactor.Logger.Error("failed to marshal vote", "err", err)
		return
	}
	reactor.Switch.Broadcast(VoteChannel, bz)
}
