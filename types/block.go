package types

import "fmt"

// Block is the opaque transaction batch the core commits in sequence.
// The core never inspects Txs; order-book matching and auction price
// discovery belong to the execution engine collaborator.
type Block struct {
	Height     BlockNumber
	ParentHash Hash
	Txs        [][]byte

	hash *Hash
}

// Hash returns the block's header hash, computing and caching it on
// first use.
func (b *Block) Hash() Hash {
	if b.hash != nil {
		return *b.hash
	}
	h := SumHash(b.signBytes())
	b.hash = &h
	return h
}

func (b *Block) signBytes() []byte {
	buf := make([]byte, 0, KeyLen+HashSize)
	key := b.Height.Key()
	buf = append(buf, key[:]...)
	buf = append(buf, b.ParentHash[:]...)
	for _, tx := range b.Txs {
		buf = append(buf, tx...)
	}
	return buf
}

func (b *Block) String() string {
	return fmt.Sprintf("Block{height=%d parent=%s hash=%s txs=%d}",
		b.Height, b.ParentHash, b.Hash(), len(b.Txs))
}

// NewBlock constructs a block at height on top of parent, carrying txs
// as an opaque batch.
func NewBlock(height BlockNumber, parent Hash, txs [][]byte) *Block {
	return &Block{Height: height, ParentHash: parent, Txs: txs}
}

// Proposal pairs a Block with the leader's signal for it. The core
// never signs proposals itself; that belongs to the consensus-voting
// collaborator.
type Proposal struct {
	Block    *Block
	Proposer ReplicaID
}

// Vote is the opaque artifact the RSM emits after validating a
// proposal. Aggregation into a quorum certificate happens entirely
// outside the core.
type Vote struct {
	Height    BlockNumber
	BlockHash Hash
	Voter     ReplicaID
	Approve   bool
}
