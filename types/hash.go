package types

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/tendermint/tendermint/crypto/tmhash"
)

// HashSize is the width of a block header hash, in bytes.
const HashSize = tmhash.Size

// Hash is a fixed-width opaque block identity. The zero value is the
// zero hash used to point at the genesis sentinel.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, the required "previous hash" of the
// genesis block.
var ZeroHash = Hash{}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// HashFromBytes copies b into a Hash. b must be exactly HashSize long.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != HashSize {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// SumHash hashes bz with the same digest the rest of the core uses for
// header commitments.
func SumHash(bz []byte) Hash {
	var h Hash
	copy(h[:], tmhash.Sum(bz))
	return h
}

// BlockNumber is a 64-bit block height. Zero denotes the genesis
// sentinel: there is no block numbered zero, only the implicit parent
// pointer every chain starts from.
type BlockNumber uint64

// KeyLen is the width of a block-number key as persisted in the DOS
// and as used to index the header-hash trie.
const KeyLen = 8

// Key returns the canonical big-endian encoding of n, used both as the
// trie key and as the DOS key.
func (n BlockNumber) Key() [KeyLen]byte {
	var out [KeyLen]byte
	binary.BigEndian.PutUint64(out[:], uint64(n))
	return out
}

// KeyBytes is Key as a byte slice, for store/trie APIs that take []byte.
func (n BlockNumber) KeyBytes() []byte {
	k := n.Key()
	return k[:]
}

// BlockNumberFromKey decodes a big-endian 8-byte key back into a
// BlockNumber. ok is false if key is not exactly KeyLen bytes.
func BlockNumberFromKey(key []byte) (BlockNumber, bool) {
	if len(key) != KeyLen {
		return 0, false
	}
	return BlockNumber(binary.BigEndian.Uint64(key)), true
}

// HashedBlock names a block by height and header hash. It is the unit
// the RSM tracks as its proposal base and its last-committed block.
type HashedBlock struct {
	Height BlockNumber
	Hash   Hash
}
