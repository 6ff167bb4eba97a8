package headermap

import (
	"sort"
	"sync"

	"github.com/tendermint/tendermint/crypto/merkle"

	"dexbft/types"
)

// trie is the Merkle structure backing the block-header hash map: a
// key-ordered mapping from block number to block hash whose root hash
// is a deterministic function of the final key-set, independent of
// insertion order, per spec invariant. Leaves are hashed bottom-up
// with merkle.HashFromByteSlices — the same pairwise Merkle tree the
// teacher's types.Header.Hash() already builds proposal commitments
// with — over the sorted (key, hash) pairs, so two replicas holding
// the same leaf set always agree on the root.
type trie struct {
	mu     sync.RWMutex
	leaves map[types.BlockNumber]types.Hash
	root   *types.Hash // cached; nil after any mutation
}

func newTrie() *trie {
	return &trie{leaves: make(map[types.BlockNumber]types.Hash)}
}

func (t *trie) insert(n types.BlockNumber, h types.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves[n] = h
	t.root = nil
}

func (t *trie) delete(n types.BlockNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.leaves[n]; ok {
		delete(t.leaves, n)
		t.root = nil
	}
}

func (t *trie) lookup(n types.BlockNumber) (types.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.leaves[n]
	return h, ok
}

func (t *trie) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

func (t *trie) sortedKeys() []types.BlockNumber {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]types.BlockNumber, 0, len(t.leaves))
	for k := range t.leaves {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// rootHash recomputes (or returns the cached) Merkle root over the
// current leaf set, sorted by key.
func (t *trie) rootHash() types.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root != nil {
		return *t.root
	}
	if len(t.leaves) == 0 {
		var zero types.Hash
		t.root = &zero
		return zero
	}

	keys := make([]types.BlockNumber, 0, len(t.leaves))
	for k := range t.leaves {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	items := make([][]byte, 0, len(keys))
	for _, k := range keys {
		h := t.leaves[k]
		key := k.Key()
		item := make([]byte, 0, types.KeyLen+types.HashSize)
		item = append(item, key[:]...)
		item = append(item, h[:]...)
		items = append(items, item)
	}

	sum := merkle.HashFromByteSlices(items)
	root, _ := types.HashFromBytes(sum)
	t.root = &root
	return root
}
