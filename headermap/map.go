// Package headermap implements the Merkle Block-Header Map: an
// authenticated mapping from block number to block hash, with
// production/validation/rollback protocols and write-ahead durability
// through store.Store.
package headermap

import (
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/store"
	"dexbft/types"
)

// BlockHeaderHashMap is the core's authenticated header-chain
// commitment. Grounded directly on
// _examples/original_source/header_hash/block_header_hash_map.h,
// method-for-method.
type BlockHeaderHashMap struct {
	trie *trie
	dos  store.Store

	lastCommittedBlockNumber types.BlockNumber

	logger log.Logger
}

// New constructs an empty map backed by dos.
func New(dos store.Store, logger log.Logger) *BlockHeaderHashMap {
	return &BlockHeaderHashMap{
		trie:   newTrie(),
		dos:    dos,
		logger: logger,
	}
}

// LastCommittedBlockNumber is the highest block number whose hash has
// been committed to the trie.
func (m *BlockHeaderHashMap) LastCommittedBlockNumber() types.BlockNumber {
	return m.lastCommittedBlockNumber
}

// RootHash recomputes (or returns the cached) Merkle root of the
// current trie contents.
func (m *BlockHeaderHashMap) RootHash() types.Hash {
	return m.trie.rootHash()
}

// PersistedRound passes through to the DOS.
func (m *BlockHeaderHashMap) PersistedRound() uint64 {
	return m.dos.PersistedRound()
}

// InsertForProduction records the parent block's hash after the
// proposer has executed block n. Called by the proposer; advances
// last_committed.
//
// Every invariant violation here is an implementation bug or
// adversarial input that should have been filtered upstream, per the
// error-handling policy; both are panics, not returned errors.
func (m *BlockHeaderHashMap) InsertForProduction(n types.BlockNumber, h types.Hash) {
	if n == 0 {
		if m.trie.size() != 0 || m.lastCommittedBlockNumber != 0 || !h.IsZero() {
			panic(errors.Wrapf(types.ErrInvalidGenesis,
				"genesis insert requires an empty trie and the zero hash (n=%d h=%s)", n, h))
		}
		return
	}

	if n != m.lastCommittedBlockNumber+1 {
		panic(errors.Wrapf(types.ErrBlockOutOfOrder,
			"production insert at %d, expected %d", n, m.lastCommittedBlockNumber+1))
	}

	m.trie.insert(n, h)
	m.lastCommittedBlockNumber = n
}

// TentativeInsertForValidation records the parent's hash while
// validating candidate block n+1, whose parent is block n. It does
// NOT advance last_committed; a later FinalizeValidation or
// RollbackValidation resolves the tentative entry.
//
// Returns false (StaleTentative) without mutating state when n is not
// last_committed — the caller is expected to fetch the real ancestor
// and retry. h itself is not compared against the trie. At n == 0 the
// genesis rules of InsertForProduction apply, and a violation panics.
func (m *BlockHeaderHashMap) TentativeInsertForValidation(n types.BlockNumber, h types.Hash) bool {
	if n == 0 {
		if m.trie.size() != 0 || m.lastCommittedBlockNumber != 0 || !h.IsZero() {
			panic(errors.Wrapf(types.ErrInvalidGenesis,
				"genesis insert requires an empty trie and the zero hash (n=%d h=%s)", n, h))
		}
		return true
	}

	if n != m.lastCommittedBlockNumber {
		return false
	}

	m.trie.insert(n+1, h)
	return true
}

// Lookup returns the trie's entry at n, if present. Used by callers
// that need to recover a hash after a rollback moves last_committed
// backward without touching the surviving entries below it.
func (m *BlockHeaderHashMap) Lookup(n types.BlockNumber) (types.Hash, bool) {
	return m.trie.lookup(n)
}

// RollbackValidation removes the tentative entry at last_committed+1
// if present. Idempotent; never panics.
func (m *BlockHeaderHashMap) RollbackValidation() {
	m.trie.delete(m.lastCommittedBlockNumber + 1)
}

// FinalizeValidation makes the tentative insert at n permanent by
// advancing last_committed to n.
func (m *BlockHeaderHashMap) FinalizeValidation(n types.BlockNumber) {
	if n < m.lastCommittedBlockNumber {
		panic(errors.Wrapf(types.ErrCannotFinalizePrior,
			"finalize(%d) with last_committed=%d", n, m.lastCommittedBlockNumber))
	}
	m.lastCommittedBlockNumber = n
}

// RollbackToCommittedRound deletes entries [c, last_committed] and
// sets last_committed = max(c-1, 0). c is read as "the first height
// to discard" — see DESIGN.md for the rationale behind this reading
// of the original's ambiguous naming.
//
// This is the only way in-memory state moves backward, and it is
// guarded: c must not reach below the durable frontier.
func (m *BlockHeaderHashMap) RollbackToCommittedRound(c types.BlockNumber) error {
	if uint64(c) < m.dos.PersistedRound() {
		return errors.Wrapf(types.ErrRollbackBelowDurable,
			"rollback to %d below persisted round %d", c, m.dos.PersistedRound())
	}

	for n := c; n <= m.lastCommittedBlockNumber; n++ {
		m.trie.delete(n)
	}

	if c == 0 {
		m.lastCommittedBlockNumber = 0
	} else {
		m.lastCommittedBlockNumber = c - 1
	}
	return nil
}

// Persist snapshots trie contents to the DOS. For each i in
// [PersistedRound(), currentBlockNumber), i != 0, the trie's entry at
// i is written; currentBlockNumber itself is intentionally left
// unpersisted, since higher levels only treat blocks strictly below
// the current round as durable.
func (m *BlockHeaderHashMap) Persist(currentBlockNumber types.BlockNumber) error {
	p := m.dos.PersistedRound()

	wtx := m.dos.BeginWrite()
	committed := false
	defer func() {
		if !committed {
			wtx.Discard()
		}
	}()

	for i := p; i < uint64(currentBlockNumber); i++ {
		if i == 0 {
			continue
		}
		n := types.BlockNumber(i)
		h, ok := m.trie.lookup(n)
		if !ok {
			panic(errors.Wrapf(types.ErrMissingHash, "persist: missing hash for block %d", n))
		}
		if err := wtx.Put(n.KeyBytes(), h.Bytes()); err != nil {
			return errors.Wrap(types.ErrDurability, err.Error())
		}
	}

	if err := m.dos.Commit(wtx, uint64(currentBlockNumber)); err != nil {
		return errors.Wrap(types.ErrDurability, err.Error())
	}
	committed = true
	return nil
}

// Load scans the DOS in key order and reinserts every (n, h) pair
// into the trie, then sets last_committed to the persisted round.
// Any key at or above the persisted round counter is corruption: the
// DOS should never hold an un-persisted key.
func (m *BlockHeaderHashMap) Load() {
	persisted := m.dos.PersistedRound()

	rtx := m.dos.BeginRead()
	defer rtx.Close()

	it := rtx.Iterate()
	defer it.Close()

	for it.Valid() {
		key := it.Key()
		n, ok := types.BlockNumberFromKey(key)
		if !ok {
			// not a block-number key (e.g. the store's reserved
			// round-counter key); skip it.
			it.Next()
			continue
		}
		if uint64(n) >= persisted {
			panic(errors.Wrapf(types.ErrCorruptDOS,
				"loaded key %d >= persisted round %d", n, persisted))
		}
		h, ok := types.HashFromBytes(it.Value())
		if !ok {
			panic(errors.Wrap(types.ErrCorruptDOS, "loaded value is not a valid hash"))
		}
		m.trie.insert(n, h)
		it.Next()
	}

	m.lastCommittedBlockNumber = types.BlockNumber(persisted - 1)
	if persisted == 0 {
		m.lastCommittedBlockNumber = 0
	}
}
