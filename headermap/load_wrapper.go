package headermap

import "dexbft/types"

// LoadWrapper is the Go shape of the original's LoadLMDBHeaderMap: a
// decorator used only while replaying decided blocks at startup, that
// turns InsertForProduction into a no-op for any height already
// reflected on disk. Heights at or above the DOS's persisted round are
// passed straight through to the underlying map.
//
// spec.md's init_from_disk names this "suppresses side effects already
// durable" without naming the mechanism; recovered here from
// _examples/original_source/header_hash/block_header_hash_map.h.
type LoadWrapper struct {
	currentBlockNumber types.BlockNumber
	m                   *BlockHeaderHashMap
}

// NewLoadWrapper wraps m for replay. currentBlockNumber is recorded but
// not consulted: which heights InsertForLoading forwards depends only
// on m's persisted round.
func NewLoadWrapper(currentBlockNumber types.BlockNumber, m *BlockHeaderHashMap) *LoadWrapper {
	return &LoadWrapper{currentBlockNumber: currentBlockNumber, m: m}
}

// InsertForLoading replays a trusted block hash. It is a no-op for any
// height already durable (below the map's persisted round); otherwise
// it forwards to InsertForProduction.
func (w *LoadWrapper) InsertForLoading(n types.BlockNumber, h types.Hash) {
	if uint64(n) < w.m.PersistedRound() {
		return
	}
	w.m.InsertForProduction(n, h)
}
