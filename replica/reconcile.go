package replica

import (
	"dexbft/headermap"
	"dexbft/types"
)

// InitClean starts the RSM from an empty header chain: the canonical
// genesis insert, with last_committed and the next proposal's parent
// both pointing at the zero block.
func (r *Replica) InitClean() {
	r.mbhm.InsertForProduction(0, types.ZeroHash)

	r.confirmationMtx.Lock()
	r.lastCommittedBlock = types.HashedBlock{Height: 0, Hash: types.ZeroHash}
	r.proposalBaseBlock = r.lastCommittedBlock
	r.confirmationMtx.Unlock()

	r.initialized = true
}

// InitFromDisk restores the MBHM from the DOS, then replays any
// committed-but-not-yet-persisted blocks through a LoadWrapper so
// durable heights replay as no-ops. lastCommitted is the height the
// execution engine reports as its own recovery point; parentHashAt
// supplies the commitment recorded at each replayed height, read from
// the engine's own recovery log.
//
// Grounded on spec.md §4.E's init_from_disk, with the decorator
// mechanism recovered from
// _examples/original_source/header_hash/block_header_hash_map.h.
func (r *Replica) InitFromDisk(lastCommitted types.BlockNumber, parentHashAt func(types.BlockNumber) types.Hash) {
	r.mbhm.Load()

	lw := headermap.NewLoadWrapper(lastCommitted, r.mbhm)
	for n := types.BlockNumber(1); n <= lastCommitted; n++ {
		lw.InsertForLoading(n, parentHashAt(n))
	}

	hash := types.ZeroHash
	if lastCommitted > 0 {
		hash = parentHashAt(lastCommitted)
	}

	r.confirmationMtx.Lock()
	r.lastCommittedBlock = types.HashedBlock{Height: lastCommitted, Hash: hash}
	r.proposalBaseBlock = r.lastCommittedBlock
	r.confirmationMtx.Unlock()

	r.initialized = true
}
