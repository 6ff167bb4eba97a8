package headermap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/store"
	"dexbft/types"
)

func hashOf(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestLinearProductionBuildsSortedRoot(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())

	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))
	m.InsertForProduction(2, hashOf(0xBB))
	m.InsertForProduction(3, hashOf(0xCC))

	require.Equal(t, types.BlockNumber(3), m.LastCommittedBlockNumber())
	require.Equal(t, []types.BlockNumber{1, 2, 3}, m.trie.sortedKeys())

	root := m.RootHash()
	require.False(t, root.IsZero())
	require.Equal(t, root, m.RootHash(), "root must be stable across repeated calls")
}

func TestTentativeThenRollbackRestoresRoot(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())

	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))
	m.InsertForProduction(2, hashOf(0xBB))
	m.InsertForProduction(3, hashOf(0xCC))
	before := m.RootHash()

	require.True(t, m.TentativeInsertForValidation(3, hashOf(0xCC)))
	require.NotEqual(t, before, m.RootHash(), "tentative entry changes the root")

	m.RollbackValidation()
	require.Equal(t, before, m.RootHash())
	require.Equal(t, types.BlockNumber(3), m.LastCommittedBlockNumber())
}

func TestTentativeRejectsStaleParent(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))
	m.InsertForProduction(2, hashOf(0xBB))

	require.False(t, m.TentativeInsertForValidation(1, hashOf(0xAA)), "parent height 1 is stale once last_committed is 2")
	require.Equal(t, types.BlockNumber(2), m.LastCommittedBlockNumber())
}

func TestFinalizeValidationAdvancesFrontier(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))

	require.True(t, m.TentativeInsertForValidation(1, hashOf(0xBB)))
	m.FinalizeValidation(2)
	require.Equal(t, types.BlockNumber(2), m.LastCommittedBlockNumber())
}

func TestFinalizeValidationPanicsOnRegression(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))

	require.Panics(t, func() { m.FinalizeValidation(0) })
}

func TestRollbackToCommittedRound(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	for n := types.BlockNumber(1); n <= 5; n++ {
		m.InsertForProduction(n, hashOf(byte(n)))
	}

	require.NoError(t, m.RollbackToCommittedRound(3))
	require.Equal(t, types.BlockNumber(2), m.LastCommittedBlockNumber())
	_, ok := m.Lookup(3)
	require.False(t, ok)
	_, ok = m.Lookup(2)
	require.True(t, ok)
}

func TestRollbackRejectsBelowPersistedRound(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	for n := types.BlockNumber(1); n <= 5; n++ {
		m.InsertForProduction(n, hashOf(byte(n)))
	}
	require.NoError(t, m.Persist(5))

	err := m.RollbackToCommittedRound(2)
	require.ErrorIs(t, err, types.ErrRollbackBelowDurable)
}

func TestPersistThenLoadRoundTrips(t *testing.T) {
	logger := log.TestingLogger()
	dos := store.NewMemStore(logger)
	m := New(dos, logger)
	m.InsertForProduction(0, types.ZeroHash)
	for n := types.BlockNumber(1); n <= 9; n++ {
		m.InsertForProduction(n, hashOf(byte(n)))
	}

	require.NoError(t, m.Persist(9))
	require.Equal(t, uint64(9), dos.PersistedRound())

	reloaded := New(dos, logger)
	reloaded.Load()
	require.Equal(t, types.BlockNumber(8), reloaded.LastCommittedBlockNumber())
	for n := types.BlockNumber(1); n <= 8; n++ {
		h, ok := reloaded.Lookup(n)
		require.True(t, ok)
		require.Equal(t, hashOf(byte(n)), h)
	}
	_, ok := reloaded.Lookup(9)
	require.False(t, ok, "currentBlockNumber itself is intentionally left unpersisted")
}

func TestGenesisInsertPanicsOnNonEmptyState(t *testing.T) {
	dos := store.NewMemStore(log.TestingLogger())
	m := New(dos, log.TestingLogger())
	m.InsertForProduction(0, types.ZeroHash)
	m.InsertForProduction(1, hashOf(0xAA))

	require.Panics(t, func() { m.InsertForProduction(0, types.ZeroHash) })
}
