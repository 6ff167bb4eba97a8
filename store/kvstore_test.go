package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
)

func TestPersistedRoundDefaultsToOne(t *testing.T) {
	s := NewMemStore(log.TestingLogger())
	require.Equal(t, uint64(1), s.PersistedRound())
}

func TestCommitAdvancesPersistedRoundWithPuts(t *testing.T) {
	s := NewMemStore(log.TestingLogger())

	wtx := s.BeginWrite()
	require.NoError(t, wtx.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, wtx.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, s.Commit(wtx, 3))

	require.Equal(t, uint64(3), s.PersistedRound())

	rtx := s.BeginRead()
	defer rtx.Close()
	it := rtx.Iterate()
	defer it.Close()

	seen := map[string]string{}
	for it.Valid() {
		seen[string(it.Key())] = string(it.Value())
		it.Next()
	}
	require.Equal(t, "v1", seen["k1"])
	require.Equal(t, "v2", seen["k2"])
}

func TestDiscardAbandonsPuts(t *testing.T) {
	s := NewMemStore(log.TestingLogger())

	wtx := s.BeginWrite()
	require.NoError(t, wtx.Put([]byte("k1"), []byte("v1")))
	wtx.Discard()

	require.Equal(t, uint64(1), s.PersistedRound())

	// the writer lock must have been released by Discard, or this
	// would deadlock.
	wtx2 := s.BeginWrite()
	wtx2.Discard()
}

func TestWriterIsExclusive(t *testing.T) {
	s := NewMemStore(log.TestingLogger())
	wtx := s.BeginWrite()

	done := make(chan struct{})
	go func() {
		wtx2 := s.BeginWrite()
		wtx2.Discard()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second writer should not proceed while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	wtx.Discard()
	<-done
}
