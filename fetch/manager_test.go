package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/config"
	"dexbft/types"
)

func testConfig() *config.ReplicaConfig {
	cfg := config.New(1)
	cfg.AddReplica(types.ReplicaInfo{ID: 1})
	cfg.AddReplica(types.ReplicaInfo{ID: 2})
	cfg.AddReplica(types.ReplicaInfo{ID: 3})
	return cfg
}

func TestAddFetchRequestDispatchesOnceToEachReplica(t *testing.T) {
	cfg := testConfig()
	m := NewBlockFetchManager(cfg, log.TestingLogger())

	w2 := NewChanWorker(4)
	m.AddReplica(2, w2)

	hash := types.SumHash([]byte("missing-ancestor"))
	m.AddFetchRequest(hash, 2, []types.NetworkEvent{types.FuncEvent{Name: "a"}})
	m.AddFetchRequest(hash, 2, []types.NetworkEvent{types.FuncEvent{Name: "b"}})

	select {
	case got := <-w2.Requests:
		require.Equal(t, hash, got)
	case <-time.After(time.Second):
		t.Fatal("expected a dispatched request")
	}
	select {
	case <-w2.Requests:
		t.Fatal("second request to the same replica for the same hash must coalesce")
	default:
	}
}

func TestAddFetchRequestDropsInvalidTarget(t *testing.T) {
	cfg := testConfig()
	m := NewBlockFetchManager(cfg, log.TestingLogger())
	w := NewChanWorker(1)
	m.AddReplica(2, w)

	m.AddFetchRequest(types.SumHash([]byte("x")), 99, nil)

	select {
	case <-w.Requests:
		t.Fatal("no request should be dispatched for an unknown replica")
	default:
	}
}

func TestDeliverBlockReleasesDependentEvents(t *testing.T) {
	cfg := testConfig()
	m := NewBlockFetchManager(cfg, log.TestingLogger())
	w2 := NewChanWorker(4)
	m.AddReplica(2, w2)

	block := types.NewBlock(4, types.ZeroHash, nil)
	ev := types.FuncEvent{Name: "retry"}
	m.AddFetchRequest(block.Hash(), 2, []types.NetworkEvent{ev})

	released := m.DeliverBlock(block)
	require.Len(t, released, 1)
	require.Equal(t, "retry", released[0].Kind())
}

func TestDeliverBlockForUnknownHashIsNoop(t *testing.T) {
	cfg := testConfig()
	m := NewBlockFetchManager(cfg, log.TestingLogger())
	block := types.NewBlock(1, types.ZeroHash, nil)
	require.Empty(t, m.DeliverBlock(block))
}

func TestAddFetchRequestFromMultipleReplicasEachDispatches(t *testing.T) {
	cfg := testConfig()
	m := NewBlockFetchManager(cfg, log.TestingLogger())
	w2, w3 := NewChanWorker(4), NewChanWorker(4)
	m.AddReplica(2, w2)
	m.AddReplica(3, w3)

	hash := types.SumHash([]byte("shared"))
	m.AddFetchRequest(hash, 2, nil)
	m.AddFetchRequest(hash, 3, nil)

	select {
	case <-w2.Requests:
	case <-time.After(time.Second):
		t.Fatal("expected dispatch to replica 2")
	}
	select {
	case <-w3.Requests:
	case <-time.After(time.Second):
		t.Fatal("expected dispatch to replica 3")
	}
}
