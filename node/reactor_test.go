package node

import (
	"testing"
	"time"

	"github.com/go-kit/kit/log/term"
	"github.com/stretchr/testify/require"
	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/p2p"

	"dexbft/config"
	"dexbft/engine"
	"dexbft/fetch"
	"dexbft/headermap"
	"dexbft/pacemaker"
	"dexbft/replica"
	"dexbft/store"
	"dexbft/types"
)

// newTestReactor builds a Reactor over a freshly initialized Replica,
// mirroring replica.newTestReplica's wiring.
func newTestReactor(t *testing.T, logger log.Logger) (*Reactor, *engine.MockEngine) {
	t.Helper()

	cfg := config.New(1)
	cfg.AddReplica(types.ReplicaInfo{ID: 1})
	cfg.AddReplica(types.ReplicaInfo{ID: 2})

	dos := store.NewMemStore(logger)
	mbhm := headermap.New(dos, logger)
	bfm := fetch.NewBlockFetchManager(cfg, logger)
	bfm.AddReplica(2, fetch.NewChanWorker(8))

	eng := engine.NewMockEngine(types.ZeroHash)
	r := replica.New(cfg, eng, pacemaker.NewMockPacemaker(), bfm, mbhm, dos, logger)
	r.InitClean()

	reactor := NewReactor(1, r)
	reactor.SetLogger(logger)
	return reactor, eng
}

// replicaLogger colors each reactor's log lines by replica index, the
// same way the teacher's mempool tests tell reactors apart in a
// multi-switch test run.
func replicaLogger() log.Logger {
	return log.TestingLoggerWithColorFn(func(keyvals ...interface{}) term.FgBgColor {
		for i := 0; i < len(keyvals)-1; i += 2 {
			if keyvals[i] == "reactor" {
				return term.FgBgColor{Fg: term.Color(uint8(keyvals[i+1].(int) + 1))}
			}
		}
		return term.FgBgColor{}
	})
}

// makeAndConnectReactors wires n reactors through real connected
// switches, so BroadcastProposal/BroadcastVote have a live Switch to
// call. Grounded on the teacher's
// consensus.makeAndConnectReactors/p2p.MakeConnectedSwitches pattern.
func makeAndConnectReactors(t *testing.T, n int) ([]*Reactor, []*engine.MockEngine) {
	t.Helper()
	logger := replicaLogger()
	p2pCfg := tmcfg.TestP2PConfig()

	reactors := make([]*Reactor, n)
	engines := make([]*engine.MockEngine, n)
	for i := 0; i < n; i++ {
		reactors[i], engines[i] = newTestReactor(t, logger.With("reactor", i))
	}

	p2p.MakeConnectedSwitches(p2pCfg, n, func(i int, s *p2p.Switch) *p2p.Switch {
		s.AddReactor("REPLICA", reactors[i])
		return s
	}, p2p.Connect2Switches)

	return reactors, engines
}

func TestGetChannelsDeclaresProposalAndVote(t *testing.T) {
	reactor, _ := newTestReactor(t, log.TestingLogger())
	chans := reactor.GetChannels()
	require.Len(t, chans, 2)
	require.Equal(t, ProposalChannel, chans[0].ID)
	require.Equal(t, VoteChannel, chans[1].ID)
}

func TestBroadcastProposalReachesPeerEngine(t *testing.T) {
	reactors, engines := makeAndConnectReactors(t, 2)

	block := types.NewBlock(1, types.ZeroHash, nil)
	reactors[0].BroadcastProposal(&types.Proposal{Block: block, Proposer: 1})

	require.Eventually(t, func() bool {
		return engines[1].ValidateCalls() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
