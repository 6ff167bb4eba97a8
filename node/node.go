// Package node assembles one replica process: p2p transport and
// switch, the proposal/vote gossip reactor, the block-fetch websocket
// server, and the Replica State Machine they all feed.
package node

import (
	"fmt"

	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/p2p/conn"
	"github.com/tendermint/tendermint/version"

	"dexbft/config"
	"dexbft/engine"
	"dexbft/fetch"
	"dexbft/headermap"
	"dexbft/pacemaker"
	"dexbft/replica"
	"dexbft/store"
	"dexbft/types"
)

// Node is a single replica process. Grounded on the teacher's
// node.Node: the same BaseService/transport/switch shape, generalized
// from its ConsensusState+testReactor pair to the Replica+Reactor pair
// this core drives.
type Node struct {
	service.BaseService

	p2pConfig *tmcfg.P2PConfig
	moniker   string

	transport *p2p.MultiplexTransport
	sw        *p2p.Switch
	nodeInfo  p2p.NodeInfo
	nodeKey   *p2p.NodeKey

	reactor     *Reactor
	fetchServer *fetch.Server
	fetchAddr   string
	replica     *replica.Replica

	persistentPeers []string
	stop            chan struct{}
}

// Deps bundles the collaborators a deployment supplies to wire a Node:
// the execution engine and pacemaker behind the core's abstract
// interfaces, neither of which the core implements itself.
type Deps struct {
	Engine    engine.Engine
	Pacemaker pacemaker.Pacemaker
}

// New builds a Node bound to cfg's peer table and nodeKey's identity,
// wiring the DOS, MBHM, BFM, Reactor, and Replica State Machine.
// listenAddr is the p2p transport's address; fetchAddr is where this
// replica's fetch.Server listens for block-body requests.
func New(
	cfg *config.ReplicaConfig,
	p2pConfig *tmcfg.P2PConfig,
	nodeKey *p2p.NodeKey,
	listenAddr, fetchAddr, moniker string,
	dos store.Store,
	deps Deps,
	logger log.Logger,
) (*Node, error) {
	mbhm := headermap.New(dos, logger.With("module", "headermap"))
	bfm := fetch.NewBlockFetchManager(cfg, logger.With("module", "fetch"))

	if _, ok := cfg.Info(cfg.Self); !ok {
		return nil, fmt.Errorf("node: self replica %d not present in replica config", cfg.Self)
	}

	rsm := replica.New(cfg, deps.Engine, deps.Pacemaker, bfm, mbhm, dos, logger.With("module", "replica"))

	// A from-disk recovery path needs the embedding engine's own
	// height->hash recovery log to replay InitFromDisk correctly; the
	// abstract Engine contract has no such log, so every boot starts
	// from the canonical genesis. A deployment with real crash recovery
	// should call rsm.InitFromDisk itself before starting the node.
	rsm.InitClean()

	reactor := NewReactor(cfg.Self, rsm)
	reactor.SetLogger(logger.With("module", "reactor"))

	p2pLogger := logger.With("module", "p2p")
	nodeInfo, err := makeNodeInfo(moniker, listenAddr, nodeKey)
	if err != nil {
		return nil, err
	}

	transport := p2p.NewMultiplexTransport(nodeInfo, *nodeKey, conn.DefaultMConnConfig())
	sw := p2p.NewSwitch(p2pConfig, transport)
	sw.SetLogger(p2pLogger)
	sw.AddReactor("REPLICA", reactor)
	sw.SetNodeInfo(nodeInfo)
	sw.SetNodeKey(nodeKey)

	// fetch.Server answers block-body requests from a deployment's own
	// local recovery log; the core has no block storage of its own, so
	// this is left to the embedding application to wire via a real
	// BlockSource. Absent that, every request simply misses, which is
	// harmless: the requester's context stays outstanding until a block
	// for that hash is delivered.
	fetchServer := fetch.NewServer(func(types.Hash) (*types.Block, bool) { return nil, false }, logger.With("module", "fetchserver"))

	peers := make([]string, 0, len(cfg.Replicas))
	for id, info := range cfg.Replicas {
		if id == cfg.Self {
			continue
		}
		bfm.AddReplica(id, fetch.NewWSWorker(info.Address, rsm.OnBlockDelivered, logger.With("module", "fetch", "peer", id)))
		peers = append(peers, info.Address)
	}

	n := &Node{
		p2pConfig:       p2pConfig,
		moniker:         moniker,
		transport:       transport,
		sw:              sw,
		nodeInfo:        nodeInfo,
		nodeKey:         nodeKey,
		reactor:         reactor,
		fetchServer:     fetchServer,
		fetchAddr:       fetchAddr,
		replica:         rsm,
		persistentPeers: peers,
		stop:            make(chan struct{}),
	}
	n.BaseService = *service.NewBaseService(logger, "Node", n)
	return n, nil
}

func makeNodeInfo(moniker, listenAddr string, nodeKey *p2p.NodeKey) (p2p.NodeInfo, error) {
	info := p2p.DefaultNodeInfo{
		ProtocolVersion: p2p.NewProtocolVersion(8, 11, 0),
		DefaultNodeID:   nodeKey.ID(),
		Network:         "dexbft",
		Version:         version.TMCoreSemVer,
		Channels:        []byte{ProposalChannel, VoteChannel},
		Moniker:         moniker,
		ListenAddr:      listenAddr,
	}
	if err := info.Validate(); err != nil {
		return info, err
	}
	return info, nil
}

// Switch exposes the underlying p2p switch, mainly for tests that want
// to dial peers directly.
func (n *Node) Switch() *p2p.Switch {
	return n.sw
}

// Replica exposes the state machine this node drives.
func (n *Node) Replica() *replica.Replica {
	return n.replica
}

// OnStart implements service.Service: it starts the transport, the
// switch, the fetch server, dials any configured peers, and kicks off
// the RSM's loop in the background.
func (n *Node) OnStart() error {
	addr, err := p2p.NewNetAddressString(p2p.IDAddressString(n.nodeKey.ID(), n.nodeInfo.(p2p.DefaultNodeInfo).ListenAddr))
	if err != nil {
		return err
	}
	if err := n.transport.Listen(*addr); err != nil {
		return err
	}
	if err := n.sw.Start(); err != nil {
		return err
	}
	if err := n.fetchServer.Listen(n.fetchAddr); err != nil {
		return err
	}
	if err := n.sw.DialPeersAsync(n.persistentPeers); err != nil {
		return fmt.Errorf("could not dial peers: %w", err)
	}

	go n.replica.Run(n.stop)
	return nil
}

// OnStop implements service.Service.
func (n *Node) OnStop() {
	close(n.stop)
	n.replica.Close()
	n.fetchServer.Close()
	n.sw.Stop()
	n.transport.Close()
}
