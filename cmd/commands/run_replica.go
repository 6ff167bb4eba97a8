package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/p2p"

	rconfig "dexbft/config"
	"dexbft/engine"
	"dexbft/node"
	"dexbft/pacemaker"
	"dexbft/store"
	"dexbft/types"
)

var (
	replicaConfigFile string
	fetchListenAddr   string
)

func init() {
	RunReplicaCmd.Flags().StringVar(&replicaConfigFile, "replica-config", "", "path to the replica peer table YAML")
	RunReplicaCmd.Flags().StringVar(&fetchListenAddr, "fetch-addr", "0.0.0.0:27000", "listen address for the block-fetch websocket server")
	RunReplicaCmd.MarkFlagRequired("replica-config")
}

// RunReplicaCmd starts one replica process: it loads the peer table,
// opens the on-disk header store, and wires a Node around the
// tendermint p2p transport and switch. Grounded on the teacher's
// cmd.NewRunNodeCmd, with the teacher's DefaultNewNode/abci wiring
// replaced by node.New and this core's mock Engine/Pacemaker
// collaborators — wiring the real engine and pacemaker is left to a
// deployment that supplies its own node.Deps.
var RunReplicaCmd = &cobra.Command{
	Use:     "run-replica",
	Aliases: []string{"run_replica", "node"},
	Short:   "Run a replica process",
	PreRun:  deprecateSnakeCase,
	RunE:    runReplica,
}

func runReplica(cmd *cobra.Command, args []string) error {
	replicaCfg, err := rconfig.Load(replicaConfigFile)
	if err != nil {
		return fmt.Errorf("loading replica config: %w", err)
	}

	self, ok := replicaCfg.Info(replicaCfg.Self)
	if !ok {
		return fmt.Errorf("replica %d is not present in its own peer table", replicaCfg.Self)
	}

	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("loading node key: %w", err)
	}

	dos, err := store.OpenGoLevelDB(config.DBDir(), logger)
	if err != nil {
		return fmt.Errorf("opening header store: %w", err)
	}

	deps := node.Deps{
		Engine:    engine.NewMockEngine(types.ZeroHash),
		Pacemaker: pacemaker.NewMockPacemaker(),
	}

	n, err := node.New(
		replicaCfg,
		config.P2P,
		nodeKey,
		self.Address,
		fetchListenAddr,
		config.Moniker,
		dos,
		deps,
		logger,
	)
	if err != nil {
		dos.Close()
		return fmt.Errorf("building node: %w", err)
	}

	if err := n.Start(); err != nil {
		dos.Close()
		return fmt.Errorf("starting node: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
	return dos.Close()
}
