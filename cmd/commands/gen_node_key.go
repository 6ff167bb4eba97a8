package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/p2p"
)

// GenNodeKeyCmd provisions the persistent p2p identity a replica's
// MultiplexTransport authenticates with on every dial/accept. This is
// deliberately a separate key from the ReplicaID in config's replica
// set: the node key is transport-layer and can rotate or be
// regenerated on a host without touching consensus membership, while
// the ReplicaID is a protocol-level identity the RSM and pacemaker
// reason about. Refuses to run if a key file already exists, since a
// replica whose transport identity changes under it would be unable to
// re-establish sessions its peers still expect to come from the old
// node ID.
var GenNodeKeyCmd = &cobra.Command{
	Use:     "gen-node-key",
	Aliases: []string{"gen_node_key"},
	Short:   "Generate a node key for this replica and print its ID",
	PreRun:  deprecateSnakeCase,
	RunE:    genNodeKey,
}

func genNodeKey(cmd *cobra.Command, args []string) error {
	nodeKeyFile := config.NodeKeyFile()
	if tmos.FileExists(nodeKeyFile) {
		return fmt.Errorf("node key at %s already exists", nodeKeyFile)
	}

	nodeKey, err := p2p.LoadOrGenNodeKey(nodeKeyFile)
	if err != nil {
		return err
	}
	fmt.Println(nodeKey.ID())
	return nil
}
