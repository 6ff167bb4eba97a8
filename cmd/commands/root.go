package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
)

// config and logger are populated by RootCmd's PersistentPreRunE,
// mirroring the teacher's root command: every subcommand reaches its
// home directory's tendermint config through the same package-level
// handle rather than re-parsing flags itself.
var (
	config *tmcfg.Config
	logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout))
)

// RootCmd is the dexbft replica's command tree, grounded on the
// teacher's RootCmd: same --home flag and viper-backed config load,
// re-pointed at a replica process instead of a chainbft node.
var RootCmd = &cobra.Command{
	Use:   "dexbft",
	Short: "A leader-based BFT replica core",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home := viper.GetString("home")
		if home == "" {
			return nil
		}
		conf := tmcfg.DefaultConfig()
		conf.SetRoot(home)
		tmcfg.EnsureRoot(home)
		config = conf
		logger = log.NewTMLogger(log.NewSyncWriter(cmd.OutOrStdout()))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().String("home", "", "directory for config and data")
	viper.BindPFlag("home", RootCmd.PersistentFlags().Lookup("home"))
}

// deprecateSnakeCase warns when a command is invoked through one of
// its snake_case aliases, matching the teacher's own deprecation
// notice for the same renamed commands.
func deprecateSnakeCase(cmd *cobra.Command, args []string) {
	if cmd.CalledAs() != cmd.Name() {
		fmt.Printf("Command %q has been deprecated, please use %q instead\n", cmd.CalledAs(), cmd.Name())
	}
}
