package main

import (
	"fmt"
	"os"
	"path/filepath"

	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/cli"

	cmd "dexbft/cmd/commands"
)

func main() {
	tmcfg.DefaultTendermintDir = ".dexbft"

	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.GenNodeKeyCmd,
		cmd.InitDBCmd,
		cmd.RunReplicaCmd,
		cli.NewCompletionCmd(rootCmd, true),
	)

	baseCmd := cli.PrepareBaseCmd(rootCmd, "DEXBFT", os.ExpandEnv(filepath.Join("$HOME", tmcfg.DefaultTendermintDir)))
	if err := baseCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
