package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dexbft/store"
)

var dbDir string

func init() {
	InitDBCmd.Flags().StringVar(&dbDir, "dir", "/tmp/dexbft", "directory for the on-disk header store")
}

// InitDBCmd creates the on-disk store a replica's headermap persists
// into, so the directory and its LevelDB manifest exist before the
// replica process first starts. The teacher's own init-db seeded a
// SmallBank demo ledger into the same kind of directory; this repurposes
// the command for the header-hash store this core actually owns.
var InitDBCmd = &cobra.Command{
	Use:     "init-db",
	Aliases: []string{"init_db", "initdb"},
	Short:   "initialize the on-disk header store",
	RunE:    initDB,
}

func initDB(cmd *cobra.Command, args []string) error {
	dos, err := store.OpenGoLevelDB(dbDir, logger)
	if err != nil {
		return err
	}
	defer dos.Close()
	fmt.Println("initialized header store at", dbDir)
	return nil
}
