package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pruneDays int
	pruneAll  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stale objects from the local cache",
	Long: `Removes cache entries that have not been used for --days days.
The remote store is never touched: anything pruned locally can be
downloaded again on the next pull.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneAll {
			cleared, err := LFV.Cache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("🧹 Cleared %d cached objects.\n", cleared)
			return nil
		}

		before, err := LFV.Cache.Size()
		if err != nil {
			return err
		}
		pruned, err := LFV.Cache.Prune(time.Duration(pruneDays) * 24 * time.Hour)
		if err != nil {
			return err
		}
		after, _ := LFV.Cache.Size()

		fmt.Printf("🧹 Pruned %d objects (freed %d bytes, %d left).\n", pruned, before-after, after)
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 30, "Remove objects unused for this many days")
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Remove every cached object")
	rootCmd.AddCommand(pruneCmd)
}
