package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pullDryRun  bool
	pullInclude string
	pullExclude string
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Restore pointer files to their real content",
	Long: `Scans the working tree for pointer files and materializes the real
bytes, preferring the local cache over the network. Files that already
hold real content are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LFV.RequireSync(); err != nil {
			return err
		}

		entries, err := LFV.Scanner.ScanTree()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Nothing to pull.")
			return nil
		}

		opts := LFV.SyncOptions()
		opts.DryRun = pullDryRun
		opts.Include = pullInclude
		opts.Exclude = pullExclude

		fmt.Printf("📥 Restoring %d tracked files...\n", len(entries))
		report, err := LFV.Engine.Pull(cmd.Context(), entries, opts)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

func init() {
	pullCmd.Flags().BoolVarP(&pullDryRun, "dry-run", "n", false, "Show what would be done without doing it")
	pullCmd.Flags().StringVarP(&pullInclude, "include", "I", "", "Only process paths matching this glob")
	pullCmd.Flags().StringVarP(&pullExclude, "exclude", "X", "", "Skip paths matching this glob")
	rootCmd.AddCommand(pullCmd)
}
