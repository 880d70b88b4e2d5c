package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every pointer's object exists in remote storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LFV.RequireSync(); err != nil {
			return err
		}

		entries, err := LFV.Scanner.ScanTree()
		if err != nil {
			return err
		}

		report, err := LFV.Engine.Verify(cmd.Context(), entries, LFV.SyncOptions())
		if err != nil {
			return err
		}
		if len(report.Results) == 0 {
			fmt.Println("No pointer files to verify.")
			return nil
		}

		failures := report.Failures()
		for _, r := range failures {
			fmt.Printf("❌ %s: %v\n", r.Path, r.Err)
		}
		if len(failures) > 0 {
			return fmt.Errorf("%d of %d objects missing or unreachable", len(failures), len(report.Results))
		}
		fmt.Printf("✅ All %d objects present in remote storage.\n", len(report.Results))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
