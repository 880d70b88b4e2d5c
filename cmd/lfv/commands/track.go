package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track [pattern]...",
	Short: "Start tracking files matching the given glob patterns",
	Long: `Adds tracking rules to .gitattributes. Patterns use gitignore syntax:

  lfv track '*.psd'        # every .psd anywhere in the tree
  lfv track 'assets/**'    # everything under assets/

With no arguments, lists the patterns currently tracked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			patterns := LFV.Scanner.Patterns()
			if len(patterns) == 0 {
				fmt.Println("Nothing tracked yet. Run `lfv track '<pattern>'` to start.")
				return nil
			}
			fmt.Println("Tracked patterns:")
			for _, p := range patterns {
				fmt.Printf("  %s\n", p)
			}
			return nil
		}

		for _, pattern := range args {
			if err := LFV.Scanner.Track(pattern); err != nil {
				return fmt.Errorf("failed to track %q: %w", pattern, err)
			}
			fmt.Printf("📌 Tracking %q\n", pattern)
		}

		// .gitattributes 本身要进版本库，顺手 stage 了
		if err := LFV.Git.Stage(".gitattributes"); err != nil {
			return err
		}
		return nil
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack [pattern]...",
	Short: "Stop tracking the given patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, pattern := range args {
			removed, err := LFV.Scanner.Untrack(pattern)
			if err != nil {
				return fmt.Errorf("failed to untrack %q: %w", pattern, err)
			}
			if removed {
				fmt.Printf("🗑️  Untracked %q\n", pattern)
			} else {
				fmt.Printf("⚠️  %q was not tracked\n", pattern)
			}
		}
		return LFV.Git.Stage(".gitattributes")
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(untrackCmd)
}
