package commands

import (
	"fmt"

	"lfsvault/pkg/scanner"

	"github.com/spf13/cobra"
)

var lsFilesLong bool

var lsFilesCmd = &cobra.Command{
	Use:   "ls-files",
	Short: "List tracked files and their current state",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := LFV.Scanner.ScanTree()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if lsFilesLong && e.Pointer != nil {
				fmt.Printf("%s %s %d\n", e.Pointer.Oid, e.Path, e.Pointer.Size)
			} else {
				fmt.Println(e.Path)
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what push and pull would do",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := LFV.Scanner.ScanTree()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No tracked files. Run `lfv track '<pattern>'` to start.")
			return nil
		}

		var toPush, toPull, missing []scanner.Entry
		cached := 0
		for _, e := range entries {
			switch e.State {
			case scanner.RealContent:
				toPush = append(toPush, e)
			case scanner.PointerStub:
				toPull = append(toPull, e)
				if LFV.Cache.Contains(e.Pointer.Oid) {
					cached++
				}
			case scanner.Absent:
				missing = append(missing, e)
			}
		}

		fmt.Printf("Tracked files: %d\n\n", len(entries))
		if len(toPush) > 0 {
			fmt.Printf("📤 To push (real content): %d\n", len(toPush))
			for _, e := range toPush {
				fmt.Printf("     %s\n", e.Path)
			}
		}
		if len(toPull) > 0 {
			fmt.Printf("📥 Pointers: %d (%d restorable from local cache)\n", len(toPull), cached)
		}
		if len(missing) > 0 {
			fmt.Printf("⚠️  Missing from disk: %d\n", len(missing))
			for _, e := range missing {
				fmt.Printf("     %s\n", e.Path)
			}
		}
		return nil
	},
}

func init() {
	lsFilesCmd.Flags().BoolVarP(&lsFilesLong, "long", "l", false, "Show oid and size for pointer files")
	rootCmd.AddCommand(lsFilesCmd)
	rootCmd.AddCommand(statusCmd)
}
