package commands

import (
	"fmt"

	"lfsvault/pkg/engine"
	"lfsvault/pkg/scanner"

	"github.com/spf13/cobra"
)

var (
	pushDryRun  bool
	pushStaged  bool
	pushInclude string
	pushExclude string
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload tracked content to remote storage and rewrite files as pointers",
	Long: `Scans the working tree (or the staging area with --staged) for tracked
files that still hold real content, uploads the bytes to remote storage,
and replaces each file with a small pointer record.

Uploads are skipped for content the remote already has. Pointer files
whose objects are missing from the remote are backfilled from the local
cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LFV.RequireSync(); err != nil {
			return err
		}

		entries, err := collectEntries(pushStaged)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Nothing to push.")
			return nil
		}

		opts := LFV.SyncOptions()
		opts.DryRun = pushDryRun
		opts.Include = pushInclude
		opts.Exclude = pushExclude

		fmt.Printf("📦 Pushing %d tracked files to %s...\n", len(entries), LFV.Store.Provider())
		report, err := LFV.Engine.Push(cmd.Context(), entries, opts)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

// collectEntries 按模式取扫描结果
func collectEntries(staged bool) ([]scanner.Entry, error) {
	if !staged {
		return LFV.Scanner.ScanTree()
	}
	paths, err := LFV.Git.StagedFiles()
	if err != nil {
		return nil, err
	}
	return LFV.Scanner.ScanPaths(paths), nil
}

// printReport 打印逐文件结果和汇总，有失败时返回错误 (退出码非零)
func printReport(report *engine.Report) error {
	prefix := ""
	if report.DryRun {
		prefix = "[dry-run] "
	}

	for _, r := range report.Results {
		switch {
		case r.Failed():
			fmt.Printf("❌ %s%s: %v\n", prefix, r.Path, r.Err)
		case r.Action == engine.ActionSkipped:
			// 安静跳过，不刷屏
		default:
			fmt.Printf("✅ %s%s (%s, %d bytes)\n", prefix, r.Path, r.Action, r.Size)
		}
	}

	failures := report.Failures()
	fmt.Printf("\nSummary: %d processed, %d transferred, %d failed.\n",
		len(report.Results), report.Transferred(), len(failures))
	if len(failures) > 0 {
		return fmt.Errorf("%d files failed", len(failures))
	}
	return nil
}

func init() {
	pushCmd.Flags().BoolVarP(&pushDryRun, "dry-run", "n", false, "Show what would be done without doing it")
	pushCmd.Flags().BoolVar(&pushStaged, "staged", false, "Only process files in the git staging area")
	pushCmd.Flags().StringVarP(&pushInclude, "include", "I", "", "Only process paths matching this glob")
	pushCmd.Flags().StringVarP(&pushExclude, "exclude", "X", "", "Skip paths matching this glob")
	rootCmd.AddCommand(pushCmd)
}
