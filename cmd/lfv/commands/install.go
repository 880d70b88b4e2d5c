package commands

import (
	"fmt"

	"lfsvault/pkg/config"
	"lfsvault/pkg/hooks"

	"github.com/spf13/cobra"
)

var installUninstall bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Set up lfsvault in this repository (config template + git hooks)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if installUninstall {
			removed, err := hooks.Uninstall(LFV.GitDir)
			if err != nil {
				return err
			}
			fmt.Printf("🧹 Removed %d git hooks\n", len(removed))
			return nil
		}

		// 1. 配置模板 (已有配置绝不覆盖)
		if config.Exists(LFV.RepoRoot) {
			fmt.Printf("✅ Config already exists: %s\n", config.Path(LFV.RepoRoot))
		} else {
			path, err := config.WriteTemplate(LFV.RepoRoot)
			if err != nil {
				return err
			}
			fmt.Printf("📝 Wrote config template: %s\n", path)
			fmt.Println("   Edit it to point at your S3 bucket, then commit it.")
		}

		// 2. git 钩子
		installed, err := hooks.Install(LFV.GitDir)
		if err != nil {
			return err
		}
		fmt.Printf("🪝 Installed git hooks: %v\n", installed)

		fmt.Println("\nNext: `lfv track '*.psd'` to start tracking large files.")
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installUninstall, "uninstall", false, "Remove the git hooks installed by lfv")
	rootCmd.AddCommand(installCmd)
}
