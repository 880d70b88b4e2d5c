package commands

import (
	"fmt"
	"os"

	"lfsvault/pkg/app"

	"github.com/spf13/cobra"
)

// LFV 全局应用实例，供子命令使用
var LFV *app.App

var rootCmd = &cobra.Command{
	Use:   "lfv",
	Short: "lfsvault: large file storage for git, backed by S3",
	Long: `lfsvault keeps large binary files out of git history.

Tracked files are replaced by small pointer records; the real bytes live
in S3-compatible object storage and a local content-addressed cache.`,
	SilenceUsage: true,
	// 【关键】PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 统一初始化 App (所有命令都至少需要仓库根和扫描器)
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		LFV, err = app.New(cmd.Context(), cwd)
		if err != nil {
			return fmt.Errorf("failed to initialize lfsvault: %w", err)
		}
		return nil
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}
