package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lfsvault/pkg/pointer"

	"github.com/spf13/cobra"
)

// clean / smudge 是 git filter 的管道端：
// stdin/stdout 承载文件内容，所有人类可读输出只能去 stderr。

var cleanCmd = &cobra.Command{
	Use:    "clean [path]",
	Short:  "git clean filter: content in, pointer out",
	Hidden: true,
	Args:   cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 边读边哈希，同时把字节落到临时文件，成功后收进缓存
		tmp, err := os.CreateTemp(LFV.Cache.Root(), "clean-*")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name())

		ptr, err := pointer.FromReader(os.Stdin, tmp)
		if err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		// 内容本身就是指针时原样放行 (git 会对已 clean 的 blob 再跑一遍 filter)
		if ptr.Size <= pointer.MaxSize {
			if data, err := os.ReadFile(tmp.Name()); err == nil {
				if _, err := pointer.Decode(data); err == nil {
					_, err = os.Stdout.Write(data)
					return err
				}
			}
		}

		if _, _, err := LFV.Cache.PutFile(ptr.Oid, tmp.Name()); err != nil {
			return fmt.Errorf("cache fill failed: %w", err)
		}

		_, err = os.Stdout.Write(ptr.Encode())
		return err
	},
}

var smudgeCmd = &cobra.Command{
	Use:    "smudge [path]",
	Short:  "git smudge filter: pointer in, content out",
	Hidden: true,
	Args:   cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		head, err := io.ReadAll(io.LimitReader(os.Stdin, pointer.MaxSize+1))
		if err != nil {
			return err
		}

		ptr, err := pointer.Decode(head)
		if err != nil {
			// 不是指针：原样透传 (头部 + 剩余流)
			if _, err := os.Stdout.Write(head); err != nil {
				return err
			}
			_, err = io.Copy(os.Stdout, os.Stdin)
			return err
		}

		if !LFV.Cache.Contains(ptr.Oid) {
			if err := LFV.RequireSync(); err != nil {
				return fmt.Errorf("object %s not in local cache and %w", ptr.Oid, err)
			}
			fmt.Fprintf(os.Stderr, "lfv: downloading %s (%d bytes)\n", filepath.Base(argOr(args, "object")), ptr.Size)
			if err := LFV.Engine.Fetch(cmd.Context(), ptr.Oid); err != nil {
				return err
			}
		}

		src, err := LFV.Cache.Open(ptr.Oid)
		if err != nil {
			return err
		}
		defer src.Close()
		LFV.Cache.Touch(ptr.Oid)

		_, err = io.Copy(os.Stdout, src)
		return err
	},
}

func argOr(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(smudgeCmd)
}
