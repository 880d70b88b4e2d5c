// Package gitutil 封装对 git 命令行的少量调用
//
// 我们刻意不引入 go-git：需要的只是仓库根、暂存区列表和 add，
// shell out 对这几个操作足够稳定，而且行为和用户手里的 git 完全一致。
package gitutil

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Git 绑定在一个工作目录上执行 git 子命令
type Git struct {
	workDir string
}

func New(workDir string) *Git {
	return &Git{workDir: workDir}
}

// run 执行 git 子命令，stderr 进错误信息
func (g *Git) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RepoRoot 返回当前仓库的顶层目录
func (g *Git) RepoRoot() (string, error) {
	return g.run("rev-parse", "--show-toplevel")
}

// GitDir 返回 .git 目录的绝对路径 (worktree 下不一定是 root/.git)
func (g *Git) GitDir() (string, error) {
	return g.run("rev-parse", "--absolute-git-dir")
}

// StagedFiles 返回暂存区里的文件 (相对仓库根的 slash 路径)
func (g *Git) StagedFiles() ([]string, error) {
	out, err := g.run("diff", "--cached", "--name-only", "--diff-filter=d")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// LsFiles 返回所有受版本控制的文件
func (g *Git) LsFiles() ([]string, error) {
	out, err := g.run("ls-files")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Stage 把路径加入暂存区
func (g *Git) Stage(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := g.run(append([]string{"add", "--"}, paths...)...)
	return err
}

// IsRepo 判断工作目录是否在 git 仓库内
func (g *Git) IsRepo() bool {
	_, err := g.run("rev-parse", "--git-dir")
	return err == nil
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
