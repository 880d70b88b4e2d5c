// Package scanner 负责找出被追踪的文件并判断它们的状态
//
// 追踪规则来自 .gitattributes：带 filter=lfv (兼容 filter=lfs) 的行。
// Scanner 只做匹配和分类，从不主动计算内容哈希：
// 哈希开销留给 Sync Engine，只对真正要传输的条目算。
package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"lfsvault/pkg/config"
	"lfsvault/pkg/pointer"

	gitignore "github.com/sabhiram/go-gitignore"
)

var ErrNoRepository = errors.New("not a git repository")

// State 描述一个被追踪路径当前在工作区里长什么样
type State int

const (
	// RealContent 真实内容 (待 push)
	// 解码失败的小文件也归这里：宁可把内容当内容，不能把内容当指针。
	RealContent State = iota
	// PointerStub 合法指针 (待 pull)
	PointerStub
	// Absent 被索引/列表提到，但磁盘上不存在
	Absent
)

func (s State) String() string {
	switch s {
	case RealContent:
		return "content"
	case PointerStub:
		return "pointer"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// Entry 是一次扫描产出的临时记录，命令结束即丢弃
type Entry struct {
	Path    string // 相对仓库根的 slash 路径 (如 "assets/model.psd")
	AbsPath string
	State   State
	// Pointer 仅在 State == PointerStub 时非空
	Pointer *pointer.Pointer
}

// Scanner 持有仓库根和已编译的追踪规则
type Scanner struct {
	repoRoot string
	patterns []string
	matcher  *gitignore.GitIgnore
}

// New 创建 Scanner 并加载 .gitattributes 里的追踪规则
func New(repoRoot string) (*Scanner, error) {
	if _, err := os.Stat(filepath.Join(repoRoot, ".git")); err != nil {
		return nil, ErrNoRepository
	}

	s := &Scanner{repoRoot: repoRoot}
	if err := s.loadPatterns(); err != nil {
		return nil, err
	}
	return s, nil
}

// attributesPath 返回 .gitattributes 的物理路径
func (s *Scanner) attributesPath() string {
	return filepath.Join(s.repoRoot, ".gitattributes")
}

// isTrackedLine 判断一行 .gitattributes 是不是我们的追踪规则
func isTrackedLine(line string) bool {
	return strings.Contains(line, "filter=lfv") || strings.Contains(line, "filter=lfs")
}

// loadPatterns 解析 .gitattributes
// 格式: <pattern> attr1 attr2 ... (我们只认 filter=lfv / filter=lfs 的行)
func (s *Scanner) loadPatterns() error {
	s.patterns = nil
	s.matcher = nil

	f, err := os.Open(s.attributesPath())
	if os.IsNotExist(err) {
		return nil // 没有 .gitattributes = 没追踪任何东西，不算错
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !isTrackedLine(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			s.patterns = append(s.patterns, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if len(s.patterns) > 0 {
		// gitignore 语法天然支持 * 和 **，一次编译所有规则
		s.matcher = gitignore.CompileIgnoreLines(s.patterns...)
	}
	return nil
}

// Patterns 返回当前追踪的 glob 列表
func (s *Scanner) Patterns() []string { return s.patterns }

// IsTracked 检查相对路径是否命中至少一条规则
func (s *Scanner) IsTracked(relPath string) bool {
	if s.matcher == nil {
		return false
	}
	return s.matcher.MatchesPath(relPath)
}

// Track 把新规则追加到 .gitattributes (已存在则 no-op)
func (s *Scanner) Track(pattern string) error {
	for _, p := range s.patterns {
		if p == pattern {
			return nil
		}
	}

	existing := ""
	if data, err := os.ReadFile(s.attributesPath()); err == nil {
		existing = string(data)
		if existing != "" && !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
	}

	line := fmt.Sprintf("%s filter=lfv diff=lfv merge=lfv -text\n", pattern)
	if err := os.WriteFile(s.attributesPath(), []byte(existing+line), 0644); err != nil {
		return err
	}
	return s.loadPatterns()
}

// Untrack 删除一条规则，返回是否真的删了
func (s *Scanner) Untrack(pattern string) (bool, error) {
	data, err := os.ReadFile(s.attributesPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var kept []string
	removed := false
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == pattern && isTrackedLine(line) {
			removed = true
			continue
		}
		kept = append(kept, line)
	}

	if !removed {
		return false, nil
	}

	content := strings.Join(kept, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(s.attributesPath(), []byte(content), 0644); err != nil {
		return false, err
	}
	return true, s.loadPatterns()
}

// classify 对单个路径做指针探测
// 只读前 1KB：解码成功 => PointerStub；失败 => RealContent (保守处理)。
func (s *Scanner) classify(relPath string) Entry {
	abs := filepath.Join(s.repoRoot, filepath.FromSlash(relPath))
	entry := Entry{Path: relPath, AbsPath: abs}

	if _, err := os.Stat(abs); err != nil {
		entry.State = Absent
		return entry
	}

	p, err := pointer.DecodeFile(abs)
	if err != nil {
		entry.State = RealContent
		return entry
	}
	entry.State = PointerStub
	entry.Pointer = p
	return entry
}

// ScanTree 遍历整个工作区，返回所有命中追踪规则的条目
// 单线程走完：目录遍历是 I/O bound，这个规模并行没收益。
func (s *Scanner) ScanTree() ([]Entry, error) {
	if s.matcher == nil {
		return nil, nil
	}

	var entries []Entry
	err := filepath.WalkDir(s.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// 永远跳过仓库元数据目录
			if d.Name() == ".git" || d.Name() == config.Dir {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if s.IsTracked(rel) {
			entries = append(entries, s.classify(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}
	return entries, nil
}

// ScanPaths 对外部给定的路径列表 (如 git 暂存区) 做匹配和分类
// 路径应当是相对仓库根的 slash 形式。
func (s *Scanner) ScanPaths(relPaths []string) []Entry {
	var entries []Entry
	for _, rel := range relPaths {
		rel = filepath.ToSlash(rel)
		if s.IsTracked(rel) {
			entries = append(entries, s.classify(rel))
		}
	}
	return entries
}

// Filter 在扫描结果上叠加 include/exclude 过滤 (pull 用来缩小范围)
// 空字符串表示不过滤。
func Filter(entries []Entry, include, exclude string) []Entry {
	var inc, exc *gitignore.GitIgnore
	if include != "" {
		inc = gitignore.CompileIgnoreLines(include)
	}
	if exclude != "" {
		exc = gitignore.CompileIgnoreLines(exclude)
	}

	var out []Entry
	for _, e := range entries {
		if inc != nil && !inc.MatchesPath(e.Path) {
			continue
		}
		if exc != nil && exc.MatchesPath(e.Path) {
			continue
		}
		out = append(out, e)
	}
	return out
}
