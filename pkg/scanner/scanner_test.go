package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lfsvault/pkg/pointer"
	"lfsvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepo 准备一个带 .git 目录的假仓库
func newTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	return root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
}

func TestNew_NotARepo(t *testing.T) {
	_, err := New(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestTrackAndUntrack(t *testing.T) {
	root := newTestRepo(t)
	s, err := New(root)
	require.NoError(t, err)
	assert.Empty(t, s.Patterns())

	require.NoError(t, s.Track("*.psd"))
	require.NoError(t, s.Track("assets/**"))
	assert.Equal(t, []string{"*.psd", "assets/**"}, s.Patterns())

	// 重复 Track 不产生重复行
	require.NoError(t, s.Track("*.psd"))
	assert.Len(t, s.Patterns(), 2)

	data, err := os.ReadFile(filepath.Join(root, ".gitattributes"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "*.psd filter=lfv diff=lfv merge=lfv -text")

	removed, err := s.Untrack("*.psd")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"assets/**"}, s.Patterns())

	// 再删一次是 no-op
	removed, err = s.Untrack("*.psd")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestTrack_PreservesForeignLines(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, ".gitattributes", "# comment\n*.txt text eol=lf\n")

	s, err := New(root)
	require.NoError(t, err)
	assert.Empty(t, s.Patterns(), "non-filter lines are not tracking rules")

	require.NoError(t, s.Track("*.bin"))
	removed, err := s.Untrack("*.bin")
	require.NoError(t, err)
	assert.True(t, removed)

	// 别人的 attributes 行必须原样保留
	data, err := os.ReadFile(filepath.Join(root, ".gitattributes"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "*.txt text eol=lf")
	assert.Contains(t, string(data), "# comment")
}

func TestIsTracked(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, ".gitattributes", strings.Join([]string{
		"*.psd filter=lfv diff=lfv merge=lfv -text",
		"assets/** filter=lfs diff=lfs merge=lfs -text", // git-lfs 写的行也认
		"*.txt text eol=lf",
	}, "\n")+"\n")

	s, err := New(root)
	require.NoError(t, err)

	assert.True(t, s.IsTracked("design.psd"))
	assert.True(t, s.IsTracked("deep/nested/file.psd"))
	assert.True(t, s.IsTracked("assets/textures/rock.png"))
	assert.False(t, s.IsTracked("readme.txt"))
	assert.False(t, s.IsTracked("main.go"))
}

func TestScanTree_Classification(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, ".gitattributes", "*.bin filter=lfv diff=lfv merge=lfv -text\n")

	// 真实内容
	writeFile(t, root, "model.bin", "binary payload")
	// 合法指针
	oid := types.OID(strings.Repeat("ab", 32))
	ptr := pointer.Pointer{Oid: oid, Size: 42}
	writeFile(t, root, "assets/big.bin", string(ptr.Encode()))
	// 未追踪的文件
	writeFile(t, root, "main.go", "package main")
	// .git 和 .lfv 里的内容不扫
	writeFile(t, root, ".git/objects/junk.bin", "x")
	writeFile(t, root, ".lfv/stale.bin", "x")

	s, err := New(root)
	require.NoError(t, err)

	entries, err := s.ScanTree()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}

	content := byPath["model.bin"]
	assert.Equal(t, RealContent, content.State)
	assert.Nil(t, content.Pointer)

	stub := byPath["assets/big.bin"]
	assert.Equal(t, PointerStub, stub.State)
	require.NotNil(t, stub.Pointer)
	assert.Equal(t, oid, stub.Pointer.Oid)
	assert.Equal(t, int64(42), stub.Pointer.Size)
}

func TestScanTree_NoPatterns(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, "anything.bin", "data")

	s, err := New(root)
	require.NoError(t, err)

	entries, err := s.ScanTree()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScanPaths(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, ".gitattributes", "*.psd filter=lfv diff=lfv merge=lfv -text\n")
	writeFile(t, root, "art/logo.psd", "pixels")

	s, err := New(root)
	require.NoError(t, err)

	// 暂存区列表里提到但磁盘上没有的文件 => Absent
	entries := s.ScanPaths([]string{"art/logo.psd", "gone.psd", "notes.md"})
	require.Len(t, entries, 2)

	assert.Equal(t, "art/logo.psd", entries[0].Path)
	assert.Equal(t, RealContent, entries[0].State)
	assert.Equal(t, "gone.psd", entries[1].Path)
	assert.Equal(t, Absent, entries[1].State)
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Path: "assets/a.psd"},
		{Path: "assets/b.png"},
		{Path: "docs/c.psd"},
	}

	assert.Len(t, Filter(entries, "", ""), 3)

	got := Filter(entries, "assets/**", "")
	require.Len(t, got, 2)
	assert.Equal(t, "assets/a.psd", got[0].Path)

	got = Filter(entries, "", "*.png")
	require.Len(t, got, 2)
	assert.Equal(t, "assets/a.psd", got[0].Path)
	assert.Equal(t, "docs/c.psd", got[1].Path)

	got = Filter(entries, "*.psd", "docs/**")
	require.Len(t, got, 1)
	assert.Equal(t, "assets/a.psd", got[0].Path)
}
