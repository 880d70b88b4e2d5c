// Package cache 实现跨仓库共享的本地内容寻址缓存
//
// 布局：root/<oid 前 2 位>/<oid>，每个 OID 一个文件。
// 同一个 OID 永远对应同样的字节，所以只有 create-if-absent，没有 update。
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"lfsvault/pkg/types"
)

// Cache 的根目录在启动时显式解析一次，之后作为依赖传进来，
// 绝不在操作中途临时去查环境 (避免两个组件算出两个不同的根)。
type Cache struct {
	root string
}

// DefaultRoot 返回默认缓存位置 (如 ~/.cache/lfsvault)
func DefaultRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "lfsvault"), nil
}

// New 创建 (或打开) 指定根目录下的缓存
func New(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	return &Cache{root: root}, nil
}

func (c *Cache) Root() string { return c.root }

// layout 返回 OID 对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: oid "aabbcc..." -> root/aa/aabbcc...
func (c *Cache) layout(oid types.OID) string {
	return filepath.Join(c.root, oid.ShardPrefix(), string(oid))
}

// Contains 检查对象是否已缓存
func (c *Cache) Contains(oid types.OID) bool {
	_, err := os.Stat(c.layout(oid))
	return err == nil
}

// Get 返回已缓存对象的路径；未命中返回 ok=false
func (c *Cache) Get(oid types.OID) (string, bool) {
	path := c.layout(oid)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Open 打开已缓存对象的读取流
func (c *Cache) Open(oid types.OID) (io.ReadCloser, error) {
	f, err := os.Open(c.layout(oid))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Put 从流写入缓存，返回最终路径
// created=false 表示条目已存在、流根本没被读，调用方据此区分
// "我写入的字节" 和 "别人早就写好的字节" (下载校验只对前者负责)。
//
// 原子写入 (Atomic Write)：先写到同一分片目录下的临时文件，再 Rename 到位。
// 这样并发读者要么看不到文件，要么看到完整文件，永远不会读到半截。
// 两个进程同时 Put 同一个 OID 也无所谓：内容相同，最后一次 Rename 赢。
func (c *Cache) Put(oid types.OID, r io.Reader) (string, bool, error) {
	targetPath := c.layout(oid)

	// 已存在直接跳过 (CAS 的好处)
	if _, err := os.Stat(targetPath); err == nil {
		return targetPath, false, nil
	}

	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, err
	}

	// 临时文件必须和目标在同一目录，Rename 才保证是原子的 (不跨文件系统)
	tempFile, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return "", false, err
	}
	// 成功 Rename 后这个删除会失效，或者无害
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, r); err != nil {
		tempFile.Close()
		return "", false, err
	}
	if err := tempFile.Close(); err != nil {
		return "", false, err
	}

	if err := os.Rename(tempFile.Name(), targetPath); err != nil {
		return "", false, err
	}
	return targetPath, true, nil
}

// PutFile 把磁盘上的文件存入缓存 (复制，不动原文件)
func (c *Cache) PutFile(oid types.OID, source string) (string, bool, error) {
	f, err := os.Open(source)
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	return c.Put(oid, f)
}

// CopyTo 把缓存内容复制到目标路径 (同样走临时文件 + Rename，工作区不留半截文件)
func (c *Cache) CopyTo(oid types.OID, dest string) (int64, error) {
	src, err := c.Open(oid)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dir := filepath.Dir(dest)
	tempFile, err := os.CreateTemp(dir, ".lfv-tmp-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tempFile.Name())

	n, err := io.Copy(tempFile, src)
	if err != nil {
		tempFile.Close()
		return 0, err
	}
	if err := tempFile.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tempFile.Name(), dest); err != nil {
		return 0, err
	}
	return n, nil
}

// Remove 删除一个缓存对象
func (c *Cache) Remove(oid types.OID) (bool, error) {
	path := c.layout(oid)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// walk 遍历所有缓存文件
func (c *Cache) walk(fn func(path string, info os.FileInfo) error) error {
	shards, err := os.ReadDir(c.root)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(c.root, shard.Name()))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if err := fn(filepath.Join(c.root, shard.Name(), entry.Name()), info); err != nil {
				return err
			}
		}
	}
	return nil
}

// Size 返回缓存总字节数
func (c *Cache) Size() (int64, error) {
	var total int64
	err := c.walk(func(_ string, info os.FileInfo) error {
		total += info.Size()
		return nil
	})
	return total, err
}

// Count 返回缓存对象数量
func (c *Cache) Count() (int, error) {
	count := 0
	err := c.walk(func(_ string, _ os.FileInfo) error {
		count++
		return nil
	})
	return count, err
}

// Clear 清空整个缓存
func (c *Cache) Clear() (int, error) {
	count, err := c.Count()
	if err != nil {
		return 0, err
	}
	shards, err := os.ReadDir(c.root)
	if err != nil {
		return 0, err
	}
	for _, shard := range shards {
		if err := os.RemoveAll(filepath.Join(c.root, shard.Name())); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Prune 删除超过 olderThan 没被使用的对象，返回删除数量
//
// 以 mtime 为准：noatime 挂载下 atime 不可靠，而缓存条目从不被改写，
// push/pull 命中时会 Touch 一下，所以 mtime 约等于最后使用时间。
func (c *Cache) Prune(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	pruned := 0

	err := c.walk(func(path string, info os.FileInfo) error {
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	return pruned, err
}

// Touch 更新对象的 mtime，标记 "刚刚用过" (配合 Prune 的年龄判断)
func (c *Cache) Touch(oid types.OID) {
	now := time.Now()
	// 失败无害：最坏情况是对象提前被 Prune，下次再拉一遍
	_ = os.Chtimes(c.layout(oid), now, now)
}
