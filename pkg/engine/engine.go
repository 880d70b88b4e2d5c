// Package engine 实现 push / pull 的并发同步流水线
//
// 每个文件独立走一遍状态机：
//
//	Scanned -> HashKnown -> {CacheHit | Transferring} -> Persisted | Failed
//
// 单个文件失败只标记该文件，不中断整批 (部分失败隔离)。
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lfsvault/pkg/cache"
	"lfsvault/pkg/pointer"
	"lfsvault/pkg/scanner"
	"lfsvault/pkg/storage"
	"lfsvault/pkg/types"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 是未配置时的 worker 数量
const DefaultConcurrency = 4

// Stager 抽象 git add (测试里用假的，不起真 git 进程)
type Stager interface {
	Stage(paths ...string) error
}

// Action 描述引擎对一个文件最终做了什么
type Action int

const (
	// ActionSkipped 无需处理 (已是最新状态)
	ActionSkipped Action = iota
	// ActionUploaded 上传到远端并改写为指针
	ActionUploaded
	// ActionExisted 远端已有该对象，只改写指针没传字节
	ActionExisted
	// ActionDownloaded 从远端下载并还原
	ActionDownloaded
	// ActionCacheHit 从本地缓存还原，没碰网络
	ActionCacheHit
)

func (a Action) String() string {
	switch a {
	case ActionUploaded:
		return "uploaded"
	case ActionExisted:
		return "existed"
	case ActionDownloaded:
		return "downloaded"
	case ActionCacheHit:
		return "cache hit"
	default:
		return "skipped"
	}
}

// Result 是单个文件的处理结果
type Result struct {
	Path   string
	Oid    types.OID
	Size   int64
	Action Action
	Err    error
}

// Failed 返回该文件是否处理失败
func (r *Result) Failed() bool { return r.Err != nil }

// Report 汇总一次 push / pull 的全部结果
type Report struct {
	DryRun  bool
	Results []Result
}

// Failures 返回失败的条目
func (rp *Report) Failures() []Result {
	var out []Result
	for _, r := range rp.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Transferred 返回真正走了网络的条目数
func (rp *Report) Transferred() int {
	n := 0
	for _, r := range rp.Results {
		if r.Err == nil && (r.Action == ActionUploaded || r.Action == ActionDownloaded) {
			n++
		}
	}
	return n
}

// Options 控制一次同步的行为
type Options struct {
	Concurrency int
	DryRun      bool
	Include     string // 可选：只处理命中该 glob 的路径
	Exclude     string // 可选：排除命中该 glob 的路径
}

func (o Options) workers() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

// Engine 把扫描结果驱动到远端存储和本地缓存
type Engine struct {
	store  storage.Store
	cache  *cache.Cache
	stager Stager // 可以为 nil (比如 smudge/clean 不需要 stage)
}

func New(store storage.Store, c *cache.Cache, stager Stager) *Engine {
	return &Engine{store: store, cache: c, stager: stager}
}

// Push 把工作区里的真实内容上传到远端，并把工作区文件改写为指针
//
// 对已是指针的条目会补传远端缺失的对象 (从缓存取字节)。
// Dry-run 模式下只做哈希和存在性检查，不改任何状态。
func (e *Engine) Push(ctx context.Context, entries []scanner.Entry, opts Options) (*Report, error) {
	entries = scanner.Filter(entries, opts.Include, opts.Exclude)

	report := &Report{DryRun: opts.DryRun}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	var toStage []string

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			res := e.pushOne(ctx, entry, opts.DryRun)
			mu.Lock()
			report.Results = append(report.Results, res)
			if res.Err == nil && !opts.DryRun &&
				(res.Action == ActionUploaded || res.Action == ActionExisted) {
				toStage = append(toStage, entry.Path)
			}
			mu.Unlock()
			// 单文件失败不传播，只有 ctx 取消才会让 errgroup 收工
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// stage 串行做一次：git 的 index.lock 不允许并发 add
	if e.stager != nil && len(toStage) > 0 {
		sort.Strings(toStage)
		if err := e.stager.Stage(toStage...); err != nil {
			return nil, fmt.Errorf("failed to stage pointer files: %w", err)
		}
	}

	sortByPath(report.Results)
	return report, nil
}

// pushOne 处理单个文件的上传
func (e *Engine) pushOne(ctx context.Context, entry scanner.Entry, dryRun bool) Result {
	res := Result{Path: entry.Path}

	switch entry.State {
	case scanner.Absent:
		res.Action = ActionSkipped
		return res

	case scanner.PointerStub:
		// 工作区已是指针：只在远端缺对象时补传
		res.Oid = entry.Pointer.Oid
		res.Size = entry.Pointer.Size

		exists, err := e.store.Exists(ctx, res.Oid)
		if err != nil {
			res.Err = fmt.Errorf("existence check failed: %w", err)
			return res
		}
		if exists {
			res.Action = ActionSkipped
			return res
		}
		if !e.cache.Contains(res.Oid) {
			res.Err = fmt.Errorf("object %s missing from both remote and local cache", res.Oid)
			return res
		}
		if dryRun {
			res.Action = ActionUploaded
			return res
		}
		if err := e.uploadFromCache(ctx, res.Oid, res.Size); err != nil {
			res.Err = err
			return res
		}
		res.Action = ActionUploaded
		return res
	}

	// RealContent：流式算哈希
	ptr, err := pointer.FromFile(entry.AbsPath)
	if err != nil {
		res.Err = fmt.Errorf("hashing failed: %w", err)
		return res
	}
	res.Oid = ptr.Oid
	res.Size = ptr.Size

	exists, err := e.store.Exists(ctx, ptr.Oid)
	if err != nil {
		res.Err = fmt.Errorf("existence check failed: %w", err)
		return res
	}

	if dryRun {
		if exists {
			res.Action = ActionExisted
		} else {
			res.Action = ActionUploaded
		}
		return res
	}

	// 先进缓存：之后的上传和指针改写都从缓存这份稳定拷贝出发，
	// 工作区文件在中途被编辑也不会产生 oid 和字节不一致的对象
	if _, _, err := e.cache.PutFile(ptr.Oid, entry.AbsPath); err != nil {
		res.Err = fmt.Errorf("cache fill failed: %w", err)
		return res
	}

	if exists {
		res.Action = ActionExisted
	} else {
		if err := e.uploadFromCache(ctx, ptr.Oid, ptr.Size); err != nil {
			res.Err = err
			return res
		}
		res.Action = ActionUploaded
	}

	// 内容安全落地之后，才把工作区文件换成指针
	if err := writeFileAtomic(entry.AbsPath, ptr.Encode()); err != nil {
		res.Err = fmt.Errorf("pointer rewrite failed: %w", err)
		return res
	}
	return res
}

// uploadFromCache 从缓存文件上传 (可 Seek，重试时能重读)
func (e *Engine) uploadFromCache(ctx context.Context, oid types.OID, size int64) error {
	f, err := e.cache.Open(oid)
	if err != nil {
		return fmt.Errorf("cache open failed: %w", err)
	}
	defer f.Close()

	if err := e.store.Put(ctx, oid, size, f); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	e.cache.Touch(oid)
	return nil
}

// Pull 把工作区里的指针还原为真实内容
//
// 顺序：本地缓存命中 => 直接复制；未命中 => 远端下载进缓存再复制。
// 已经是真实内容的条目视为最新，不做哈希复查。
func (e *Engine) Pull(ctx context.Context, entries []scanner.Entry, opts Options) (*Report, error) {
	entries = scanner.Filter(entries, opts.Include, opts.Exclude)

	report := &Report{DryRun: opts.DryRun}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			res := e.pullOne(ctx, entry, opts.DryRun)
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByPath(report.Results)
	return report, nil
}

// pullOne 处理单个文件的还原
func (e *Engine) pullOne(ctx context.Context, entry scanner.Entry, dryRun bool) Result {
	res := Result{Path: entry.Path}

	if entry.State != scanner.PointerStub {
		res.Action = ActionSkipped
		return res
	}
	res.Oid = entry.Pointer.Oid
	res.Size = entry.Pointer.Size

	if e.cache.Contains(res.Oid) {
		if dryRun {
			res.Action = ActionCacheHit
			return res
		}
		if _, err := e.cache.CopyTo(res.Oid, entry.AbsPath); err != nil {
			res.Err = fmt.Errorf("cache restore failed: %w", err)
			return res
		}
		e.cache.Touch(res.Oid)
		res.Action = ActionCacheHit
		return res
	}

	if dryRun {
		res.Action = ActionDownloaded
		return res
	}

	if err := e.Fetch(ctx, res.Oid); err != nil {
		res.Err = err
		return res
	}
	if _, err := e.cache.CopyTo(res.Oid, entry.AbsPath); err != nil {
		res.Err = fmt.Errorf("restore failed: %w", err)
		return res
	}
	res.Action = ActionDownloaded
	return res
}

// Fetch 把远端对象下载进本地缓存，并在落盘前校验内容哈希
// 已缓存则 no-op。smudge 命令也直接复用这条路径。
func (e *Engine) Fetch(ctx context.Context, oid types.OID) error {
	if e.cache.Contains(oid) {
		return nil
	}

	rc, err := e.store.Get(ctx, oid)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer rc.Close()

	// 边下载边哈希，写完临时文件后再核对 oid
	hasher := sha256.New()
	_, created, err := e.cache.Put(oid, io.TeeReader(rc, hasher))
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	if !created {
		// 另一个写者抢先完成了缓存填充，Put 没消费我们的流；
		// 校验只对自己写入的字节负责，已有条目以写入方的校验为准
		return nil
	}

	if got := types.OID(hex.EncodeToString(hasher.Sum(nil))); got != oid {
		// 内容和名字对不上 (远端返回了空体或坏体)，这份缓存绝不能留
		_, _ = e.cache.Remove(oid)
		return fmt.Errorf("hash mismatch for %s: storage returned %s", oid, got)
	}
	return nil
}

// Verify 检查一批指针对应的对象是否都在远端
func (e *Engine) Verify(ctx context.Context, entries []scanner.Entry, opts Options) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for _, entry := range entries {
		if entry.State != scanner.PointerStub {
			continue
		}
		entry := entry
		g.Go(func() error {
			res := Result{Path: entry.Path, Oid: entry.Pointer.Oid, Size: entry.Pointer.Size}
			exists, err := e.store.Exists(ctx, res.Oid)
			switch {
			case err != nil:
				res.Err = fmt.Errorf("existence check failed: %w", err)
			case !exists:
				res.Err = fmt.Errorf("object %s not found in remote storage", res.Oid)
			default:
				res.Action = ActionSkipped
			}
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByPath(report.Results)
	return report, nil
}

func sortByPath(results []Result) {
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
}

// writeFileAtomic 临时文件 + Rename，避免指针改写到一半被打断
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lfv-ptr-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
