// Package app 是组合根 (Composition Root)：
// 按配置把 git、扫描器、缓存、远端存储和同步引擎装配成一个整体。
// 所有命令都从这里拿依赖，自己不 new 任何组件。
package app

import (
	"context"
	"errors"
	"fmt"

	"lfsvault/pkg/cache"
	"lfsvault/pkg/config"
	"lfsvault/pkg/engine"
	"lfsvault/pkg/gitutil"
	"lfsvault/pkg/scanner"
	"lfsvault/pkg/storage"
	"lfsvault/pkg/storage/cached"
	"lfsvault/pkg/storage/s3"
)

// App 持有一次命令执行所需的全部组件
//
// Config / Store / Engine 在配置缺失时为 nil：
// track、ls-files 这类纯本地命令不需要远端，也就不要求配置存在。
type App struct {
	RepoRoot string
	GitDir   string

	Git     *gitutil.Git
	Scanner *scanner.Scanner
	Cache   *cache.Cache

	Config *config.Config
	Store  storage.Store
	Engine *engine.Engine
}

// New 从当前工作目录向上找到仓库根，装配所有组件
func New(ctx context.Context, workDir string) (*App, error) {
	git := gitutil.New(workDir)
	repoRoot, err := git.RepoRoot()
	if err != nil {
		return nil, errors.New("not inside a git repository (run `git init` first)")
	}
	gitDir, err := git.GitDir()
	if err != nil {
		return nil, err
	}
	// 之后所有相对路径都以仓库根为基准
	git = gitutil.New(repoRoot)

	sc, err := scanner.New(repoRoot)
	if err != nil {
		return nil, err
	}

	a := &App{
		RepoRoot: repoRoot,
		GitDir:   gitDir,
		Git:      git,
		Scanner:  sc,
	}

	// 配置可以不存在：此时只有本地命令可用
	cfg, err := config.Load(repoRoot)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}
	a.Config = cfg

	cacheRoot := ""
	if cfg != nil {
		cacheRoot = cfg.Cache.Root
	}
	if cacheRoot == "" {
		cacheRoot, err = cache.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	a.Cache, err = cache.New(cacheRoot)
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		return a, nil
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.Engine = engine.New(store, a.Cache, git)
	return a, nil
}

// buildStore 构造远端存储，按配置决定是否套 Redis 存在性缓存
func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	base, err := s3.NewAdapter(ctx, s3.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		Prefix:          cfg.Storage.Prefix,
		AccessKeyID:     cfg.Storage.Credentials.AccessKeyID,
		SecretAccessKey: cfg.Storage.Credentials.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init s3 backend: %w", err)
	}

	if cfg.Cache.RedisURL == "" {
		return base, nil
	}
	decorated, err := cached.New(base, cached.Config{
		RedisURL: cfg.Cache.RedisURL,
		TTL:      cfg.Cache.RedisTTL,
	})
	if err != nil {
		return nil, err
	}
	return decorated, nil
}

// RequireSync 确认远端同步可用 (push/pull/verify 前置检查)
func (a *App) RequireSync() error {
	if a.Engine == nil {
		return fmt.Errorf("no configuration found at %s (run `lfv install` first)", config.Path(a.RepoRoot))
	}
	return nil
}

// SyncOptions 把配置翻译成引擎参数
func (a *App) SyncOptions() engine.Options {
	opts := engine.Options{}
	if a.Config != nil {
		opts.Concurrency = a.Config.Sync.Concurrency
	}
	return opts
}
