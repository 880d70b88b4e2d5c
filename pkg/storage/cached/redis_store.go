package cached

import (
	"context"
	"fmt"
	"io"
	"time"

	"lfsvault/pkg/storage"
	"lfsvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// Store 是一个装饰器，它为底层的 storage.Store 添加 Redis 存在性缓存
//
// push 前的去重检查是纯网络开销 (每个文件一次 HeadObject)，
// 团队共享一个 Redis 后，大部分检查可以在毫秒级命中。
// 缓存只记 "已存在"，而且带 TTL：内容寻址保证对象永不变更、永不删除
// (push/pull 从不删远端对象)，所以正向缓存天然安全。
type Store struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 缓存过期时间 (例如 24h)
}

func New(backend storage.Store, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Store{backend: backend, client: client, ttl: ttl}, nil
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *Store) cacheKey(oid types.OID) string {
	return "lfv:obj:" + string(oid)
}

func (s *Store) Provider() string { return s.backend.Provider() }

// Exists 优先查 Redis，实现毫秒级去重
func (s *Store) Exists(ctx context.Context, oid types.OID) (bool, error) {
	key := s.cacheKey(oid)

	// 1. 查 Redis
	val, err := s.client.Exists(ctx, key).Result()
	if err == nil && val > 0 {
		// Cache Hit! 无需发起 S3 网络请求。
		return true, nil
	}
	// 缓存故障降级：Redis 挂了就退化为无缓存模式，直接查后端，
	// 绝不能因为缓存层把整条命令打挂。

	// 2. 缓存未命中 (Cache Miss)，查底层存储
	found, err := s.backend.Exists(ctx, oid)
	if err != nil {
		return false, err
	}

	// 3. 缓存回填 (Cache Fill)
	// 只回填 "存在"：不存在是可变事实 (别人随时可能 push 上去)。
	if found {
		// 异步写入，不阻塞主流程；上层 ctx 取消也不影响回填
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 透传到底层，成功后写入存在性缓存
func (s *Store) Put(ctx context.Context, oid types.OID, size int64, r io.Reader) error {
	if err := s.backend.Put(ctx, oid, size, r); err != nil {
		return err
	}

	// 只有后端上传成功了，才写 Redis；Set 失败可以忽略
	s.client.Set(ctx, s.cacheKey(oid), "1", s.ttl)
	return nil
}

// Get 透传 - 我们不缓存对象字节
// 原因：LFS 对象动辄上百 MB，Redis 内存极其宝贵；
// 字节级缓存由本地磁盘缓存 (pkg/cache) 负责，这里只存元数据性价比最高。
func (s *Store) Get(ctx context.Context, oid types.OID) (io.ReadCloser, error) {
	return s.backend.Get(ctx, oid)
}
