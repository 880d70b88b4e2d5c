// Package config 负责加载和校验仓库级配置 (.lfv/config.yaml)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNotFound 配置文件不存在 (提示用户先跑 lfv install)
var ErrNotFound = errors.New("config not found")

// Dir 是仓库内的配置目录名
const Dir = ".lfv"

// Credentials 内联凭证 (也可以不配，走 env / ~/.aws/credentials)
type Credentials struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Storage 远端存储配置
type Storage struct {
	Provider    string      `mapstructure:"provider"` // 目前仅 "s3"
	Bucket      string      `mapstructure:"bucket"`
	Region      string      `mapstructure:"region"`
	Prefix      string      `mapstructure:"prefix"`   // 可选：对象 Key 前缀
	Endpoint    string      `mapstructure:"endpoint"` // 可选：S3 兼容服务地址
	Credentials Credentials `mapstructure:"credentials"`
}

// CacheCfg 本地/共享缓存配置
type CacheCfg struct {
	Root     string        `mapstructure:"root"`      // 空则取 os.UserCacheDir()/lfsvault
	RedisURL string        `mapstructure:"redis_url"` // 可选：开启远端存在性缓存
	RedisTTL time.Duration `mapstructure:"redis_ttl"`
}

// Sync 同步引擎配置
type Sync struct {
	Concurrency int `mapstructure:"concurrency"` // worker 数量，0 取默认 4
}

type Config struct {
	Storage Storage  `mapstructure:"storage"`
	Cache   CacheCfg `mapstructure:"cache"`
	Sync    Sync     `mapstructure:"sync"`
}

// Path 返回仓库对应的配置文件路径
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, "config.yaml")
}

// Exists 检查配置是否已经写过
func Exists(repoRoot string) bool {
	_, err := os.Stat(Path(repoRoot))
	return err == nil
}

// Load 读取并校验配置
// 注意：这里用独立的 viper 实例，不碰全局单例。
// 引擎层的配置必须是显式传入的数据，不能是藏在全局里的状态。
func Load(repoRoot string) (*Config, error) {
	path := Path(repoRoot)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("sync.concurrency", 4)

	// 环境变量覆盖 (LFV_STORAGE_BUCKET 等)，方便 CI 里不落盘密钥
	// AutomaticEnv 不会把文件里缺席的 key 喂给 Unmarshal，必须逐个 BindEnv
	v.SetEnvPrefix("LFV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"storage.provider", "storage.bucket", "storage.region",
		"storage.prefix", "storage.endpoint",
		"storage.credentials.access_key_id", "storage.credentials.secret_access_key",
		"cache.root", "cache.redis_url", "cache.redis_ttl",
		"sync.concurrency",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验必填项
// 必须在任何扫描/网络调用之前失败 (Fail-fast)。
func (c *Config) Validate() error {
	if c.Storage.Provider != "s3" {
		return fmt.Errorf("invalid config: unsupported provider %q (only \"s3\")", c.Storage.Provider)
	}
	if c.Storage.Bucket == "" {
		return errors.New("invalid config: storage.bucket is required")
	}
	if c.Storage.Region == "" {
		return errors.New("invalid config: storage.region is required")
	}

	// 凭证要么都给，要么都不给 (半套凭证一定是配错了)
	hasKey := c.Storage.Credentials.AccessKeyID != ""
	hasSecret := c.Storage.Credentials.SecretAccessKey != ""
	if hasKey != hasSecret {
		return errors.New("invalid config: credentials need both access_key_id and secret_access_key")
	}

	if c.Sync.Concurrency < 0 {
		return errors.New("invalid config: sync.concurrency cannot be negative")
	}
	return nil
}

// Template 是 install 写出的示例配置
const Template = `# lfsvault configuration
storage:
  # Storage provider: "s3" (more coming soon)
  provider: s3

  # S3 bucket name (required)
  bucket: my-lfs-bucket

  # AWS region (default: us-east-1)
  region: us-east-1

  # Optional prefix for object keys
  # prefix: project-name/

  # Optional custom endpoint for S3-compatible services (MinIO, DigitalOcean Spaces, etc.)
  # endpoint: https://nyc3.digitaloceanspaces.com

  # Credentials (optional - can also use env vars or ~/.aws/credentials)
  # credentials:
  #   access_key_id: AKIA...
  #   secret_access_key: ...

# cache:
#   root: /shared/lfsvault-cache
#   redis_url: redis://localhost:6379/0
#   redis_ttl: 24h

# sync:
#   concurrency: 4
`

// WriteTemplate 写出示例配置，返回文件路径
func WriteTemplate(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := Path(repoRoot)
	if err := os.WriteFile(path, []byte(Template), 0644); err != nil {
		return "", err
	}
	return path, nil
}
