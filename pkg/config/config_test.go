package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, repoRoot, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, Dir), 0755))
	require.NoError(t, os.WriteFile(Path(repoRoot), []byte(content), 0644))
}

func TestLoad_Valid(t *testing.T) {
	repoRoot := t.TempDir()
	writeConfig(t, repoRoot, `
storage:
  provider: s3
  bucket: test-bucket
  region: eu-west-1
  prefix: myproject/
  endpoint: http://localhost:9000
  credentials:
    access_key_id: AKIA123
    secret_access_key: shhh
cache:
  redis_url: redis://localhost:6379/0
  redis_ttl: 12h
sync:
  concurrency: 8
`)

	cfg, err := Load(repoRoot)
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, "myproject/", cfg.Storage.Prefix)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "AKIA123", cfg.Storage.Credentials.AccessKeyID)
	assert.Equal(t, 12*time.Hour, cfg.Cache.RedisTTL)
	assert.Equal(t, 8, cfg.Sync.Concurrency)
}

func TestLoad_Defaults(t *testing.T) {
	repoRoot := t.TempDir()
	writeConfig(t, repoRoot, `
storage:
  bucket: test-bucket
`)

	cfg, err := Load(repoRoot)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
}

func TestLoad_EnvOverride(t *testing.T) {
	// CI 场景：bucket 和密钥不落盘，完全来自环境变量
	repoRoot := t.TempDir()
	writeConfig(t, repoRoot, `
storage:
  region: eu-central-1
`)

	t.Setenv("LFV_STORAGE_BUCKET", "env-bucket")
	t.Setenv("LFV_STORAGE_CREDENTIALS_ACCESS_KEY_ID", "AKIAENV")
	t.Setenv("LFV_STORAGE_CREDENTIALS_SECRET_ACCESS_KEY", "env-secret")

	cfg, err := Load(repoRoot)
	require.NoError(t, err)
	assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "eu-central-1", cfg.Storage.Region, "file values survive alongside env overrides")
	assert.Equal(t, "AKIAENV", cfg.Storage.Credentials.AccessKeyID)
	assert.Equal(t, "env-secret", cfg.Storage.Credentials.SecretAccessKey)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Storage: Storage{Provider: "s3", Bucket: "b", Region: "r"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(c *Config) {}, false},
		{"Missing bucket", func(c *Config) { c.Storage.Bucket = "" }, true},
		{"Missing region", func(c *Config) { c.Storage.Region = "" }, true},
		{"Bad provider", func(c *Config) { c.Storage.Provider = "gcs" }, true},
		{"Half credentials", func(c *Config) { c.Storage.Credentials.AccessKeyID = "AKIA" }, true},
		{"Full credentials", func(c *Config) {
			c.Storage.Credentials = Credentials{AccessKeyID: "AKIA", SecretAccessKey: "s"}
		}, false},
		{"Negative concurrency", func(c *Config) { c.Sync.Concurrency = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	repoRoot := t.TempDir()

	path, err := WriteTemplate(repoRoot)
	require.NoError(t, err)
	assert.True(t, Exists(repoRoot))
	assert.Equal(t, Path(repoRoot), path)

	// 模板必须是可加载的合法配置
	cfg, err := Load(repoRoot)
	require.NoError(t, err)
	assert.Equal(t, "my-lfs-bucket", cfg.Storage.Bucket)
}
