package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lfsvault/pkg/retry"
	"lfsvault/pkg/storage"
	"lfsvault/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	client  *s3.Client
	bucket  string
	prefix  string
	retry   retry.Config
	timeout time.Duration
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string // 可选：MinIO 等 S3 兼容服务的地址
	Region          string
	Bucket          string
	Prefix          string // 可选：Key 前缀 (如 "lfs/")
	AccessKeyID     string
	SecretAccessKey string

	// RequestTimeout 单次请求的超时 (0 取默认 30s)
	// 超时算 Transient，由退避重试兜底，绝不升级成整条命令的取消。
	RequestTimeout time.Duration

	// Retry 退避策略 (零值取 retry.DefaultConfig)
	Retry retry.Config
}

// NewAdapter 初始化 S3 客户端 (适配 AWS SDK v2 最新规范)
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	// 配置里给了 inline credentials 就用，否则走 SDK 默认链 (env / ~/.aws)
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 如果指定了 Endpoint (比如 MinIO 的 localhost:9000)，则覆盖默认值
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		// 【关键】MinIO 必须强制使用 Path Style
		// 即: http://host:9000/bucket/key
		// 而不是: http://bucket.host:9000/key (Virtual Hosted Style)
		o.UsePathStyle = true

		// 重试统一交给我们自己的退避层，关掉 SDK 内置的那一套
		// 否则两层重试叠加，尝试次数就不可控了
		o.Retryer = aws.NopRetryer{}
	})

	r := cfg.Retry
	if r.MaxAttempts == 0 {
		r = retry.DefaultConfig()
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Adapter{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.TrimSuffix(cfg.Prefix, "/"),
		retry:   r,
		timeout: timeout,
	}, nil
}

// objectKey 将 OID 转换为 S3 Key (Sharding)
// Logic: "aabbcc..." -> "<prefix>/aa/aabbcc..."
// Put 和 Get 必须用同一套推导，否则各写各的 Key 就找不回对象了。
func (a *Adapter) objectKey(oid types.OID) string {
	key := oid.ShardPrefix() + "/" + string(oid)
	if a.prefix != "" {
		return a.prefix + "/" + key
	}
	return key
}

func (a *Adapter) Provider() string { return "s3" }

// Exists 检查对象是否存在
func (a *Adapter) Exists(ctx context.Context, oid types.OID) (bool, error) {
	key := a.objectKey(oid)

	var exists bool
	err := a.withRetry(ctx, func(ctx context.Context) error {
		_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			exists = true
			return nil
		}
		if isNotFound(err) {
			exists = false
			return nil
		}
		return classifyAws(err)
	})
	if err != nil {
		return false, fmt.Errorf("s3 head failed: %w", err)
	}
	return exists, nil
}

// Put 上传对象
// 同一个 OID 重复上传会写入完全相同的字节，所以这里不做 Exists 预检：
// 去重检查由 Sync Engine 统一负责，后端只管幂等地写。
func (a *Adapter) Put(ctx context.Context, oid types.OID, size int64, r io.Reader) error {
	key := a.objectKey(oid)

	// 注意：Body 是流，重试前必须能重新 Seek 回起点
	seeker, seekable := r.(io.Seeker)

	err := a.withRetry(ctx, func(ctx context.Context) error {
		if seekable {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(a.bucket),
			Key:           aws.String(key),
			Body:          r,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String("application/octet-stream"),
		})
		if err != nil {
			return classifyAws(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Get 下载对象
func (a *Adapter) Get(ctx context.Context, oid types.OID) (io.ReadCloser, error) {
	key := a.objectKey(oid)

	// Get 不走 per-attempt 超时：SDK 的 body 生命周期挂在请求 ctx 上，
	// 这里一旦 cancel，调用方还没读完流就会被掐断。
	var body io.ReadCloser
	err := retry.Do(ctx, a.retry,
		func(err error) bool { return storage.Classify(err) == storage.Transient },
		func() error {
			return a.getOnce(ctx, key, &body)
		})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return body, nil
}

func (a *Adapter) getOnce(ctx context.Context, key string, body *io.ReadCloser) error {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// 将 AWS 的 NoSuchKey 错误映射为我们自己的 ErrNotFound
		if isNotFound(err) {
			return storage.ErrNotFound
		}
		return classifyAws(err)
	}
	*body = resp.Body
	return nil
}

// withRetry 给单次操作加上 per-attempt 超时和有上限的退避重试
func (a *Adapter) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, a.retry,
		func(err error) bool { return storage.Classify(err) == storage.Transient },
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			return fn(attemptCtx)
		})
}

// isNotFound 识别各种形态的 404
func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	// 兼容性：某些 S3 实现可能返回 generic 404 error string
	return strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "NoSuchKey")
}

// classifyAws 把 AWS 错误翻译成我们的 Transient/Permanent 分类
// 5xx / 限流 算 Transient，认证、权限类保持 Permanent 原样上抛。
func classifyAws(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "InternalError", "ServiceUnavailable", "SlowDown", "RequestTimeout":
			return storage.MarkTransient(err)
		}
		if ae.ErrorFault() == smithy.FaultServer {
			return storage.MarkTransient(err)
		}
		return err
	}
	// 非 API 错误 (连接被重置、DNS 抖动等) 一律按 Transient 处理
	// 超时本身 storage.Classify 就认，这里兜住其余的网络层错误。
	if errors.Is(err, context.Canceled) {
		return err
	}
	return storage.MarkTransient(err)
}
