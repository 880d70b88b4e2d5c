// Package retry 提供有上限的指数退避重试
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int           // 最大尝试次数 (含第一次)
	InitialWait time.Duration // 首次等待
	MaxWait     time.Duration // 等待上限
	Multiplier  float64       // 退避倍率
	Jitter      float64       // 抖动系数 (0-1)，避免惊群
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// Do 执行 fn，直到成功、错误被判定为不可重试、或次数耗尽
// retryable 决定一个错误要不要重试 (比如 storage.Classify == Transient)。
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		// 指数退避 + 抖动
		wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
		if wait > float64(cfg.MaxWait) {
			wait = float64(cfg.MaxWait)
		}
		if cfg.Jitter > 0 {
			wait += wait * cfg.Jitter * (rand.Float64()*2 - 1)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait)):
		}
	}

	return lastErr
}
