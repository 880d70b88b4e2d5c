package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(error) bool { return true }, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	permanent := errors.New("403 forbidden")
	calls := 0
	err := Do(context.Background(), fastConfig(), func(error) bool { return false }, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	// 不可重试的错误只允许撞一次墙
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	flaky := errors.New("timeout")
	calls := 0
	err := Do(context.Background(), fastConfig(), func(error) bool { return true }, func() error {
		calls++
		return flaky
	})
	assert.ErrorIs(t, err, flaky)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func(error) bool { return true }, func() error {
		return errors.New("flaky")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
