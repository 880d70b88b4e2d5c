package storage

import (
	"context"
	"errors"
	"net"
)

// Class 把存储层错误分成两档，决定重试策略
type Class int

const (
	// Permanent 立刻上报，不重试 (认证失败、权限不足、对象不存在)
	Permanent Class = iota
	// Transient 可重试 (超时、5xx)
	Transient
)

// transientError 标记一个可重试的错误
// 各后端负责在自己的错误映射里打上这个标记，Classify 只认标记和几类通用错误。
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient 把 err 包装为可重试错误
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Classify 判断错误属于哪一档
// 超时 (net.Error.Timeout / context.DeadlineExceeded) 天然算 Transient，
// 其余默认 Permanent：宁可少重试，也不要对 403 反复撞墙。
func Classify(err error) Class {
	var te *transientError
	if errors.As(err, &te) {
		return Transient
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	return Permanent
}
