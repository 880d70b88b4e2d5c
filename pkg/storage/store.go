package storage

import (
	"context"
	"errors"
	"io"

	"lfsvault/pkg/types"
)

var (
	ErrNotFound = errors.New("object not found")
)

// Store defines the interface for a remote content storage backend.
// Implementations can be S3-compatible object storage, or in-memory storage for tests.
//
// 所有操作都以内容 Hash (OID) 为 Key，write-once：
// 同一个 OID 永远对应同样的字节，所以重复 Put 是无害的 no-op。
type Store interface {
	// Exists 检查对象是否存在 (用于去重逻辑，避免重复上传)
	Exists(ctx context.Context, oid types.OID) (bool, error)

	// Put 上传对象
	// size 是已知的字节总数 (S3 PutObject 需要 Content-Length)
	Put(ctx context.Context, oid types.OID, size int64, r io.Reader) error

	// Get 根据 OID 读取原始数据
	// 注意：这里返回的是 io.ReadCloser 而不是 []byte
	// 原因：为了支持大文件的流式读取 (Stream)，避免一次性把 100MB 读进内存
	Get(ctx context.Context, oid types.OID) (io.ReadCloser, error)

	// Provider 返回后端名称 (用于 CLI 输出)
	Provider() string
}
