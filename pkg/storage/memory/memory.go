// Package memory 提供内存版的 storage.Store
// 主要用于测试和本地实验：行为与真实后端一致，但数据不落盘。
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"lfsvault/pkg/storage"
	"lfsvault/pkg/types"
)

type Store struct {
	mu      sync.RWMutex
	objects map[types.OID][]byte
}

func New() *Store {
	return &Store{objects: make(map[types.OID][]byte)}
}

func (s *Store) Provider() string { return "memory" }

func (s *Store) Exists(ctx context.Context, oid types.OID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[oid]
	return ok, nil
}

func (s *Store) Put(ctx context.Context, oid types.OID, size int64, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[oid] = data
	return nil
}

func (s *Store) Get(ctx context.Context, oid types.OID) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[oid]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len 返回对象数量 (测试用)
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Delete 移除一个对象 (测试用，模拟远端丢对象的场景)
func (s *Store) Delete(oid types.OID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, oid)
}
