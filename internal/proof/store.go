package proof

import (
	"context"
	"sync"
)

// Store 抽象了证明凭证的持久化接口。
// Insert 在哈希已存在时必须返回 ErrHashConflict 且不覆盖原记录；
// Get 在不存在时返回 ErrProofNotFound。
type Store interface {
	Insert(ctx context.Context, artifact *Artifact) error
	Get(ctx context.Context, hash string) (*Artifact, error)
	Close() error
}

// MemoryStore 以内存方式保存证明凭证，进程重启即丢失。
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[string]*Artifact)}
}

// Insert 实现 Store 接口。
func (m *MemoryStore) Insert(_ context.Context, artifact *Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[artifact.Hash]; ok {
		return ErrHashConflict
	}
	m.artifacts[artifact.Hash] = artifact.Clone()
	return nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, hash string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	artifact, ok := m.artifacts[hash]
	if !ok {
		return nil, ErrProofNotFound
	}
	return artifact.Clone(), nil
}

// Len 返回已保存的凭证数量。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}

// Close 实现 Store 接口。
func (m *MemoryStore) Close() error { return nil }
