package consent

import (
	"context"
	"sync"
)

// Store 抽象了同意书的持久化接口。
type Store interface {
	// Insert 保存新记录，ID 已存在时返回 ErrConsentConflict。
	Insert(ctx context.Context, record *Record) error
	// Get 返回记录副本，不存在时返回 ErrConsentNotFound。
	Get(ctx context.Context, id string) (*Record, error)
	// Update 在同一 ID 上原子地执行读-改-写；fn 返回错误时不做任何修改。
	Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error)
	Close() error
}

// MemoryStore 以内存方式保存同意书。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Insert 实现 Store 接口。
func (m *MemoryStore) Insert(_ context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; ok {
		return ErrConsentConflict
	}
	m.records[record.ID] = record.Clone()
	return nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, ErrConsentNotFound
	}
	return record.Clone(), nil
}

// Update 实现 Store 接口。
func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Record) error) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, ErrConsentNotFound
	}
	working := record.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.records[id] = working
	return working.Clone(), nil
}

// Close 实现 Store 接口。
func (m *MemoryStore) Close() error { return nil }
