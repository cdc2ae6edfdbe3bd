package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type 表示事件类型。
type Type string

const (
	ConsentMinted  Type = "consent.minted"
	ConsentRevoked Type = "consent.revoked"
)

// Event 描述一次同意书生命周期变化，在存储提交之后发布。
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	ConsentID  string    `json:"consentId"`
	CompanyID  string    `json:"companyId,omitempty"`
	Owner      string    `json:"owner"`
	TxRef      string    `json:"txHash,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New 创建带随机 ID 的事件。
func New(t Type, consentID, companyID, owner, txRef string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ConsentID:  consentID,
		CompanyID:  companyID,
		Owner:      owner,
		TxRef:      txRef,
		OccurredAt: at.UTC(),
	}
}

// Encode 将事件序列化为 JSON。
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 抽象事件发布通道。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Name() string
	Close() error
}

// NoopPublisher 丢弃所有事件。
type NoopPublisher struct{}

// Publish 实现 Publisher 接口。
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Name 实现 Publisher 接口。
func (NoopPublisher) Name() string { return "noop" }

// Close 实现 Publisher 接口。
func (NoopPublisher) Close() error { return nil }

// MemoryPublisher 在内存中记录事件，主要用于测试与本地调试。
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewMemoryPublisher 创建 MemoryPublisher。
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// FailWith 让后续 Publish 返回指定错误。
func (m *MemoryPublisher) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Publish 实现 Publisher 接口。
func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// Events 返回已记录事件的副本。
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Name 实现 Publisher 接口。
func (m *MemoryPublisher) Name() string { return "memory" }

// Close 实现 Publisher 接口。
func (m *MemoryPublisher) Close() error { return nil }
