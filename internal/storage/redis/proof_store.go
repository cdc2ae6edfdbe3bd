package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ProofBench/internal/proof"
)

type proofClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// ProofStore 以 JSON 形式保存证明凭证，键不设置过期时间。
type ProofStore struct {
	client proofClient
	closer func() error
	prefix string
}

var _ proof.Store = (*ProofStore)(nil)

// NewProofStore 创建 ProofStore，closer 在 Close 时调用，可为空。
func NewProofStore(client proofClient, closer func() error, prefix string) *ProofStore {
	return &ProofStore{client: client, closer: closer, prefix: keyPrefix(prefix)}
}

func (s *ProofStore) key(hash string) string {
	return s.prefix + ":proof:" + hash
}

// Insert 实现 proof.Store 接口。
func (s *ProofStore) Insert(ctx context.Context, artifact *proof.Artifact) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("序列化证明凭证失败: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(artifact.Hash), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("Redis 写入证明凭证失败: %w", err)
	}
	if !created {
		return proof.ErrHashConflict
	}
	return nil
}

// Get 实现 proof.Store 接口。
func (s *ProofStore) Get(ctx context.Context, hash string) (*proof.Artifact, error) {
	payload, err := s.client.Get(ctx, s.key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, proof.ErrProofNotFound
		}
		return nil, fmt.Errorf("Redis 读取证明凭证失败: %w", err)
	}
	var artifact proof.Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("解析证明凭证失败: %w", err)
	}
	return &artifact, nil
}

// Close 实现 proof.Store 接口。
func (s *ProofStore) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
