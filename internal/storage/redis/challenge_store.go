package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ProofBench/internal/auth"
)

// expiryGrace 让键在逻辑过期后再多保留一会儿，过期判定以脚本中的时间比较为准。
const expiryGrace = time.Second

// redeemScript 原子地校验 nonce 与过期时间，成功时删除键并返回 1。
const redeemScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
local challenge = cjson.decode(raw)
if challenge.nonce ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[2]) > tonumber(challenge.expires_at_ms) then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`

type challengeClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

type storedChallenge struct {
	Nonce       string `json:"nonce"`
	ExpiresAtMS int64  `json:"expires_at_ms"`
}

// ChallengeStore 将待兑换的挑战保存在 Redis 中，每个身份一个键。
type ChallengeStore struct {
	client challengeClient
	prefix string
	clock  func() time.Time
}

var _ auth.ChallengeStore = (*ChallengeStore)(nil)

// NewChallengeStore 创建 ChallengeStore。clock 为空时使用 time.Now。
func NewChallengeStore(client challengeClient, prefix string, clock func() time.Time) *ChallengeStore {
	if clock == nil {
		clock = time.Now
	}
	return &ChallengeStore{client: client, prefix: keyPrefix(prefix), clock: clock}
}

func (s *ChallengeStore) key(identity string) string {
	return s.prefix + ":challenge:" + auth.NormalizeIdentity(identity)
}

// Put 实现 auth.ChallengeStore 接口，覆盖同一身份的旧挑战。
func (s *ChallengeStore) Put(ctx context.Context, challenge auth.Challenge) error {
	payload, err := json.Marshal(storedChallenge{
		Nonce:       challenge.Nonce,
		ExpiresAtMS: challenge.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("序列化挑战失败: %w", err)
	}
	ttl := challenge.ExpiresAt.Sub(s.clock()) + expiryGrace
	if ttl < expiryGrace {
		ttl = expiryGrace
	}
	if err := s.client.Set(ctx, s.key(challenge.Identity), payload, ttl).Err(); err != nil {
		return fmt.Errorf("Redis 写入挑战失败: %w", err)
	}
	return nil
}

// Redeem 实现 auth.ChallengeStore 接口。
func (s *ChallengeStore) Redeem(ctx context.Context, identity, nonce string, now time.Time) error {
	result, err := s.client.Eval(ctx, redeemScript, []string{s.key(identity)}, nonce, now.UnixMilli()).Int64()
	if err != nil {
		return fmt.Errorf("Redis 兑换挑战失败: %w", err)
	}
	if result != 1 {
		return auth.ErrInvalidChallenge
	}
	return nil
}

// Sweep 实现 auth.ChallengeStore 接口。过期由键的 TTL 处理，这里无需扫描。
func (s *ChallengeStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
