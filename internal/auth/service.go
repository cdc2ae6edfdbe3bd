package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/observability/metrics"
	"ProofBench/pkg/logger"
)

const (
	defaultTokenTTL     = time.Hour
	defaultChallengeTTL = 5 * time.Minute
	nonceBytes          = 16
)

// Service 实现挑战应答登录与 Bearer Token 校验。
type Service struct {
	store    ChallengeStore
	verifier SignatureVerifier
	tokens   *tokenManager
	clock    func() time.Time
	ttl      time.Duration
	logger   *slog.Logger
	audit    *slog.Logger
}

// Option 定义 Service 的可选配置。
type Option func(*Service)

// WithClock 注入时钟。
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithVerifier 覆盖签名校验器。
func WithVerifier(v SignatureVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithAuditLogger 指定审计日志。
func WithAuditLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// NewService 构造身份认证服务实例。
// 未配置密钥时生成进程级随机密钥，重启后已签发的令牌全部失效。
func NewService(cfg Config, store ChallengeStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "challenge store is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = defaultChallengeTTL
	}
	svc := &Service{
		store:  store,
		clock:  time.Now,
		ttl:    cfg.ChallengeTTL,
		logger: logger.Named("auth"),
		audit:  logger.Audit(),
	}
	if cfg.VerifySignatures {
		svc.verifier = EthereumVerifier{}
	} else {
		svc.verifier = AcceptAnySignature{}
	}

	secret := []byte(cfg.Secret)
	if strings.TrimSpace(cfg.Secret) == "" {
		generated := make([]byte, 32)
		if _, err := rand.Read(generated); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		secret = generated
		svc.logger.Warn("jwt secret not configured, using an ephemeral secret")
	}
	svc.tokens = &tokenManager{secret: secret, issuer: cfg.Issuer, ttl: cfg.TokenTTL}

	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if _, ok := svc.verifier.(AcceptAnySignature); ok {
		svc.logger.Warn("signature verification disabled, any signature is accepted")
	}
	return svc, nil
}

// IssueChallenge 为身份生成新的随机 nonce，覆盖之前未使用的挑战。
func (s *Service) IssueChallenge(ctx context.Context, identity string) (*Challenge, error) {
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return nil, xerrors.Validation("Address is required", map[string]string{"address": "Address is required"})
	}
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, err, "generate nonce")
	}
	challenge := Challenge{
		Identity:  identity,
		Nonce:     hex.EncodeToString(buf),
		ExpiresAt: s.clock().Add(s.ttl).UTC(),
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		return nil, storageError(err, "store challenge")
	}
	metrics.ChallengeEvent("issued", 1)
	s.logger.Debug("challenge issued", slog.String("identity", identity))
	return &challenge, nil
}

// Redeem 校验签名并消费挑战，成功后签发 Bearer Token。
// 签名校验先于消费，签名错误不会使挑战失效。
func (s *Service) Redeem(ctx context.Context, identity, signature, nonce string) (*Token, error) {
	identity = NormalizeIdentity(identity)
	fields := map[string]string{}
	if identity == "" {
		fields["address"] = "Address is required"
	}
	if strings.TrimSpace(signature) == "" {
		fields["signature"] = "Signature is required"
	}
	if strings.TrimSpace(nonce) == "" {
		fields["nonce"] = "Nonce is required"
	}
	if len(fields) > 0 {
		return nil, xerrors.Validation("Validation failed", fields)
	}

	if err := s.verifier.Verify(identity, nonce, signature); err != nil {
		s.reject(identity, "signature", err)
		return nil, xerrors.Wrap(xerrors.CodeInvalidChallenge, err, "Invalid signature")
	}

	now := s.clock()
	if err := s.store.Redeem(ctx, identity, nonce, now); err != nil {
		if xerrors.HasCode(err, xerrors.CodeInvalidChallenge) {
			s.reject(identity, "challenge", err)
			return nil, err
		}
		return nil, storageError(err, "redeem challenge")
	}

	token, err := s.tokens.issue(identity, now)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, err, "issue token")
	}
	metrics.ChallengeEvent("redeemed", 1)
	s.audit.Info("challenge_redeemed",
		slog.String("identity", identity),
		slog.Time("token_expires_at", token.ExpiresAt))
	return token, nil
}

func (s *Service) reject(identity, reason string, err error) {
	metrics.ChallengeEvent("rejected", 1)
	s.audit.Warn("challenge_rejected",
		slog.String("identity", identity),
		slog.String("reason", reason),
		slog.String("error", err.Error()))
}

// Authorize 校验令牌并返回绑定的身份。
func (s *Service) Authorize(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	identity, err := s.tokens.verify(token)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUnauthorized, err, ErrInvalidToken.Message())
	}
	return identity, nil
}

// AuthorizeHeader 解析 "Authorization: Bearer <token>" 头。
func (s *Service) AuthorizeHeader(header string) (*Identity, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrMissingToken
	}
	return s.Authorize(parts[1])
}

// RunSweeper 周期性清理过期挑战，直到 ctx 结束。
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 执行一次清理。
func (s *Service) SweepOnce(ctx context.Context) int {
	removed, err := s.store.Sweep(ctx, s.clock())
	if err != nil {
		s.logger.Warn("challenge sweep failed", slog.String("error", err.Error()))
		return 0
	}
	if removed > 0 {
		metrics.ChallengeEvent("swept", removed)
		s.logger.Debug("expired challenges swept", slog.Int("removed", removed))
	}
	return removed
}

func storageError(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
