package consent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/events"
	"ProofBench/internal/ids"
	"ProofBench/internal/observability/metrics"
	"ProofBench/pkg/logger"
)

// RevokePolicy 控制撤销未知记录与非所有者撤销时的行为。
type RevokePolicy string

const (
	// RevokeStrict 对未知 ID 返回 CONSENT_NOT_FOUND，对非所有者返回 FORBIDDEN。
	RevokeStrict RevokePolicy = "strict"
	// RevokeLenient 保留旧行为：未知 ID 视为成功的空操作，不校验所有者。
	RevokeLenient RevokePolicy = "lenient"
)

const maxIDAttempts = 5

// Ledger 负责同意书的铸造、查询与撤销。
type Ledger struct {
	store     Store
	publisher events.Publisher
	policy    RevokePolicy
	clock     func() time.Time
	newID     func(time.Time) (string, error)
	newTxRef  func() (string, error)
	logger    *slog.Logger
	audit     *slog.Logger
}

// Option 定义 Ledger 的可选配置。
type Option func(*Ledger)

// WithClock 注入时钟。
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithPublisher 指定生命周期事件的发布器。
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) {
		if p != nil {
			l.publisher = p
		}
	}
}

// WithRevokePolicy 设置撤销策略。
func WithRevokePolicy(policy RevokePolicy) Option {
	return func(l *Ledger) {
		if policy != "" {
			l.policy = policy
		}
	}
}

// WithIDGenerator 替换同意书 ID 生成函数。
func WithIDGenerator(fn func(time.Time) (string, error)) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithTxRefGenerator 替换外部交易引用生成函数。
func WithTxRefGenerator(fn func() (string, error)) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.newTxRef = fn
		}
	}
}

// NewID 生成 consent_<毫秒>_<随机串> 形式的 ID。
func NewID(now time.Time) (string, error) {
	return ids.Timestamped(IDPrefix, now, 9)
}

// NewMockTxRef 生成 mock 网络的交易引用。
func NewMockTxRef() (string, error) {
	suffix, err := ids.Random(8)
	if err != nil {
		return "", err
	}
	return MockTxPrefix + suffix, nil
}

// NewLedger 创建同意书账本。
func NewLedger(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "consent store is required")
	}
	l := &Ledger{
		store:     store,
		publisher: events.NoopPublisher{},
		policy:    RevokeStrict,
		clock:     time.Now,
		newID:     NewID,
		newTxRef:  NewMockTxRef,
		logger:    logger.Named("consent"),
		audit:     logger.Audit(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	switch l.policy {
	case RevokeStrict, RevokeLenient:
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "unknown revoke policy "+string(l.policy))
	}
	return l, nil
}

// Policy 返回当前撤销策略。
func (l *Ledger) Policy() RevokePolicy {
	return l.policy
}

// Mint 以调用方身份为所有者创建一条有效的同意书。
func (l *Ledger) Mint(ctx context.Context, owner string, req MintRequest) (*Receipt, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return nil, xerrors.New(xerrors.CodeUnauthorized, "Authenticated owner is required")
	}
	if err := validateMint(req); err != nil {
		metrics.ConsentOperation("mint", metrics.OutcomeError)
		return nil, err
	}
	txRef, err := l.newTxRef()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, err, "generate transaction reference")
	}

	now := l.clock().UTC()
	record := &Record{
		DataRequestID: strings.TrimSpace(req.DataRequestID),
		CompanyID:     strings.TrimSpace(req.CompanyID),
		ProofHash:     req.ProofReference(),
		Owner:         owner,
		Valid:         true,
		CreatedAt:     now,
		TxRef:         txRef,
	}
	for attempt := 0; ; attempt++ {
		id, err := l.newID(now)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInternal, err, "generate consent id")
		}
		record.ID = id
		err = l.store.Insert(ctx, record)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConsentConflict) || attempt+1 >= maxIDAttempts {
			metrics.ConsentOperation("mint", metrics.OutcomeError)
			return nil, storageError(err, "store consent record")
		}
	}

	metrics.ConsentOperation("mint", metrics.OutcomeOK)
	l.audit.Info("consent_minted",
		slog.String("consent_id", record.ID),
		slog.String("owner", owner),
		slog.String("company_id", record.CompanyID),
		slog.String("data_request_id", record.DataRequestID))
	l.publish(ctx, events.New(events.ConsentMinted, record.ID, record.CompanyID, owner, txRef, now))
	return &Receipt{ConsentID: record.ID, TxRef: txRef}, nil
}

func validateMint(req MintRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.DataRequestID) == "" {
		fields["dataRequestId"] = "Data request ID is required"
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		fields["companyId"] = "Company ID is required"
	}
	if strings.TrimSpace(req.PrivateDataHash) == "" {
		fields["privateDataHash"] = "Private data hash is required"
	}
	if !req.HasProof() {
		fields["proof"] = "Proof is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return xerrors.Validation("Missing required fields", fields)
}

// Lookup 返回记录，不存在时返回 ErrConsentNotFound。
func (l *Ledger) Lookup(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrConsentNotFound
	}
	record, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsentNotFound) {
			metrics.ConsentOperation("lookup", metrics.OutcomeNotFound)
			return nil, ErrConsentNotFound
		}
		metrics.ConsentOperation("lookup", metrics.OutcomeError)
		return nil, storageError(err, "load consent record")
	}
	metrics.ConsentOperation("lookup", metrics.OutcomeOK)
	return record, nil
}

// Revoke 将记录迁移到 Revoked 状态。重复撤销为幂等操作，返回原有交易引用。
func (l *Ledger) Revoke(ctx context.Context, identity, id string) (*Receipt, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	id = strings.TrimSpace(id)
	if identity == "" {
		return nil, xerrors.New(xerrors.CodeUnauthorized, "Authenticated owner is required")
	}
	if id == "" {
		return nil, xerrors.Validation("Consent ID is required", map[string]string{"consentId": "Consent ID is required"})
	}

	txRef, err := l.newTxRef()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, err, "generate transaction reference")
	}
	now := l.clock().UTC()
	changed := false
	record, err := l.store.Update(ctx, id, func(r *Record) error {
		if l.policy == RevokeStrict && !strings.EqualFold(r.Owner, identity) {
			return ErrNotOwner
		}
		changed = r.revoke(txRef, now)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrConsentNotFound):
		if l.policy == RevokeLenient {
			metrics.ConsentOperation("revoke", metrics.OutcomeNotFound)
			l.logger.Warn("revoke of unknown consent treated as no-op", slog.String("consent_id", id))
			return &Receipt{ConsentID: id, TxRef: txRef}, nil
		}
		metrics.ConsentOperation("revoke", metrics.OutcomeNotFound)
		return nil, ErrConsentNotFound
	case errors.Is(err, ErrNotOwner):
		metrics.ConsentOperation("revoke", "forbidden")
		l.audit.Warn("consent_revoke_denied",
			slog.String("consent_id", id),
			slog.String("identity", identity))
		return nil, ErrNotOwner
	default:
		metrics.ConsentOperation("revoke", metrics.OutcomeError)
		return nil, storageError(err, "revoke consent record")
	}

	metrics.ConsentOperation("revoke", metrics.OutcomeOK)
	if changed {
		l.audit.Info("consent_revoked",
			slog.String("consent_id", id),
			slog.String("identity", identity))
		l.publish(ctx, events.New(events.ConsentRevoked, record.ID, record.CompanyID, record.Owner, record.TxRef, now))
	}
	return &Receipt{ConsentID: record.ID, TxRef: record.TxRef}, nil
}

// publish 在存储提交之后发布事件，失败只记录日志，不回滚。
func (l *Ledger) publish(ctx context.Context, event events.Event) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		metrics.EventPublishFailed(l.publisher.Name())
		l.logger.Warn("publish consent event failed",
			slog.String("event", string(event.Type)),
			slog.String("consent_id", event.ConsentID),
			slog.String("error", err.Error()))
	}
}

func storageError(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
