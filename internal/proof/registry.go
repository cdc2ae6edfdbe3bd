package proof

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"ProofBench/internal/benchmark"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/observability/metrics"
	"ProofBench/pkg/logger"
)

const (
	subjectPrefix      = "company_"
	synthesizedSubject = "verified_company"
	synthesizedSamples = 13
	defaultHashRetries = 5
)

// Registry 负责生成、保存与验证证明凭证。
type Registry struct {
	store      Store
	refs       *benchmark.ReferenceSet
	clock      func() time.Time
	newHash    func(time.Time) (string, error)
	logger     *slog.Logger
	synthesize bool
	retries    int
}

// Option 定义 Registry 的可选配置。
type Option func(*Registry)

// WithClock 注入时钟，便于测试。
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger 指定日志实例。
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSynthesizedVerification 对格式正确但未知的哈希返回合成的验证结果。
// 仅用于 mock 网络的演示，合成结果带有 Synthesized 标记且不会写入存储。
func WithSynthesizedVerification(enabled bool) Option {
	return func(r *Registry) {
		r.synthesize = enabled
	}
}

// WithHashGenerator 替换哈希生成函数。
func WithHashGenerator(fn func(time.Time) (string, error)) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newHash = fn
		}
	}
}

// NewRegistry 创建证明注册表。refs 为空时使用内置参考数据。
func NewRegistry(store Store, refs *benchmark.ReferenceSet, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "proof store is required")
	}
	if refs == nil {
		refs = benchmark.DefaultReferenceSet()
	}
	r := &Registry{
		store:   store,
		refs:    refs,
		clock:   time.Now,
		newHash: NewHash,
		logger:  logger.Named("proof"),
		retries: defaultHashRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Synthesizes 返回是否启用合成验证。
func (r *Registry) Synthesizes() bool {
	return r.synthesize
}

// Generate 计算各指标百分位并保存一个新的证明凭证。
// 每次调用恰好插入一条记录；哈希冲突时重新生成，不会覆盖已有凭证。
func (r *Registry) Generate(ctx context.Context, m benchmark.Metrics) (*Artifact, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	dist, effective, fellBack := r.refs.Lookup(m.Industry)
	if fellBack {
		r.logger.Warn("no reference data for industry, using fallback distribution",
			slog.String("industry", string(m.Industry)),
			slog.String("reference_industry", string(effective)))
	}

	results := []Result{
		{Metric: benchmark.MetricRevenue, Percentile: benchmark.PercentileRank(m.Revenue, dist.Revenue), SampleSize: len(dist.Revenue)},
		{Metric: benchmark.MetricEmployees, Percentile: benchmark.PercentileRank(float64(m.Employees), dist.Employees), SampleSize: len(dist.Employees)},
	}
	for _, name := range m.CustomNames() {
		samples, ok := dist.Custom[name]
		if !ok || len(samples) == 0 {
			r.logger.Debug("custom metric has no reference distribution", slog.String("metric", name))
			continue
		}
		results = append(results, Result{
			Metric:     name,
			Percentile: benchmark.PercentileRank(m.Custom[name], samples),
			SampleSize: len(samples),
		})
	}

	now := r.clock().UTC()
	artifact := &Artifact{
		SubjectID:         subjectPrefix + uuid.NewString()[:8],
		Results:           results,
		CreatedAt:         now,
		Verified:          true,
		Industry:          m.Industry,
		ReferenceIndustry: effective,
	}

	for attempt := 0; attempt < r.retries; attempt++ {
		hash, err := r.newHash(now)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInternal, err, "generate proof hash")
		}
		artifact.Hash = hash
		err = r.store.Insert(ctx, artifact)
		if err == nil {
			metrics.ProofGenerated(string(effective), fellBack)
			r.logger.Info("proof generated",
				slog.String("proof_hash", hash),
				slog.String("industry", string(m.Industry)))
			return artifact.Clone(), nil
		}
		if !errors.Is(err, ErrHashConflict) {
			return nil, storageError(err, "store proof artifact")
		}
		r.logger.Warn("proof hash collision, regenerating", slog.String("proof_hash", hash))
	}
	return nil, xerrors.New(xerrors.CodeInternal, "could not allocate a unique proof hash")
}

// Verify 返回哈希对应的凭证。格式错误或不存在时返回 ErrProofNotFound，
// 不会对存储做任何修改。
func (r *Registry) Verify(ctx context.Context, hash string) (*Artifact, error) {
	if !ValidHash(hash) {
		metrics.ProofVerified(metrics.OutcomeMalformed)
		return nil, ErrProofNotFound
	}
	artifact, err := r.store.Get(ctx, hash)
	switch {
	case err == nil:
		metrics.ProofVerified(metrics.OutcomeFound)
		return artifact, nil
	case errors.Is(err, ErrProofNotFound):
		if r.synthesize {
			metrics.ProofVerified(metrics.OutcomeSynthesized)
			r.logger.Debug("synthesizing verification for unknown proof", slog.String("proof_hash", hash))
			return r.synthesized(hash), nil
		}
		metrics.ProofVerified(metrics.OutcomeNotFound)
		return nil, ErrProofNotFound
	default:
		metrics.ProofVerified(metrics.OutcomeError)
		return nil, storageError(err, "load proof artifact")
	}
}

func (r *Registry) synthesized(hash string) *Artifact {
	percentile := func() int { return rand.Intn(90) + benchmark.MinPercentile }
	return &Artifact{
		Hash:      hash,
		SubjectID: synthesizedSubject,
		Results: []Result{
			{Metric: benchmark.MetricRevenue, Percentile: percentile(), SampleSize: synthesizedSamples},
			{Metric: benchmark.MetricEmployees, Percentile: percentile(), SampleSize: synthesizedSamples},
		},
		CreatedAt:         r.clock().UTC(),
		Verified:          true,
		Industry:          benchmark.IndustrySaaS,
		ReferenceIndustry: benchmark.IndustrySaaS,
		Synthesized:       true,
	}
}

func storageError(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
