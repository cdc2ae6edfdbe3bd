package network

import (
	"context"
	"log/slog"

	"ProofBench/internal/benchmark"
	"ProofBench/internal/consent"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/observability/metrics"
	"ProofBench/internal/proof"
)

// RealAdapter stands in for an external attestation network. When the
// network is unconfigured or unreachable (and not strict) every call is
// served by the mock adapter and logged; otherwise every call fails with
// NOT_IMPLEMENTED.
type RealAdapter struct {
	mock   *MockAdapter
	info   Info
	logger *slog.Logger
}

var _ Adapter = (*RealAdapter)(nil)

func (r *RealAdapter) fallback(op string) bool {
	if !r.info.Fallback {
		return false
	}
	metrics.AdapterFallback(op)
	r.logger.Warn("real network unavailable, serving from mock",
		slog.String("operation", op),
		slog.String("reason", r.info.Reason))
	return true
}

func notImplemented(op string) error {
	return xerrors.New(xerrors.CodeNotImplemented, "Real network operation not implemented: "+op,
		xerrors.WithMetadata("operation", op))
}

// GenerateProof implements Adapter.
func (r *RealAdapter) GenerateProof(ctx context.Context, m benchmark.Metrics) (*proof.Artifact, error) {
	if r.fallback(OpGenerateProof) {
		return r.mock.GenerateProof(ctx, m)
	}
	return nil, notImplemented(OpGenerateProof)
}

// VerifyProof implements Adapter.
func (r *RealAdapter) VerifyProof(ctx context.Context, hash string) (*proof.Artifact, error) {
	if r.fallback(OpVerifyProof) {
		return r.mock.VerifyProof(ctx, hash)
	}
	return nil, notImplemented(OpVerifyProof)
}

// MintConsent implements Adapter.
func (r *RealAdapter) MintConsent(ctx context.Context, owner string, req consent.MintRequest) (*consent.Receipt, error) {
	if r.fallback(OpMintConsent) {
		return r.mock.MintConsent(ctx, owner, req)
	}
	return nil, notImplemented(OpMintConsent)
}

// VerifyConsent implements Adapter.
func (r *RealAdapter) VerifyConsent(ctx context.Context, id string) (*consent.Record, error) {
	if r.fallback(OpVerifyConsent) {
		return r.mock.VerifyConsent(ctx, id)
	}
	return nil, notImplemented(OpVerifyConsent)
}

// RevokeConsent implements Adapter.
func (r *RealAdapter) RevokeConsent(ctx context.Context, identity, id string) (*consent.Receipt, error) {
	if r.fallback(OpRevokeConsent) {
		return r.mock.RevokeConsent(ctx, identity, id)
	}
	return nil, notImplemented(OpRevokeConsent)
}

// Info implements Adapter.
func (r *RealAdapter) Info() Info {
	return r.info
}
