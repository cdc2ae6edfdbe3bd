package network

import (
	"context"

	"ProofBench/internal/benchmark"
	"ProofBench/internal/consent"
	"ProofBench/internal/proof"
)

// Mode selects the adapter implementation.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeReal Mode = "real"
)

// Operation names, used in logs, metrics and errors.
const (
	OpGenerateProof = "generate_proof"
	OpVerifyProof   = "verify_proof"
	OpMintConsent   = "mint_consent"
	OpVerifyConsent = "verify_consent"
	OpRevokeConsent = "revoke_consent"
)

// Adapter is the capability set every network backend provides. Call sites
// depend only on this interface; the implementation is chosen once at
// startup.
type Adapter interface {
	GenerateProof(ctx context.Context, metrics benchmark.Metrics) (*proof.Artifact, error)
	VerifyProof(ctx context.Context, hash string) (*proof.Artifact, error)
	MintConsent(ctx context.Context, owner string, req consent.MintRequest) (*consent.Receipt, error)
	VerifyConsent(ctx context.Context, id string) (*consent.Record, error)
	RevokeConsent(ctx context.Context, identity, id string) (*consent.Receipt, error)
	Info() Info
}

// Info reports which backend is actually serving requests.
type Info struct {
	Requested   Mode   `json:"requested"`
	Effective   Mode   `json:"effective"`
	Fallback    bool   `json:"fallback"`
	Reason      string `json:"reason,omitempty"`
	Network     string `json:"network,omitempty"`
	Contract    string `json:"contract,omitempty"`
	ChainID     string `json:"chainId,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// MockAdapter serves every operation from the in-process registry and ledger.
type MockAdapter struct {
	proofs   *proof.Registry
	consents *consent.Ledger
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter wires the in-process engine.
func NewMockAdapter(proofs *proof.Registry, consents *consent.Ledger) *MockAdapter {
	return &MockAdapter{proofs: proofs, consents: consents}
}

// GenerateProof implements Adapter.
func (m *MockAdapter) GenerateProof(ctx context.Context, metrics benchmark.Metrics) (*proof.Artifact, error) {
	return m.proofs.Generate(ctx, metrics)
}

// VerifyProof implements Adapter.
func (m *MockAdapter) VerifyProof(ctx context.Context, hash string) (*proof.Artifact, error) {
	return m.proofs.Verify(ctx, hash)
}

// MintConsent implements Adapter.
func (m *MockAdapter) MintConsent(ctx context.Context, owner string, req consent.MintRequest) (*consent.Receipt, error) {
	return m.consents.Mint(ctx, owner, req)
}

// VerifyConsent implements Adapter.
func (m *MockAdapter) VerifyConsent(ctx context.Context, id string) (*consent.Record, error) {
	return m.consents.Lookup(ctx, id)
}

// RevokeConsent implements Adapter.
func (m *MockAdapter) RevokeConsent(ctx context.Context, identity, id string) (*consent.Receipt, error) {
	return m.consents.Revoke(ctx, identity, id)
}

// Info implements Adapter.
func (m *MockAdapter) Info() Info {
	return Info{Requested: ModeMock, Effective: ModeMock}
}
