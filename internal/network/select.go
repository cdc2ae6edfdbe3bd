package network

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/network/evm"
	"ProofBench/pkg/logger"
)

const defaultProbeTimeout = 10 * time.Second

// Settings collects the knobs that decide which adapter serves requests.
type Settings struct {
	Mode            Mode
	Strict          bool
	Network         string
	RPCURL          string
	ContractAddress string
	APIKey          string
	Timeout         time.Duration
	Definitions     Definitions
}

// Probe is the outcome of a successful reachability check.
type Probe struct {
	ChainID     string
	BlockNumber uint64
}

// Prober checks that a real network endpoint answers and hosts the contract.
type Prober interface {
	Probe(ctx context.Context, rpcURL, apiKey, contract string) (Probe, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, rpcURL, apiKey, contract string) (Probe, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, rpcURL, apiKey, contract string) (Probe, error) {
	return f(ctx, rpcURL, apiKey, contract)
}

// EVMProber dials the endpoint with go-ethereum and checks the contract code.
type EVMProber struct{}

// Probe implements Prober.
func (EVMProber) Probe(ctx context.Context, rpcURL, apiKey, contract string) (Probe, error) {
	client, err := evm.Dial(ctx, evm.Config{RPCURL: rpcURL, APIKey: apiKey})
	if err != nil {
		return Probe{}, err
	}
	defer client.Close()
	snapshot, err := client.Snapshot(ctx)
	if err != nil {
		return Probe{}, err
	}
	deployed, err := client.HasContract(ctx, contract)
	if err != nil {
		return Probe{}, err
	}
	if !deployed {
		return Probe{}, fmt.Errorf("合约 %s 在链 %s 上不存在", contract, snapshot.ChainID)
	}
	return Probe{ChainID: snapshot.ChainID, BlockNumber: snapshot.BlockNumber}, nil
}

// Option customises adapter selection.
type Option func(*selector)

type selector struct {
	prober Prober
	logger *slog.Logger
}

// WithProber replaces the EVM prober.
func WithProber(p Prober) Option {
	return func(s *selector) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithLogger overrides the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// New picks the adapter once at startup. Mock mode returns mock directly.
// Real mode probes the endpoint and either returns a not-implemented real
// adapter, a fallback adapter that delegates to mock, or (when strict) an
// ADAPTER_UNAVAILABLE error.
func New(ctx context.Context, settings Settings, mock *MockAdapter, opts ...Option) (Adapter, error) {
	if mock == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "mock adapter is required")
	}
	sel := selector{prober: EVMProber{}, logger: logger.Named("network")}
	for _, opt := range opts {
		if opt != nil {
			opt(&sel)
		}
	}

	mode := Mode(strings.ToLower(strings.TrimSpace(string(settings.Mode))))
	switch mode {
	case "", ModeMock:
		return mock, nil
	case ModeReal:
	default:
		return nil, xerrors.New(xerrors.CodeValidation, fmt.Sprintf("unknown network mode %q", settings.Mode))
	}

	resolved, err := resolve(settings)
	if err != nil {
		return nil, err
	}
	info := Info{
		Requested: ModeReal,
		Effective: ModeReal,
		Network:   resolved.Network,
		Contract:  resolved.ContractAddress,
	}

	fallback := func(reason string) (Adapter, error) {
		info.Effective = ModeMock
		info.Fallback = true
		info.Reason = reason
		sel.logger.Warn("real network adapter falling back to mock",
			slog.String("network", info.Network),
			slog.String("reason", reason))
		return &RealAdapter{mock: mock, info: info, logger: sel.logger}, nil
	}

	if resolved.RPCURL == "" || resolved.ContractAddress == "" {
		// 缺少配置时即使 strict 也回退，由 Info 暴露原因。
		return fallback("rpc_url or contract_address not configured")
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	probe, err := sel.prober.Probe(probeCtx, resolved.RPCURL, resolved.APIKey, resolved.ContractAddress)
	if err != nil {
		if settings.Strict {
			return nil, xerrors.Wrap(xerrors.CodeAdapterUnavailable, err, "Real network unreachable",
				xerrors.WithMetadata("network", info.Network))
		}
		return fallback("probe failed: " + err.Error())
	}

	info.ChainID = probe.ChainID
	info.BlockNumber = probe.BlockNumber
	sel.logger.Info("real network adapter ready",
		slog.String("network", info.Network),
		slog.String("chain_id", probe.ChainID),
		slog.Uint64("block", probe.BlockNumber))
	return &RealAdapter{mock: mock, info: info, logger: sel.logger}, nil
}

// resolve merges a named network definition with explicit settings, the
// latter taking precedence.
func resolve(settings Settings) (Settings, error) {
	out := settings
	out.RPCURL = strings.TrimSpace(out.RPCURL)
	out.ContractAddress = strings.TrimSpace(out.ContractAddress)
	name := strings.TrimSpace(settings.Network)
	if name == "" {
		return out, nil
	}
	def, ok := settings.Definitions.Networks[name]
	if !ok {
		return Settings{}, xerrors.New(xerrors.CodeValidation, fmt.Sprintf("network %q is not defined", name))
	}
	if out.RPCURL == "" {
		out.RPCURL = strings.TrimSpace(def.RPCURL)
	}
	if out.ContractAddress == "" {
		out.ContractAddress = strings.TrimSpace(def.ContractAddress)
	}
	return out, nil
}
