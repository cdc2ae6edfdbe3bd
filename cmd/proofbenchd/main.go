package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ProofBench/internal/api"
	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	"ProofBench/internal/config"
	"ProofBench/internal/consent"
	"ProofBench/internal/network"
	"ProofBench/internal/proof"
	"ProofBench/pkg/logger"
)

// main 是 ProofBench 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("proofbenchd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
			Compress:   cfg.Logging.Audit.Compress,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()
	lg := logger.Named("proofbenchd")

	refs, err := loadReferenceSet(cfg.Benchmark)
	if err != nil {
		return err
	}

	res := &resources{}
	defer res.close(lg)

	proofStore, err := openProofStore(ctx, cfg.Storage.Proofs, res)
	if err != nil {
		return err
	}
	consentStore, err := openConsentStore(ctx, cfg.Storage.Consents, res)
	if err != nil {
		return err
	}
	challengeStore, err := openChallengeStore(ctx, cfg.Storage.Challenges, res)
	if err != nil {
		return err
	}
	publisher, err := openPublisher(ctx, cfg.Events, res)
	if err != nil {
		return err
	}

	synthesize := cfg.Network.SynthesizeUnknownProofs && cfg.Network.Mode == config.ModeMock
	registry, err := proof.NewRegistry(proofStore, refs, proof.WithSynthesizedVerification(synthesize))
	if err != nil {
		return err
	}
	ledger, err := consent.NewLedger(consentStore,
		consent.WithPublisher(publisher),
		consent.WithRevokePolicy(consent.RevokePolicy(cfg.Consent.RevokePolicy)))
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.Config{
		Secret:           cfg.Auth.JWTSecret,
		Issuer:           cfg.Auth.Issuer,
		TokenTTL:         time.Duration(cfg.Auth.TokenTTLSeconds) * time.Second,
		ChallengeTTL:     time.Duration(cfg.Auth.ChallengeTTLSeconds) * time.Second,
		VerifySignatures: cfg.Auth.VerifySignatures,
	}, challengeStore)
	if err != nil {
		return err
	}

	adapter, err := selectAdapter(ctx, cfg, network.NewMockAdapter(registry, ledger))
	if err != nil {
		return err
	}
	info := adapter.Info()
	lg.Info("network adapter selected",
		slog.String("requested", string(info.Requested)),
		slog.String("effective", string(info.Effective)),
		slog.Bool("fallback", info.Fallback),
		slog.String("reason", info.Reason))

	server, err := api.NewServer(api.Options{
		Address:         cfg.Server.Address,
		Production:      cfg.IsProduction(),
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		MaxBodyBytes:    cfg.Server.MaxRequestBodyBytes,
	}, adapter, benchmark.NewCatalog(refs, nil), authSvc, api.WithAlerts(buildAlerts(cfg.Alerting)))
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Start(groupCtx)
	})
	group.Go(func() error {
		return authSvc.RunSweeper(groupCtx, time.Duration(cfg.Auth.SweepIntervalSeconds)*time.Second)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("proofbenchd stopped")
	return nil
}
