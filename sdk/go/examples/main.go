package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"ProofBench/internal/api"
	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	"ProofBench/internal/consent"
	"ProofBench/internal/network"
	"ProofBench/internal/proof"
	"ProofBench/sdk/go/proofbench"
)

// main 启动一个内存版服务，并用 SDK 走完提交、验证、登录、授权与撤销的完整流程。
func main() {
	registry, err := proof.NewRegistry(proof.NewMemoryStore(), nil)
	if err != nil {
		panic(err)
	}
	ledger, err := consent.NewLedger(consent.NewMemoryStore())
	if err != nil {
		panic(err)
	}
	authSvc, err := auth.NewService(auth.Config{Secret: "demo-secret", VerifySignatures: true}, auth.NewMemoryChallengeStore())
	if err != nil {
		panic(err)
	}
	server, err := api.NewServer(api.Options{}, network.NewMockAdapter(registry, ledger),
		benchmark.NewCatalog(benchmark.DefaultReferenceSet(), nil), authSvc,
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		panic(err)
	}

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	client, err := proofbench.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := client.Submit(ctx, proofbench.Metrics{Revenue: 42_000_000, Employees: 180, Industry: "saas"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("proof %s for %s\n", p.ProofHash, p.CompanyID)
	for _, r := range p.Results {
		fmt.Printf("  %s: p%d of %d samples\n", r.Metric, r.Percentile, r.SampleSize)
	}

	verified, err := client.VerifyProof(ctx, p.ProofHash)
	if err != nil {
		panic(err)
	}
	fmt.Printf("verified=%v\n", verified.Verified)

	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	token, err := client.Login(ctx, address, func(message string) (string, error) {
		return auth.SignMessage(key, message)
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("logged in as %s until %s\n", token.Address, token.ExpiresAt.Format(time.RFC3339))

	receipt, err := client.MintConsent(ctx, proofbench.MintRequest{
		DataRequestID:   "req-demo",
		CompanyID:       p.CompanyID,
		PrivateDataHash: "0xfeedface",
		Proof:           p.ProofHash,
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("minted consent %s (tx %s)\n", receipt.ConsentID, receipt.TxHash)

	if _, err := client.RevokeConsent(ctx, receipt.ConsentID); err != nil {
		panic(err)
	}
	record, err := client.GetConsent(ctx, receipt.ConsentID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("consent %s valid=%v revoked=%v\n", record.ConsentID, record.Valid, record.Revoked)
}
