package main

import (
	"context"
	"testing"

	"ProofBench/internal/config"
	"ProofBench/internal/events"
	"ProofBench/internal/network"
	"ProofBench/internal/proof"
)

func TestLoadReferenceSetDefaults(t *testing.T) {
	refs, err := loadReferenceSet(config.BenchmarkConfig{DefaultIndustry: "saas"})
	if err != nil {
		t.Fatalf("load reference set: %v", err)
	}
	if refs == nil {
		t.Fatal("expected built-in reference set")
	}
	if _, err := loadReferenceSet(config.BenchmarkConfig{DefaultIndustry: "mining"}); err == nil {
		t.Fatal("expected unknown default industry to fail")
	}
}

func TestOpenStoresWithMemoryDrivers(t *testing.T) {
	ctx := context.Background()
	res := &resources{}

	ps, err := openProofStore(ctx, config.StoreConfig{Driver: config.DriverMemory}, res)
	if err != nil {
		t.Fatalf("proof store: %v", err)
	}
	if _, ok := ps.(*proof.MemoryStore); !ok {
		t.Fatalf("unexpected proof store %T", ps)
	}
	if _, err := openConsentStore(ctx, config.StoreConfig{Driver: config.DriverMemory}, res); err != nil {
		t.Fatalf("consent store: %v", err)
	}
	if _, err := openChallengeStore(ctx, config.StoreConfig{Driver: config.DriverMemory}, res); err != nil {
		t.Fatalf("challenge store: %v", err)
	}
	if len(res.closers) != 0 {
		t.Fatalf("memory stores should not register closers, got %d", len(res.closers))
	}

	for _, driver := range []string{"sqlite", ""} {
		if _, err := openProofStore(ctx, config.StoreConfig{Driver: driver}, res); err == nil {
			t.Fatalf("expected driver %q to be rejected", driver)
		}
	}
	if _, err := openConsentStore(ctx, config.StoreConfig{Driver: config.DriverRedis}, res); err == nil {
		t.Fatal("consents do not support redis")
	}
	if _, err := openChallengeStore(ctx, config.StoreConfig{Driver: config.DriverMySQL}, res); err == nil {
		t.Fatal("challenges do not support mysql")
	}
}

func TestOpenPublisher(t *testing.T) {
	ctx := context.Background()
	res := &resources{}

	p, err := openPublisher(ctx, config.EventsConfig{Driver: config.EventsNoop}, res)
	if err != nil {
		t.Fatalf("noop publisher: %v", err)
	}
	if p.Name() != "noop" {
		t.Fatalf("unexpected publisher %s", p.Name())
	}
	p, err = openPublisher(ctx, config.EventsConfig{Driver: config.EventsMemory}, res)
	if err != nil {
		t.Fatalf("memory publisher: %v", err)
	}
	if _, ok := p.(*events.MemoryPublisher); !ok {
		t.Fatalf("unexpected publisher %T", p)
	}
	if _, err := openPublisher(ctx, config.EventsConfig{Driver: "kafka"}, res); err == nil {
		t.Fatal("expected unknown events driver to fail")
	}
}

func TestSelectAdapterFallsBackWithoutEndpoint(t *testing.T) {
	cfg := &config.Config{Network: config.NetworkConfig{Mode: config.ModeReal}}
	adapter, err := selectAdapter(context.Background(), cfg, network.NewMockAdapter(nil, nil))
	if err != nil {
		t.Fatalf("select adapter: %v", err)
	}
	info := adapter.Info()
	if info.Requested != network.ModeReal || info.Effective != network.ModeMock || !info.Fallback {
		t.Fatalf("unexpected adapter info: %+v", info)
	}
}

func TestBuildAlerts(t *testing.T) {
	if d := buildAlerts(config.AlertingConfig{}); d != nil {
		t.Fatal("disabled alerting should not build a dispatcher")
	}
	d := buildAlerts(config.AlertingConfig{Enabled: true, Webhooks: []string{"http://127.0.0.1:1/hook"}})
	if d == nil {
		t.Fatal("expected dispatcher")
	}
}
