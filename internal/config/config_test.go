package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proofbench.json")
	content := `{"network":{"definitions":"networks.yaml"},"benchmark":{"reference_data":"/abs/reference.yaml"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":3001" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Network.Mode != ModeMock || cfg.Consent.RevokePolicy != RevokeStrict {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Network, cfg.Consent)
	}
	if cfg.Auth.ChallengeTTLSeconds != 300 || cfg.Auth.TokenTTLSeconds != 3600 {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Network.Definitions != filepath.Join(dir, "networks.yaml") {
		t.Fatalf("definitions not resolved: %s", cfg.Network.Definitions)
	}
	if cfg.Benchmark.ReferenceData != "/abs/reference.yaml" {
		t.Fatalf("absolute path rewritten: %s", cfg.Benchmark.ReferenceData)
	}
	if cfg.Storage.Challenges.Driver != DriverMemory || cfg.Events.Driver != EventsNoop {
		t.Fatalf("unexpected driver defaults: %+v", cfg.Storage)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"PROOFBENCH_CONFIG":           filepath.Join(t.TempDir(), "missing.json"),
		"PROOFBENCH_NETWORK_MODE":     "REAL",
		"PROOFBENCH_NETWORK_RPC_URL":  "http://127.0.0.1:8545",
		"PROOFBENCH_NETWORK_CONTRACT": "0xabc",
	}
	// 显式指定的配置文件不存在时应报错。
	if _, err := fromEnvironment(func(k string) string { return env[k] }); err == nil {
		t.Fatal("expected error for explicit missing config")
	}

	delete(env, "PROOFBENCH_CONFIG")
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cfg, err := fromEnvironment(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("from environment: %v", err)
	}
	if cfg.Network.Mode != ModeReal {
		t.Fatalf("mode override not applied: %s", cfg.Network.Mode)
	}
	if cfg.Network.RPCURL != "http://127.0.0.1:8545" || cfg.Network.ContractAddress != "0xabc" {
		t.Fatalf("network overrides not applied: %+v", cfg.Network)
	}
	if cfg.StrictNetwork() {
		t.Fatal("development must not be strict by default")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Network.Mode = "hybrid" }, "未知网络模式"},
		{"bad policy", func(c *Config) { c.Consent.RevokePolicy = "maybe" }, "未知撤销策略"},
		{"mysql without dsn", func(c *Config) { c.Storage.Consents.Driver = DriverMySQL }, "storage.consents.dsn"},
		{"redis consents", func(c *Config) { c.Storage.Consents.Driver = DriverRedis }, "不支持驱动"},
		{"production secret", func(c *Config) { c.Server.Environment = EnvProduction }, "jwt_secret"},
		{"rabbit url", func(c *Config) { c.Events.Driver = EventsRabbitMQ }, "rabbitmq.url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestStrictNetwork(t *testing.T) {
	cfg := Default()
	cfg.Server.Environment = EnvProduction
	if !cfg.StrictNetwork() {
		t.Fatal("production should default to strict")
	}
	off := false
	cfg.Network.Strict = &off
	if cfg.StrictNetwork() {
		t.Fatal("explicit strict=false must win")
	}
}
