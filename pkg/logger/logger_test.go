package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	Use(slog.New(slog.NewJSONHandler(&buf, nil)))

	Named("proof").Info("generated", slog.String("proof_hash", "zk_proof_1_abc"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "proof" {
		t.Fatalf("unexpected component: %v", entry["component"])
	}
	if entry["proof_hash"] != "zk_proof_1_abc" {
		t.Fatalf("unexpected attrs: %v", entry)
	}
}

func TestInitWritesAuditFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit", "audit.log")

	err := Init(Config{
		Level:       "debug",
		Format:      "text",
		OutputPaths: []string{"stderr"},
		Audit:       AuditConfig{Enabled: true, Path: path},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	Audit().Info("consent revoked", slog.String("consent_id", "consent_1_x"))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), "consent_1_x") {
		t.Fatalf("audit entry missing: %s", data)
	}
}

func TestInitRejectsEmptyAuditPath(t *testing.T) {
	if err := Init(Config{Audit: AuditConfig{Enabled: true}}); err == nil {
		t.Fatal("expected error for empty audit path")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != slog.LevelWarn {
		t.Fatal("expected warn level")
	}
	if parseLevel("bogus") != slog.LevelInfo {
		t.Fatal("expected info fallback")
	}
}
