package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	"ProofBench/internal/consent"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/network"
	"ProofBench/internal/proof"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
		Details string            `json:"details"`
	} `json:"error"`
}

type harness struct {
	t       *testing.T
	handler http.Handler
}

func newHarness(t *testing.T, production bool, wrap func(network.Adapter) network.Adapter) *harness {
	t.Helper()
	registry, err := proof.NewRegistry(proof.NewMemoryStore(), benchmark.DefaultReferenceSet())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ledger, err := consent.NewLedger(consent.NewMemoryStore())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	var adapter network.Adapter = network.NewMockAdapter(registry, ledger)
	if wrap != nil {
		adapter = wrap(adapter)
	}
	authSvc, err := auth.NewService(auth.Config{Secret: "test-secret", Issuer: "proofbench"}, auth.NewMemoryChallengeStore())
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	server, err := NewServer(Options{Production: production}, adapter,
		benchmark.NewCatalog(benchmark.DefaultReferenceSet(), nil), authSvc,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return &harness{t: t, handler: server.Handler()}
}

func (h *harness) do(method, path, token string, body interface{}) (int, testEnvelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		h.t.Fatalf("decode %s %s (%d): %v: %s", method, path, rec.Code, err, rec.Body.String())
	}
	return rec.Code, env
}

func (h *harness) login(address string) string {
	h.t.Helper()
	status, env := h.do(http.MethodGet, "/api/auth/challenge?address="+address, "", nil)
	if status != http.StatusOK {
		h.t.Fatalf("challenge status %d", status)
	}
	var challenge struct {
		Nonce string `json:"nonce"`
	}
	_ = json.Unmarshal(env.Data, &challenge)

	status, env = h.do(http.MethodPost, "/api/auth/verify", "", map[string]string{
		"address": address, "signature": "0xsigned", "nonce": challenge.Nonce,
	})
	if status != http.StatusOK {
		h.t.Fatalf("verify status %d: %+v", status, env.Error)
	}
	var token struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(env.Data, &token)
	return token.Token
}

func TestSubmitAndVerifyProof(t *testing.T) {
	h := newHarness(t, false, nil)

	status, env := h.do(http.MethodPost, "/api/benchmarks/submit", "", map[string]interface{}{
		"revenue": 50000000, "employees": 200, "industry": "saas",
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("submit failed: %d %+v", status, env.Error)
	}
	var artifact proof.Artifact
	if err := json.Unmarshal(env.Data, &artifact); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if !proof.ValidHash(artifact.Hash) || len(artifact.Results) != 2 || artifact.Results[0].Percentile != 43 {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}

	status, env = h.do(http.MethodPost, "/api/proofs/verify", "", map[string]string{"proofHash": artifact.Hash})
	if status != http.StatusOK {
		t.Fatalf("verify failed: %d %+v", status, env.Error)
	}
	var verified proof.Artifact
	_ = json.Unmarshal(env.Data, &verified)
	if verified.Hash != artifact.Hash || verified.Results[1].Percentile != artifact.Results[1].Percentile {
		t.Fatalf("round trip mismatch: %+v", verified)
	}

	status, _ = h.do(http.MethodGet, "/api/proofs/"+artifact.Hash, "", nil)
	if status != http.StatusOK {
		t.Fatalf("get proof status %d", status)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t, false, nil)
	status, env := h.do(http.MethodPost, "/api/benchmarks/submit", "", map[string]interface{}{
		"revenue": -1, "employees": 0, "industry": "mining",
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != string(xerrors.CodeValidation) {
		t.Fatalf("unexpected response: %d %+v", status, env.Error)
	}
	for _, field := range []string{"revenue", "employees", "industry"} {
		if env.Error.Fields[field] == "" {
			t.Fatalf("missing field detail %q: %+v", field, env.Error.Fields)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/benchmarks/submit", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status %d", rec.Code)
	}
}

func TestVerifyProofErrors(t *testing.T) {
	h := newHarness(t, false, nil)
	cases := []struct {
		name   string
		hash   string
		status int
		code   xerrors.Code
	}{
		{"missing", "", http.StatusBadRequest, xerrors.CodeMissingProofHash},
		{"malformed", "not_a_proof", http.StatusBadRequest, xerrors.CodeInvalidProof},
		{"unknown", "zk_proof_1700000000000_abcdefgh", http.StatusNotFound, xerrors.CodeProofNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := h.do(http.MethodPost, "/api/proofs/verify", "", map[string]string{"proofHash": tc.hash})
			if status != tc.status || env.Error == nil || env.Error.Code != string(tc.code) {
				t.Fatalf("got %d %+v", status, env.Error)
			}
		})
	}

	status, env := h.do(http.MethodGet, "/api/proofs/not_a_proof", "", nil)
	if status != http.StatusNotFound || env.Error.Code != string(xerrors.CodeProofNotFound) {
		t.Fatalf("get malformed proof: %d %+v", status, env.Error)
	}
}

func TestConsentRequiresBearerToken(t *testing.T) {
	h := newHarness(t, false, nil)
	status, env := h.do(http.MethodPost, "/api/consent/mint", "", map[string]string{"dataRequestId": "r"})
	if status != http.StatusUnauthorized || env.Error.Code != string(xerrors.CodeUnauthorized) {
		t.Fatalf("expected 401, got %d %+v", status, env.Error)
	}
	status, _ = h.do(http.MethodGet, "/api/consent/consent_1", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
}

func TestConsentLifecycle(t *testing.T) {
	h := newHarness(t, false, nil)
	owner := h.login("0xOwner")
	other := h.login("0xother")

	status, env := h.do(http.MethodPost, "/api/consent/mint", owner, map[string]string{
		"dataRequestId":   "req-1",
		"companyId":       "company_ab12cd34",
		"privateDataHash": "0xdeadbeef",
		"proof":           "zk_proof_1_abc",
	})
	if status != http.StatusCreated {
		t.Fatalf("mint status %d: %+v", status, env.Error)
	}
	var receipt consent.Receipt
	_ = json.Unmarshal(env.Data, &receipt)
	if !strings.HasPrefix(receipt.ConsentID, consent.IDPrefix) {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	status, env = h.do(http.MethodPost, "/api/consent/"+receipt.ConsentID+"/revoke", other, nil)
	if status != http.StatusForbidden || env.Error.Code != string(xerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %d %+v", status, env.Error)
	}

	for i := 0; i < 2; i++ {
		status, env = h.do(http.MethodPost, "/api/consent/"+receipt.ConsentID+"/revoke", owner, nil)
		if status != http.StatusOK {
			t.Fatalf("revoke #%d status %d: %+v", i+1, status, env.Error)
		}
	}

	status, env = h.do(http.MethodGet, "/api/consent/"+receipt.ConsentID, other, nil)
	if status != http.StatusOK {
		t.Fatalf("lookup status %d", status)
	}
	var record consent.Record
	_ = json.Unmarshal(env.Data, &record)
	if record.Valid || !record.Revoked || record.RevokedAt == nil {
		t.Fatalf("expected revoked record: %+v", record)
	}

	status, env = h.do(http.MethodGet, "/api/consent/consent_missing", owner, nil)
	if status != http.StatusNotFound || env.Error.Code != string(xerrors.CodeConsentNotFound) {
		t.Fatalf("expected 404, got %d %+v", status, env.Error)
	}
}

func TestMintWithObjectProof(t *testing.T) {
	h := newHarness(t, false, nil)
	owner := h.login("0xowner")

	status, env := h.do(http.MethodPost, "/api/consent/mint", owner, map[string]interface{}{
		"dataRequestId":   "req-2",
		"companyId":       "company_ab12cd34",
		"privateDataHash": "0xdeadbeef",
		"proof":           map[string]interface{}{"proofHash": "zk_proof_1_abc", "publicSignals": []int{1, 2}},
	})
	if status != http.StatusCreated {
		t.Fatalf("mint status %d: %+v", status, env.Error)
	}

	status, env = h.do(http.MethodPost, "/api/consent/mint", owner, map[string]interface{}{
		"dataRequestId":   "req-3",
		"companyId":       "company_ab12cd34",
		"privateDataHash": "0xdeadbeef",
		"proof":           nil,
	})
	if status != http.StatusBadRequest || env.Error.Fields["proof"] == "" {
		t.Fatalf("expected missing proof, got %d %+v", status, env.Error)
	}
}

func TestRedeemWithWrongNonce(t *testing.T) {
	h := newHarness(t, false, nil)
	if status, _ := h.do(http.MethodGet, "/api/auth/challenge?address=0xabc", "", nil); status != http.StatusOK {
		t.Fatalf("challenge status %d", status)
	}
	status, env := h.do(http.MethodPost, "/api/auth/verify", "", map[string]string{
		"address": "0xabc", "signature": "0xsig", "nonce": "deadbeef",
	})
	if status != http.StatusBadRequest || env.Error.Code != string(xerrors.CodeInvalidChallenge) {
		t.Fatalf("expected invalid challenge, got %d %+v", status, env.Error)
	}

	status, env = h.do(http.MethodGet, "/api/auth/challenge", "", nil)
	if status != http.StatusBadRequest || env.Error.Fields["address"] == "" {
		t.Fatalf("expected address validation, got %d %+v", status, env.Error)
	}
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t, false, nil)

	status, env := h.do(http.MethodGet, "/api/industries", "", nil)
	var industries []benchmark.IndustryInfo
	_ = json.Unmarshal(env.Data, &industries)
	if status != http.StatusOK || len(industries) != len(benchmark.Industries()) {
		t.Fatalf("industries: %d %+v", status, industries)
	}

	status, env = h.do(http.MethodGet, "/api/industries/SaaS/benchmarks", "", nil)
	var summary benchmark.Summary
	_ = json.Unmarshal(env.Data, &summary)
	if status != http.StatusOK || summary.Industry != benchmark.IndustrySaaS || summary.SampleSize != 13 {
		t.Fatalf("benchmarks: %d %+v", status, summary)
	}

	status, _ = h.do(http.MethodGet, "/api/benchmarks/stats/fintech", "", nil)
	if status != http.StatusOK {
		t.Fatalf("stats status %d", status)
	}

	status, env = h.do(http.MethodGet, "/api/industries/mining/benchmarks", "", nil)
	if status != http.StatusBadRequest || env.Error.Code != string(xerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %d %+v", status, env.Error)
	}
}

func TestNetworkAndHealth(t *testing.T) {
	h := newHarness(t, false, nil)
	status, env := h.do(http.MethodGet, "/api/network", "", nil)
	var info network.Info
	_ = json.Unmarshal(env.Data, &info)
	if status != http.StatusOK || info.Effective != network.ModeMock {
		t.Fatalf("network: %d %+v", status, info)
	}
	if status, env = h.do(http.MethodGet, "/healthz", "", nil); status != http.StatusOK || !env.Success {
		t.Fatalf("health: %d", status)
	}
}

type faultyAdapter struct {
	network.Adapter
	err error
}

func (f faultyAdapter) GenerateProof(context.Context, benchmark.Metrics) (*proof.Artifact, error) {
	return nil, f.err
}

func TestServerErrorsHideDetailsInProduction(t *testing.T) {
	fault := xerrors.Wrap(xerrors.CodeStorageFailure, io.ErrUnexpectedEOF, "write proof artifact")
	wrap := func(a network.Adapter) network.Adapter { return faultyAdapter{Adapter: a, err: fault} }
	body := map[string]interface{}{"revenue": 1, "employees": 1, "industry": "saas"}

	prod := newHarness(t, true, wrap)
	status, env := prod.do(http.MethodPost, "/api/benchmarks/submit", "", body)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if env.Error.Message != "Internal server error" || env.Error.Details != "" {
		t.Fatalf("production response leaked details: %+v", env.Error)
	}

	dev := newHarness(t, false, wrap)
	_, env = dev.do(http.MethodPost, "/api/benchmarks/submit", "", body)
	if !strings.Contains(env.Error.Details, "unexpected EOF") {
		t.Fatalf("development response should carry details: %+v", env.Error)
	}
}

func TestNotImplementedMapsTo501(t *testing.T) {
	notImpl := xerrors.New(xerrors.CodeNotImplemented, "")
	h := newHarness(t, false, func(a network.Adapter) network.Adapter { return faultyAdapter{Adapter: a, err: notImpl} })
	status, env := h.do(http.MethodPost, "/api/benchmarks/submit", "", map[string]interface{}{
		"revenue": 1, "employees": 1, "industry": "saas",
	})
	if status != http.StatusNotImplemented || env.Error.Code != string(xerrors.CodeNotImplemented) {
		t.Fatalf("expected 501, got %d %+v", status, env.Error)
	}
}

func TestStatusForChallengeOverride(t *testing.T) {
	cases := []struct {
		code xerrors.Code
		want int
	}{
		{xerrors.CodeInvalidChallenge, http.StatusBadRequest},
		{xerrors.CodeUnauthorized, http.StatusUnauthorized},
		{xerrors.CodeValidation, http.StatusBadRequest},
		{xerrors.CodeConsentNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := statusFor(tc.code, xerrors.AttributesOf(tc.code).Kind); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.code, got, tc.want)
		}
	}
}
