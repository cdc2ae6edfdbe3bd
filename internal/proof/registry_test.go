package proof

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ProofBench/internal/benchmark"
	xerrors "ProofBench/internal/errors"
)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	registry, err := NewRegistry(store, benchmark.DefaultReferenceSet(), opts...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry, store
}

func TestGenerateSaaSExample(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	registry, store := newTestRegistry(t, WithClock(func() time.Time { return now }))

	artifact, err := registry.Generate(context.Background(), benchmark.Metrics{
		Revenue:   50_000_000,
		Employees: 200,
		Industry:  benchmark.IndustrySaaS,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !ValidHash(artifact.Hash) || !strings.HasPrefix(artifact.SubjectID, "company_") {
		t.Fatalf("unexpected identifiers: %s %s", artifact.Hash, artifact.SubjectID)
	}
	want := []Result{
		{Metric: "revenue", Percentile: 43, SampleSize: 13},
		{Metric: "employees", Percentile: 43, SampleSize: 13},
	}
	if diff := cmp.Diff(want, artifact.Results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if !artifact.CreatedAt.Equal(now) || artifact.ReferenceIndustry != benchmark.IndustrySaaS {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one stored artifact, got %d", store.Len())
	}
}

func TestGenerateRejectsInvalidMetrics(t *testing.T) {
	registry, store := newTestRegistry(t)
	_, err := registry.Generate(context.Background(), benchmark.Metrics{Revenue: 0, Employees: 3, Industry: "saas"})
	if xerrors.CodeOf(err) != xerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("invalid submission must not be stored")
	}
}

func TestGenerateFallsBackToDefaultIndustry(t *testing.T) {
	refs, err := benchmark.NewReferenceSet(benchmark.IndustrySaaS, map[benchmark.Industry]benchmark.Distribution{
		benchmark.IndustrySaaS: {Revenue: []float64{1, 2, 3}, Employees: []float64{1, 2, 3}},
	})
	if err != nil {
		t.Fatalf("reference set: %v", err)
	}
	registry, err := NewRegistry(NewMemoryStore(), refs)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	artifact, err := registry.Generate(context.Background(), benchmark.Metrics{Revenue: 10, Employees: 10, Industry: benchmark.IndustryHealthcare})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if artifact.Industry != benchmark.IndustryHealthcare || artifact.ReferenceIndustry != benchmark.IndustrySaaS {
		t.Fatalf("fallback not recorded: %+v", artifact)
	}
}

func TestGenerateCustomMetrics(t *testing.T) {
	refs, _ := benchmark.NewReferenceSet(benchmark.IndustrySaaS, map[benchmark.Industry]benchmark.Distribution{
		benchmark.IndustrySaaS: {
			Revenue:   []float64{1, 2, 3},
			Employees: []float64{1, 2, 3},
			Custom:    map[string][]float64{"nps": {10, 20, 30, 40}},
		},
	})
	registry, _ := NewRegistry(NewMemoryStore(), refs)
	artifact, err := registry.Generate(context.Background(), benchmark.Metrics{
		Revenue:   2,
		Employees: 2,
		Industry:  benchmark.IndustrySaaS,
		Custom:    map[string]float64{"nps": 35, "churn": 0.1},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(artifact.Results) != 3 {
		t.Fatalf("expected custom metric result, got %+v", artifact.Results)
	}
	if got := artifact.Results[2]; got.Metric != "nps" || got.Percentile != 60 || got.SampleSize != 4 {
		t.Fatalf("unexpected custom result: %+v", got)
	}
}

func TestGenerateUniqueHashesConcurrently(t *testing.T) {
	registry, store := newTestRegistry(t)
	const n = 200
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		hashes = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			artifact, err := registry.Generate(context.Background(), benchmark.Metrics{Revenue: 1e6, Employees: 10, Industry: "fintech"})
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			mu.Lock()
			hashes[artifact.Hash] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(hashes) != n || store.Len() != n {
		t.Fatalf("expected %d unique hashes, got %d (stored %d)", n, len(hashes), store.Len())
	}
}

func TestGenerateRetriesOnHashConflict(t *testing.T) {
	calls := 0
	gen := func(time.Time) (string, error) {
		calls++
		if calls <= 2 {
			return "zk_proof_1_fixed", nil
		}
		return "zk_proof_1_other", nil
	}
	registry, store := newTestRegistry(t, WithHashGenerator(gen))
	metrics := benchmark.Metrics{Revenue: 1, Employees: 1, Industry: "saas"}

	first, err := registry.Generate(context.Background(), metrics)
	if err != nil || first.Hash != "zk_proof_1_fixed" {
		t.Fatalf("first generate: %v %v", first, err)
	}
	second, err := registry.Generate(context.Background(), metrics)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.Hash != "zk_proof_1_other" || store.Len() != 2 {
		t.Fatalf("collision not resolved: %s (stored %d)", second.Hash, store.Len())
	}
	stored, _ := store.Get(context.Background(), "zk_proof_1_fixed")
	if stored.SubjectID != first.SubjectID {
		t.Fatal("existing artifact was overwritten")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	registry, _ := newTestRegistry(t)
	artifact, err := registry.Generate(context.Background(), benchmark.Metrics{Revenue: 5e6, Employees: 40, Industry: "ecommerce"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := registry.Verify(context.Background(), artifact.Hash)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if diff := cmp.Diff(artifact, got); diff != "" {
			t.Fatalf("verify mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestVerifyStrictNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	for _, hash := range []string{"not_a_proof", "", "zk_proof_", "zk_proof_1_unknown"} {
		_, err := registry.Verify(context.Background(), hash)
		if !errors.Is(err, ErrProofNotFound) {
			t.Fatalf("verify(%q): expected not found, got %v", hash, err)
		}
	}
}

func TestVerifySynthesizesOnlyWellFormedHashes(t *testing.T) {
	registry, store := newTestRegistry(t, WithSynthesizedVerification(true))

	if _, err := registry.Verify(context.Background(), "not_a_proof"); !errors.Is(err, ErrProofNotFound) {
		t.Fatalf("malformed hash must stay not found: %v", err)
	}
	artifact, err := registry.Verify(context.Background(), "zk_proof_1700000000000_abcd1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !artifact.Synthesized || artifact.SubjectID != "verified_company" {
		t.Fatalf("expected synthesized artifact: %+v", artifact)
	}
	for _, res := range artifact.Results {
		if res.Percentile < 5 || res.Percentile > 94 || res.SampleSize != 13 {
			t.Fatalf("unexpected synthesized result: %+v", res)
		}
	}
	if store.Len() != 0 {
		t.Fatal("synthesized artifacts must not be stored")
	}
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Get(context.Context, string) (*Artifact, error) {
	return nil, errors.New("connection reset")
}

func TestVerifyStorageFailure(t *testing.T) {
	registry, err := NewRegistry(&failingStore{MemoryStore: NewMemoryStore()}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	_, err = registry.Verify(context.Background(), "zk_proof_1_abc")
	if xerrors.CodeOf(err) != xerrors.CodeStorageFailure {
		t.Fatalf("expected storage failure, got %v", err)
	}
}

func TestValidHash(t *testing.T) {
	cases := map[string]bool{
		"zk_proof_1700000000000_ab12cd34": true,
		"zk_proof_x":                      true,
		"zk_proof_":                       false,
		"zk_proof_abc-def":                false,
		"proof_123":                       false,
	}
	for hash, want := range cases {
		if got := ValidHash(hash); got != want {
			t.Fatalf("ValidHash(%q) = %v", hash, got)
		}
	}
}
