package benchmark

import (
	"math"
	"sort"
	"time"
)

// Quantiles summarises one metric of a distribution.
type Quantiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Summary is the public benchmark view of an industry.
type Summary struct {
	Industry    Industry             `json:"industry"`
	Label       string               `json:"label"`
	Metrics     map[string]Quantiles `json:"metrics"`
	SampleSize  int                  `json:"sampleSize"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

// Stats carries aggregate statistics for an industry.
type Stats struct {
	Industry     Industry           `json:"industry"`
	Metrics      []string           `json:"metrics"`
	Averages     map[string]float64 `json:"averages"`
	CompanyCount int                `json:"companyCount"`
}

// IndustryInfo describes one selectable industry.
type IndustryInfo struct {
	Value      Industry `json:"value"`
	Label      string   `json:"label"`
	SampleSize int      `json:"sampleSize"`
}

// Catalog answers read-only questions about the reference data.
type Catalog struct {
	refs  *ReferenceSet
	clock func() time.Time
}

// NewCatalog wraps a reference set.
func NewCatalog(refs *ReferenceSet, clock func() time.Time) *Catalog {
	if clock == nil {
		clock = time.Now
	}
	return &Catalog{refs: refs, clock: clock}
}

// ListIndustries returns every accepted industry with its reference sample
// count. Industries without data report the fallback industry's count.
func (c *Catalog) ListIndustries() []IndustryInfo {
	out := make([]IndustryInfo, 0, len(Industries()))
	for _, ind := range Industries() {
		dist, _, _ := c.refs.Lookup(ind)
		out = append(out, IndustryInfo{Value: ind, Label: ind.Label(), SampleSize: dist.SampleSize()})
	}
	return out
}

// Benchmarks computes quartile style summaries for ind.
func (c *Catalog) Benchmarks(ind Industry) Summary {
	dist, _, _ := c.refs.Lookup(ind)
	metrics := make(map[string]Quantiles)
	for _, name := range dist.MetricNames() {
		samples, _ := dist.Samples(name)
		if len(samples) == 0 {
			continue
		}
		sorted := sortedCopy(samples)
		metrics[name] = Quantiles{
			P25: Quantile(sorted, 0.25),
			P50: Quantile(sorted, 0.50),
			P75: Quantile(sorted, 0.75),
			P90: Quantile(sorted, 0.90),
		}
	}
	return Summary{
		Industry:    ind,
		Label:       ind.Label(),
		Metrics:     metrics,
		SampleSize:  dist.SampleSize(),
		LastUpdated: c.clock().UTC(),
	}
}

// Stats returns the tracked metric names and their means for ind.
func (c *Catalog) Stats(ind Industry) Stats {
	dist, _, _ := c.refs.Lookup(ind)
	averages := make(map[string]float64)
	names := dist.MetricNames()
	for _, name := range names {
		samples, _ := dist.Samples(name)
		if len(samples) == 0 {
			continue
		}
		var sum float64
		for _, s := range samples {
			sum += s
		}
		averages[name] = math.Round(sum / float64(len(samples)))
	}
	return Stats{Industry: ind, Metrics: names, Averages: averages, CompanyCount: dist.SampleSize()}
}

// Quantile returns the q-quantile of sorted samples using linear
// interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func sortedCopy(samples []float64) []float64 {
	out := append([]float64(nil), samples...)
	sort.Float64s(out)
	return out
}
