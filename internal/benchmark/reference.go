package benchmark

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Distribution holds the historical samples for one industry. Sample order
// carries no meaning.
type Distribution struct {
	Revenue   []float64            `yaml:"revenue"`
	Employees []float64            `yaml:"employees"`
	Custom    map[string][]float64 `yaml:"custom,omitempty"`
}

// Samples returns the samples for a named metric.
func (d Distribution) Samples(metric string) ([]float64, bool) {
	switch metric {
	case MetricRevenue:
		return d.Revenue, true
	case MetricEmployees:
		return d.Employees, true
	}
	samples, ok := d.Custom[metric]
	return samples, ok
}

// MetricNames lists the tracked metrics of the distribution, built-in first.
func (d Distribution) MetricNames() []string {
	names := []string{MetricRevenue, MetricEmployees}
	custom := make([]string, 0, len(d.Custom))
	for name := range d.Custom {
		custom = append(custom, name)
	}
	sort.Strings(custom)
	return append(names, custom...)
}

// SampleSize is the number of reference companies, taken from the revenue
// samples.
func (d Distribution) SampleSize() int {
	return len(d.Revenue)
}

// ReferenceSet is the read-only reference data for every industry. A set is
// never mutated after construction and is safe for concurrent use.
type ReferenceSet struct {
	fallback      Industry
	distributions map[Industry]Distribution
}

// NewReferenceSet copies the given distributions. fallback must be present.
func NewReferenceSet(fallback Industry, distributions map[Industry]Distribution) (*ReferenceSet, error) {
	if _, ok := distributions[fallback]; !ok {
		return nil, fmt.Errorf("fallback industry %q has no reference data", fallback)
	}
	copied := make(map[Industry]Distribution, len(distributions))
	for ind, dist := range distributions {
		copied[ind] = cloneDistribution(dist)
	}
	return &ReferenceSet{fallback: fallback, distributions: copied}, nil
}

// Lookup returns the distribution for ind. When ind has no data the fallback
// industry's distribution is returned together with fellBack=true, so the
// caller can log and record the substitution.
func (r *ReferenceSet) Lookup(ind Industry) (dist Distribution, effective Industry, fellBack bool) {
	if d, ok := r.distributions[ind]; ok {
		return d, ind, false
	}
	return r.distributions[r.fallback], r.fallback, true
}

// Has reports whether the set carries data for ind.
func (r *ReferenceSet) Has(ind Industry) bool {
	_, ok := r.distributions[ind]
	return ok
}

// Fallback returns the designated default industry.
func (r *ReferenceSet) Fallback() Industry {
	return r.fallback
}

func cloneDistribution(d Distribution) Distribution {
	out := Distribution{
		Revenue:   append([]float64(nil), d.Revenue...),
		Employees: append([]float64(nil), d.Employees...),
	}
	if len(d.Custom) > 0 {
		out.Custom = make(map[string][]float64, len(d.Custom))
		for name, samples := range d.Custom {
			out.Custom[name] = append([]float64(nil), samples...)
		}
	}
	return out
}

type referenceFile struct {
	DefaultIndustry string                  `yaml:"default_industry"`
	Industries      map[string]Distribution `yaml:"industries"`
}

// LoadReferenceSet reads a YAML reference data file. Industries outside the
// accepted enum are rejected. When the file names no default industry,
// fallback is used.
func LoadReferenceSet(path string, fallback Industry) (*ReferenceSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return ParseReferenceSet(data, fallback)
}

// ParseReferenceSet decodes YAML reference data.
func ParseReferenceSet(data []byte, fallback Industry) (*ReferenceSet, error) {
	var file referenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	if len(file.Industries) == 0 {
		return nil, fmt.Errorf("reference data defines no industries")
	}
	if strings.TrimSpace(file.DefaultIndustry) != "" {
		ind, ok := ParseIndustry(file.DefaultIndustry)
		if !ok {
			return nil, fmt.Errorf("unknown default industry %q", file.DefaultIndustry)
		}
		fallback = ind
	}
	distributions := make(map[Industry]Distribution, len(file.Industries))
	for name, dist := range file.Industries {
		ind, ok := ParseIndustry(name)
		if !ok {
			return nil, fmt.Errorf("unknown industry %q in reference data", name)
		}
		distributions[ind] = dist
	}
	return NewReferenceSet(fallback, distributions)
}

// DefaultReferenceSet returns the built-in sample distributions.
func DefaultReferenceSet() *ReferenceSet {
	set, err := NewReferenceSet(DefaultIndustry, builtinDistributions)
	if err != nil {
		panic(err)
	}
	return set
}

var builtinDistributions = map[Industry]Distribution{
	IndustrySaaS: {
		Revenue:   []float64{2e6, 8.5e6, 15e6, 22e6, 35e6, 45e6, 62e6, 78e6, 95e6, 125e6, 150e6, 200e6, 300e6},
		Employees: []float64{15, 35, 65, 95, 140, 180, 250, 320, 450, 600, 800, 1200, 1800},
	},
	IndustryFinTech: {
		Revenue:   []float64{3e6, 12e6, 25e6, 40e6, 55e6, 75e6, 95e6, 120e6, 150e6, 200e6, 280e6, 400e6},
		Employees: []float64{25, 50, 85, 120, 180, 240, 320, 450, 650, 900, 1300, 2000},
	},
	IndustryECommerce: {
		Revenue:   []float64{1.5e6, 6e6, 12e6, 18e6, 28e6, 42e6, 58e6, 78e6, 105e6, 140e6, 180e6, 250e6},
		Employees: []float64{12, 28, 55, 85, 125, 170, 230, 310, 420, 580, 780, 1100},
	},
	IndustryHealthcare: {
		Revenue:   []float64{5e6, 15e6, 28e6, 45e6, 65e6, 85e6, 110e6, 140e6, 180e6, 230e6, 300e6},
		Employees: []float64{30, 65, 110, 160, 220, 290, 380, 500, 650, 850, 1200},
	},
}
