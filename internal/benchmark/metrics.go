package benchmark

import (
	"math"
	"sort"

	xerrors "ProofBench/internal/errors"
)

// Tracked metric names.
const (
	MetricRevenue   = "revenue"
	MetricEmployees = "employees"
)

// Metrics is the private submission of one company. It is only held for the
// duration of proof generation.
type Metrics struct {
	Revenue   float64            `json:"revenue"`
	Employees int                `json:"employees"`
	Industry  Industry           `json:"industry"`
	Custom    map[string]float64 `json:"customMetrics,omitempty"`
}

// Validate reports every invalid field at once as VALIDATION_ERROR metadata.
func (m Metrics) Validate() error {
	fields := make(map[string]string)
	if !(m.Revenue > 0) || math.IsInf(m.Revenue, 0) {
		fields[MetricRevenue] = "Revenue must be a positive number"
	}
	if m.Employees <= 0 {
		fields[MetricEmployees] = "Employees must be a positive integer"
	}
	if !m.Industry.Valid() {
		fields["industry"] = "Invalid industry selection"
	}
	for name, value := range m.Custom {
		if name == "" {
			fields["customMetrics"] = "Custom metric names must not be empty"
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			fields["customMetrics."+name] = "Custom metric must be a finite number"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return xerrors.Validation("Validation failed", fields)
}

// CustomNames returns the custom metric names in stable order.
func (m Metrics) CustomNames() []string {
	names := make([]string, 0, len(m.Custom))
	for name := range m.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
