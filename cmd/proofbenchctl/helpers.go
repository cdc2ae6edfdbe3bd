package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ProofBench/sdk/go/proofbench"
)

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// newClient builds an SDK client from the persistent flags.
func newClient() (*proofbench.Client, error) {
	client, err := proofbench.NewClient(globalFlags.server, nil)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if globalFlags.token != "" {
		client.SetAccessToken(globalFlags.token)
	}
	return client, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseCustomMetrics turns repeated name=value flags into a map.
func parseCustomMetrics(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid metric %q, expected name=value", pair)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for metric %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// metricsFlags is shared by percentile and submit.
type metricsFlags struct {
	industry  string
	revenue   float64
	employees int
	custom    []string
}

func (m *metricsFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&m.industry, "industry", "saas", "Industry (saas, fintech, ecommerce, healthcare)")
	f.Float64Var(&m.revenue, "revenue", 0, "Annual revenue (required)")
	f.IntVar(&m.employees, "employees", 0, "Employee count (required)")
	f.StringArrayVar(&m.custom, "metric", nil, "Custom metric as name=value, repeatable")

	_ = cmd.MarkFlagRequired("revenue")
	_ = cmd.MarkFlagRequired("employees")
}
