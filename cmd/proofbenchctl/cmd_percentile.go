package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ProofBench/internal/benchmark"
	"ProofBench/internal/proof"
)

var percentileFlags struct {
	metricsFlags
	reference string
}

var percentileCmd = &cobra.Command{
	Use:   "percentile",
	Short: "Compute percentile ranks locally without contacting a server",
	RunE:  runPercentile,
}

func init() {
	percentileFlags.register(percentileCmd)
	percentileCmd.Flags().StringVar(&percentileFlags.reference, "reference", "", "YAML reference data (built-in set when empty)")
}

func runPercentile(cmd *cobra.Command, _ []string) error {
	refs := benchmark.DefaultReferenceSet()
	if percentileFlags.reference != "" {
		loaded, err := benchmark.LoadReferenceSet(percentileFlags.reference, benchmark.DefaultIndustry)
		if err != nil {
			return err
		}
		refs = loaded
	}
	custom, err := parseCustomMetrics(percentileFlags.custom)
	if err != nil {
		return err
	}
	industry, _ := benchmark.ParseIndustry(percentileFlags.industry)

	registry, err := proof.NewRegistry(proof.NewMemoryStore(), refs)
	if err != nil {
		return err
	}
	artifact, err := registry.Generate(cmd.Context(), benchmark.Metrics{
		Revenue:   percentileFlags.revenue,
		Employees: percentileFlags.employees,
		Industry:  industry,
		Custom:    custom,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Industry:  %s (reference %s)\n", artifact.Industry.Label(), artifact.ReferenceIndustry.Label())
	for _, r := range artifact.Results {
		fmt.Fprintf(out, "  %-12s p%-3d (n=%d)\n", r.Metric, r.Percentile, r.SampleSize)
	}
	return nil
}
