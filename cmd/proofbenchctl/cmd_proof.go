package main

import (
	"github.com/spf13/cobra"

	"ProofBench/sdk/go/proofbench"
)

var submitFlags struct {
	metricsFlags
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit private metrics and receive a proof",
	RunE:  runSubmit,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <proofHash>",
	Short: "Verify a proof hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var proofCmd = &cobra.Command{
	Use:   "proof <proofHash>",
	Short: "Fetch a stored proof",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetProof,
}

func init() {
	submitFlags.register(submitCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	custom, err := parseCustomMetrics(submitFlags.custom)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.Submit(cmd.Context(), proofbench.Metrics{
		Revenue:   submitFlags.revenue,
		Employees: submitFlags.employees,
		Industry:  submitFlags.industry,
		Custom:    custom,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), p)
}

func runVerify(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.VerifyProof(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), p)
}

func runGetProof(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.GetProof(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), p)
}
