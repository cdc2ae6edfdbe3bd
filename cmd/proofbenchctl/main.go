// proofbenchctl is the command line client for a ProofBench daemon.
//
// Usage:
//
//	proofbenchctl percentile --industry=saas --revenue=1200000 --employees=40
//	proofbenchctl submit --industry=fintech --revenue=5e6 --employees=120 --metric churn=0.04
//	proofbenchctl verify <proofHash>
//	proofbenchctl industries | benchmarks <industry> | stats <industry> | network
//	proofbenchctl login --key=<hex private key>
//	proofbenchctl consent mint|get|revoke ...
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var globalFlags struct {
	server string
	token  string
}

var rootCmd = &cobra.Command{
	Use:           "proofbenchctl",
	Short:         "Client for the ProofBench proof and consent engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&globalFlags.server, "server", envOr("PROOFBENCH_SERVER", "http://127.0.0.1:3001"), "ProofBench API base URL")
	f.StringVar(&globalFlags.token, "token", os.Getenv("PROOFBENCH_TOKEN"), "Bearer token for consent operations")

	rootCmd.AddCommand(percentileCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(proofCmd)
	rootCmd.AddCommand(industriesCmd)
	rootCmd.AddCommand(benchmarksCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(consentCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
