package main

import (
	"github.com/spf13/cobra"

	"ProofBench/sdk/go/proofbench"
)

var mintFlags struct {
	dataRequestID   string
	companyID       string
	privateDataHash string
	proof           string
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Mint, inspect and revoke consent records",
}

var consentMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a consent record owned by the logged in identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		receipt, err := client.MintConsent(cmd.Context(), proofbench.MintRequest{
			DataRequestID:   mintFlags.dataRequestID,
			CompanyID:       mintFlags.companyID,
			PrivateDataHash: mintFlags.privateDataHash,
			Proof:           mintFlags.proof,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), receipt)
	},
}

var consentGetCmd = &cobra.Command{
	Use:   "get <consentId>",
	Short: "Show a consent record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		record, err := client.GetConsent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), record)
	},
}

var consentRevokeCmd = &cobra.Command{
	Use:   "revoke <consentId>",
	Short: "Revoke a consent record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		receipt, err := client.RevokeConsent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), receipt)
	},
}

func init() {
	f := consentMintCmd.Flags()
	f.StringVar(&mintFlags.dataRequestID, "data-request-id", "", "Data request identifier (required)")
	f.StringVar(&mintFlags.companyID, "company-id", "", "Company identifier (required)")
	f.StringVar(&mintFlags.privateDataHash, "private-data-hash", "", "Hash of the private data being shared (required)")
	f.StringVar(&mintFlags.proof, "proof", "", "Proof hash backing the consent (required)")

	_ = consentMintCmd.MarkFlagRequired("data-request-id")
	_ = consentMintCmd.MarkFlagRequired("company-id")
	_ = consentMintCmd.MarkFlagRequired("private-data-hash")
	_ = consentMintCmd.MarkFlagRequired("proof")

	consentCmd.AddCommand(consentMintCmd)
	consentCmd.AddCommand(consentGetCmd)
	consentCmd.AddCommand(consentRevokeCmd)
}
