package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"ProofBench/internal/auth"
)

var loginFlags struct {
	key string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign a challenge with a wallet key and print a bearer token",
	Long:  "login requests a challenge for the key's address, signs it with the\nEthereum personal message scheme and exchanges it for a bearer token.\nExport the printed token as PROOFBENCH_TOKEN for consent commands.",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.key, "key", os.Getenv("PROOFBENCH_PRIVATE_KEY"), "Hex encoded secp256k1 private key")
}

func loadKey(raw string) (*ecdsa.PrivateKey, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, fmt.Errorf("private key is required (--key or PROOFBENCH_PRIVATE_KEY)")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	key, err := loadKey(loginFlags.key)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	token, err := client.Login(cmd.Context(), address, func(message string) (string, error) {
		return auth.SignMessage(key, message)
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Address:  %s\n", token.Address)
	fmt.Fprintf(out, "Expires:  %s\n", token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "export PROOFBENCH_TOKEN=%s\n", token.AccessToken)
	return nil
}
