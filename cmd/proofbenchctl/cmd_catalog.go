package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var industriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "List supported industries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		list, err := client.Industries(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ind := range list {
			fmt.Fprintf(out, "%-12s %-12s n=%d\n", ind.Value, ind.Label, ind.SampleSize)
		}
		return nil
	},
}

var benchmarksCmd = &cobra.Command{
	Use:   "benchmarks <industry>",
	Short: "Show public quantiles for an industry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		b, err := client.Benchmarks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), b)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <industry>",
	Short: "Show aggregate statistics for an industry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		s, err := client.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show which network adapter the server is using",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		info, err := client.Network(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}
