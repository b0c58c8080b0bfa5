package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hdbprice",
		Short: "HDB resale price predictor",
		Long: `hdbprice serves a form that collects flat attributes, assembles them into
the feature row the resale price model was trained on, and shows the model's
estimate.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the model input schema discovered from the reference dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd.OutOrStdout(), configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask",
		Short: "Fill in the prediction form in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	})
	return rootCmd
}
