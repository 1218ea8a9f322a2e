// Package main provides the accounting_agent CLI: the HTTP API server plus
// offline chart of accounts generation and transaction categorization.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "accounting_agent",
	Short: "Accounting Assistant API server and tools",
	Long: "Accounting Assistant generates charts of accounts for company profiles with a five-stage " +
		"model pipeline and categorizes transactions, with static fallbacks when no model is available.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.InitLogger(loaded.Log); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
