package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/coa"
	"github.com/saimjr/accounting-assistant/internal/observability"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a chart of accounts for a company profile",
	Long: "Runs the five-stage pipeline for a CompanyProfile JSON file and prints the result envelope. " +
		"With --store the accounts replace the stored chart of the given company.",
	RunE: runGenerate,
}

var (
	generateProfile string
	generateStore   string
	generateVerbose bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateProfile, "profile", "p", "", "Path to CompanyProfile JSON file, or - for stdin (required)")
	generateCmd.Flags().StringVar(&generateStore, "store", "", "Company ID whose stored chart of accounts is replaced")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print a summary of the generation to stderr")

	if err := generateCmd.MarkFlagRequired("profile"); err != nil {
		panic(fmt.Sprintf("failed to mark profile flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var companyID uuid.UUID
	if generateStore != "" {
		id, err := uuid.Parse(generateStore)
		if err != nil {
			return fmt.Errorf("invalid --store company ID %q: %w", generateStore, err)
		}
		companyID = id
	}

	var profile types.CompanyProfile
	if err := readJSONFile(generateProfile, &profile); err != nil {
		return err
	}

	client, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer client.Close()

	generator := coa.NewGenerator(client,
		coa.WithRemediation(coa.Remediation(cfg.Pipeline.BandingRemediation)),
		coa.WithStageTimeout(cfg.LLM.Timeout()),
	)
	env, err := generator.Generate(ctx, profile)
	if err != nil {
		return err
	}
	if generateVerbose {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintCompanyProfile(&env.CompanyProfile)
		printer.PrintEnvelope(env)
	}

	if companyID != uuid.Nil {
		store, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		stored, err := store.ReplaceChartOfAccounts(ctx, companyID, env.Records())
		if err != nil {
			return err
		}
		zap.L().Info("chart of accounts stored",
			zap.String("company_id", companyID.String()),
			zap.Int("stored_accounts", stored),
		)
	}

	return writeJSON(os.Stdout, env)
}
