package main

import (
	"fmt"
	"os"
	"time"

	"github.com/saimjr/accounting-assistant/internal/categorize"
	"github.com/saimjr/accounting-assistant/internal/observability"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/spf13/cobra"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize [description]",
	Short: "Categorize one transaction or a JSON batch",
	Long: "Assigns an expense category and account code. Pass a description as the argument, " +
		"or --file with a JSON array of {description, amount, transaction_type} objects.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCategorize,
}

var (
	categorizeFile    string
	categorizeAmount  float64
	categorizeType    string
	categorizeVerbose bool
)

func init() {
	categorizeCmd.Flags().StringVarP(&categorizeFile, "file", "f", "", "Path to a JSON array of transactions, or - for stdin")
	categorizeCmd.Flags().Float64Var(&categorizeAmount, "amount", 0, "Transaction amount")
	categorizeCmd.Flags().StringVar(&categorizeType, "type", types.Debit, "Transaction type")
	categorizeCmd.Flags().BoolVarP(&categorizeVerbose, "verbose", "v", false, "Print a category summary to stderr")

	rootCmd.AddCommand(categorizeCmd)
}

func runCategorize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var reqs []types.CategorizeRequest
	switch {
	case categorizeFile != "" && len(args) > 0:
		return fmt.Errorf("pass either a description or --file, not both")
	case categorizeFile != "":
		if err := readJSONFile(categorizeFile, &reqs); err != nil {
			return err
		}
	case len(args) == 1:
		reqs = []types.CategorizeRequest{{
			Description:     args[0],
			Amount:          categorizeAmount,
			TransactionType: categorizeType,
		}}
	default:
		return fmt.Errorf("a description or --file is required")
	}

	client, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer client.Close()

	categorizer := categorize.New(client,
		categorize.WithConfidencePolicy(categorize.ConfidencePolicy(cfg.Categorizer.FallbackConfidence)),
		categorize.WithCacheTTL(time.Duration(cfg.Categorizer.CacheTTLSecs)*time.Second),
		categorize.WithConcurrency(cfg.Categorizer.BatchConcurrency),
	)

	if len(reqs) == 1 && categorizeFile == "" {
		result, err := categorizer.Categorize(ctx, reqs[0])
		if err != nil {
			return err
		}
		if categorizeVerbose {
			observability.NewPrinter(os.Stderr).PrintCategorizations([]types.CategorizationResult{*result})
		}
		return writeJSON(os.Stdout, result)
	}

	results, err := categorizer.CategorizeBatch(ctx, reqs)
	if err != nil {
		return err
	}
	if categorizeVerbose {
		observability.NewPrinter(os.Stderr).PrintCategorizations(results)
	}
	return writeJSON(os.Stdout, results)
}
