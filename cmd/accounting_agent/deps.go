package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"go.uber.org/zap"
)

// newLLMClient builds the configured model client. Without an API key the
// disabled client is returned and every caller runs on its fallback.
func newLLMClient(ctx context.Context, c config.LLMConfig) (llm.Client, error) {
	provider := llm.Provider(c.Provider)
	if provider != llm.ProviderDisabled && c.APIKey == "" {
		zap.L().Warn("no model API key configured, running in fallback mode",
			zap.String("provider", c.Provider))
		provider = llm.ProviderDisabled
	}
	return llm.NewClient(ctx, llm.ConfigFor(provider, c.Model), c.APIKey)
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, c config.StoreConfig) (db.Store, error) {
	store, err := db.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", c.Driver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", c.Driver, err)
	}
	return store, nil
}

// readJSONFile decodes the file at path into v. "-" reads stdin.
func readJSONFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
