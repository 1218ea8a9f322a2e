package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMClient_NoKeyFallsBack(t *testing.T) {
	for _, provider := range []string{"gemini", "anthropic", "disabled"} {
		t.Run(provider, func(t *testing.T) {
			client, err := newLLMClient(context.Background(), config.LLMConfig{Provider: provider, TimeoutSecs: 5})
			require.NoError(t, err)
			assert.IsType(t, &llm.DisabledClient{}, client)
		})
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := openStore(ctx, config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "cli.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(ctx))
}

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"company_name":"Acme","industry":"Retail"}`), 0o600))

	var profile types.CompanyProfile
	require.NoError(t, readJSONFile(path, &profile))
	assert.Equal(t, "Acme", profile.CompanyName)
	assert.Equal(t, "Retail", profile.Industry)

	assert.Error(t, readJSONFile(filepath.Join(dir, "missing.json"), &profile))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	assert.Error(t, readJSONFile(bad, &profile))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"total": 3}))
	assert.Equal(t, "{\n  \"total\": 3\n}\n", buf.String())
}
