package coa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/llm/llmtest"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() types.CompanyProfile {
	return types.CompanyProfile{
		CompanyName:          "Acme Traders",
		NatureOfBusiness:     "Wholesale distribution of office goods",
		Industry:             "Retail",
		Location:             "Mumbai, India",
		CompanyType:          "Private Limited",
		ReportingFramework:   "Ind AS",
		StatutoryCompliances: []string{"GST", "TDS"},
	}
}

func TestExecutorRun_Success(t *testing.T) {
	stub := llmtest.Fixed(`{"statementOfProfitAndLoss": [{"class": "Revenue"}, {"class": "Expenses"}]}`)
	exec := NewExecutor(stub, 0)

	result := exec.Run(context.Background(), StageClasses, testProfile(), Fallback(StageStatements))

	require.True(t, result.OK())
	assert.Equal(t, StageClasses, result.Stage)
	assert.Len(t, result.Value[types.StatementProfitAndLoss], 2)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1500, calls[0].MaxTokens)
	assert.Equal(t, llm.TierStandard, calls[0].Tier)
	assert.Contains(t, calls[0].Prompt, "Acme Traders")
	assert.Contains(t, calls[0].Prompt, types.StatementFinancialPosition)
}

func TestExecutorRun_StatementsUseObjectKeys(t *testing.T) {
	stub := llmtest.Fixed("```json\n{\"statementOfProfitAndLoss\": {}, \"statementOfCashFlows\": \"yes\"}\n```")
	exec := NewExecutor(stub, 0)

	result := exec.Run(context.Background(), StageStatements, testProfile())

	require.True(t, result.OK())
	assert.Equal(t, []string{types.StatementCashFlows, types.StatementProfitAndLoss}, result.Value.Statements())
	assert.Empty(t, result.Value[types.StatementCashFlows])
}

func TestExecutorRun_Failures(t *testing.T) {
	tests := []struct {
		name      string
		stage     Stage
		client    llm.Client
		wantParse bool
	}{
		{name: "upstream failure", stage: StageClasses, client: llmtest.Failing()},
		{name: "plain error is wrapped as upstream", stage: StageClasses, client: llmtest.New(func(llm.Request) (string, error) {
			return "", errors.New("connection reset")
		})},
		{name: "not json", stage: StageClasses, client: llmtest.Fixed("I cannot help with that"), wantParse: true},
		{name: "empty object", stage: StageStatements, client: llmtest.Fixed("{}"), wantParse: true},
		{name: "missing required key", stage: StageAccounts, client: llmtest.Fixed(`{"statementOfProfitAndLoss": [{"class": "Revenue"}]}`), wantParse: true},
		{name: "panic is contained", stage: StageAccounts, client: llmtest.New(func(llm.Request) (string, error) {
			panic("boom")
		}), wantParse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewExecutor(tt.client, 0).Run(context.Background(), tt.stage, testProfile())

			require.False(t, result.OK())
			assert.Nil(t, result.Value)
			assert.True(t, llm.IsRecoverable(result.Err))

			var parseErr *llm.ParseError
			assert.Equal(t, tt.wantParse, errors.As(result.Err, &parseErr))
		})
	}
}

func TestExecutorRun_Timeout(t *testing.T) {
	stub := llmtest.New(func(llm.Request) (string, error) {
		return "", &llm.UpstreamError{Err: context.DeadlineExceeded}
	})
	exec := NewExecutor(stub, time.Millisecond)

	result := exec.Run(context.Background(), StageStatements, testProfile())

	var upstream *llm.UpstreamError
	require.ErrorAs(t, result.Err, &upstream)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestStages(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 5)

	wantTokens := []int{1000, 1500, 2000, 3000, 4000}
	wantNames := []string{"statements", "classes", "classifications", "subclassifications", "accounts"}
	for i, s := range stages {
		assert.Equal(t, wantTokens[i], s.MaxTokens())
		assert.Equal(t, wantNames[i], s.String())
	}
	assert.Equal(t, "stage(9)", Stage(9).String())
}

func TestBuildPrompt(t *testing.T) {
	profile := testProfile()

	t.Run("profile fields are interpolated", func(t *testing.T) {
		prompt := BuildPrompt(StageStatements, profile)
		assert.Contains(t, prompt, "Acme Traders")
		assert.Contains(t, prompt, "GST, TDS")
		assert.Contains(t, prompt, "Ind AS")
		assert.NotContains(t, prompt, "{{.")
	})

	t.Run("empty prior renders as empty object", func(t *testing.T) {
		prompt := BuildPrompt(StageClasses, profile)
		assert.Contains(t, prompt, "Statements so far:\n{}\n")
	})

	t.Run("latest prior structure is rendered", func(t *testing.T) {
		prompt := BuildPrompt(StageAccounts, profile, Fallback(StageClasses), Fallback(StageSubclassifications))
		assert.Contains(t, prompt, "Cash and Cash Equivalents")
		assert.Contains(t, prompt, "1000-1999")
	})

	t.Run("missing compliances", func(t *testing.T) {
		p := profile
		p.StatutoryCompliances = nil
		assert.Contains(t, BuildPrompt(StageStatements, p), "None specified")
	})
}
