package coa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/llm/llmtest"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

const (
	statementsReply         = `{"statementOfProfitAndLoss": {}, "statementOfFinancialPosition": {}}`
	classesReply            = `{"statementOfProfitAndLoss": [{"class": "Revenue"}], "statementOfFinancialPosition": [{"class": "Assets"}]}`
	classificationsReply    = `{"statementOfProfitAndLoss": [{"class": "Revenue", "classification": "Operating Revenue"}], "statementOfFinancialPosition": [{"class": "Assets", "classification": "Current Assets"}]}`
	subclassificationsReply = `{"statementOfProfitAndLoss": [{"class": "Revenue", "classification": "Operating Revenue", "subclassification": "Sales"}], "statementOfFinancialPosition": [{"class": "Assets", "classification": "Current Assets", "subclassification": "Cash"}]}`
	accountsReply           = `{
		"statementOfFinancialPosition": [
			{"class": "Assets", "classification": "Current Assets", "subclassification": "Cash", "account": "Cash in Hand", "code": "1001"},
			{"class": "Assets", "classification": "Current Assets", "subclassification": "Cash", "account": "Petty Cash", "code": "4500"}
		],
		"statementOfProfitAndLoss": [
			{"class": "Revenue", "classification": "Operating Revenue", "subclassification": "Sales", "account": "Sales Revenue", "code": 4001}
		]
	}`
)

func codes(s Structure) []string {
	var out []string
	for _, rec := range s.Records() {
		out = append(out, rec.Code)
	}
	return out
}

func TestGenerate_AllStagesFail(t *testing.T) {
	stub := llmtest.Failing()
	gen := NewGenerator(stub, WithClock(fixedClock))

	env, err := gen.Generate(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, types.StatusFallback, env.Status)
	assert.Equal(t, MethodFallbackBasic, env.Metadata.GenerationMethod)
	assert.Equal(t, 7, env.Metadata.TotalAccounts)
	assert.Empty(t, env.WorkflowSteps)
	assert.ElementsMatch(t, []string{"1001", "1002", "1101", "2001", "3001", "4001", "6001"}, codes(env.ChartOfAccounts))
	assert.Equal(t, fixedNow, env.Metadata.GeneratedAt)
	assert.Len(t, stub.Calls(), 5, "every stage is attempted once")
}

func TestGenerate_Success(t *testing.T) {
	stub := llmtest.Sequence(statementsReply, classesReply, classificationsReply, subclassificationsReply, accountsReply)
	gen := NewGenerator(stub, WithClock(fixedClock))

	env, err := gen.Generate(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, env.Status)
	assert.Equal(t, MethodFiveStep, env.Metadata.GenerationMethod)
	assert.Equal(t, llmtest.StubModel, env.Metadata.AIModel)
	assert.Equal(t, 3, env.Metadata.TotalAccounts)

	require.Len(t, env.WorkflowSteps, 5)
	for i, step := range env.WorkflowSteps {
		assert.Equal(t, Stages()[i].String(), step.Stage)
		assert.Equal(t, SourceAI, step.Source)
		assert.Empty(t, step.Error)
	}

	require.Len(t, env.BandingIssues, 1)
	assert.Equal(t, "Petty Cash", env.BandingIssues[0].Account)
	assert.Equal(t, "1000", env.BandingIssues[0].NewCode)
	assert.ElementsMatch(t, []string{"1001", "1000", "4001"}, codes(env.ChartOfAccounts))

	calls := stub.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, llm.TierAdvanced, calls[4].Tier)
	assert.Equal(t, 4000, calls[4].MaxTokens)
	assert.Contains(t, calls[4].Prompt, `"subclassification": "Cash"`)
}

func TestGenerate_PartialFallback(t *testing.T) {
	stub := llmtest.Sequence(statementsReply)
	gen := NewGenerator(stub, WithClock(fixedClock))

	env, err := gen.Generate(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, env.Status)
	require.Len(t, env.WorkflowSteps, 5)
	assert.Equal(t, SourceAI, env.WorkflowSteps[0].Source)
	for _, step := range env.WorkflowSteps[1:] {
		assert.Equal(t, SourceFallback, step.Source)
		assert.NotEmpty(t, step.Error)
	}
	assert.Empty(t, cmp.Diff(Fallback(StageAccounts), env.ChartOfAccounts))
	assert.Equal(t, 2, env.Metadata.TotalAccounts)
}

func TestGenerate_StageMissingRequiredKeyFallsBack(t *testing.T) {
	stub := llmtest.Fixed(`{"statementOfProfitAndLoss": []}`)
	gen := NewGenerator(stub, WithClock(fixedClock))

	env, err := gen.Generate(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, SourceAI, env.WorkflowSteps[0].Source)
	assert.Equal(t, SourceFallback, env.WorkflowSteps[1].Source)
	assert.Contains(t, env.WorkflowSteps[1].Error, `"class"`)
}

func TestGenerate_RejectedAccountsUseFallback(t *testing.T) {
	stub := llmtest.Sequence(statementsReply, classesReply, classificationsReply, subclassificationsReply,
		`{"statementOfFinancialPosition": [{"class": "Assets", "account": "Bad", "code": "99"}]}`)
	gen := NewGenerator(stub, WithClock(fixedClock), WithRemediation(RemediationReject))

	env, err := gen.Generate(context.Background(), testProfile())

	require.NoError(t, err)
	require.Len(t, env.BandingIssues, 1)
	assert.Equal(t, ActionRejected, env.BandingIssues[0].Action)
	assert.Equal(t, []string{"1001", "4001"}, codes(env.ChartOfAccounts))
}

func TestGenerate_Deterministic(t *testing.T) {
	first, err := NewGenerator(llmtest.Failing(), WithClock(fixedClock)).Generate(context.Background(), testProfile())
	require.NoError(t, err)
	second, err := NewGenerator(llmtest.Failing(), WithClock(fixedClock)).Generate(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
}

func TestGenerate_InvalidProfile(t *testing.T) {
	stub := llmtest.Failing()
	profile := testProfile()
	profile.Industry = "  "

	env, err := NewGenerator(stub).Generate(context.Background(), profile)

	assert.Nil(t, env)
	var pipelineErr *PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "industry", verr.Field)
	assert.Empty(t, stub.Calls())
}

func TestGenerate_DefaultsReportingFramework(t *testing.T) {
	profile := testProfile()
	profile.ReportingFramework = ""

	env, err := NewGenerator(llmtest.Failing()).Generate(context.Background(), profile)

	require.NoError(t, err)
	assert.Equal(t, types.DefaultReportingFramework, env.CompanyProfile.ReportingFramework)
}
