package coa

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
)

// Generation method tags.
const (
	MethodFiveStep      = "5_step_ai_workflow"
	MethodFallbackBasic = "fallback_basic_coa"
)

// Stage output sources.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// PipelineError reports a profile that cannot be used to build prompts.
type PipelineError struct {
	Err error
}

func (e *PipelineError) Error() string {
	return "coa pipeline: " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StepOutput records the value a stage contributed and where it came from.
type StepOutput struct {
	Stage  string    `json:"stage"`
	Source string    `json:"source"`
	Error  string    `json:"error,omitempty"`
	Result Structure `json:"result"`
}

// Metadata summarises a generation.
type Metadata struct {
	TotalAccounts    int       `json:"total_accounts"`
	GeneratedAt      time.Time `json:"generated_at"`
	AIModel          string    `json:"ai_model"`
	GenerationMethod string    `json:"generation_method"`
}

// Envelope is the result of one generation request. It is not modified after
// Generate returns it.
type Envelope struct {
	Status          string               `json:"status"`
	CompanyProfile  types.CompanyProfile `json:"company_profile"`
	WorkflowSteps   []StepOutput         `json:"workflow_steps,omitempty"`
	ChartOfAccounts Structure            `json:"chart_of_accounts"`
	BandingIssues   []BandingIssue       `json:"banding_issues,omitempty"`
	Metadata        Metadata             `json:"metadata"`
}

// Records returns the persistable account rows of the chart.
func (e *Envelope) Records() []types.AccountRecord {
	return e.ChartOfAccounts.Records()
}

// Generator runs the five-stage chart of accounts pipeline.
type Generator struct {
	client      llm.Client
	executor    *Executor
	remediation Remediation
	now         func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRemediation sets the policy for accounts failing the banding checks.
func WithRemediation(r Remediation) Option {
	return func(g *Generator) { g.remediation = r }
}

// WithClock sets the clock used for generated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithStageTimeout bounds each model call.
func WithStageTimeout(d time.Duration) Option {
	return func(g *Generator) { g.executor.timeout = d }
}

// NewGenerator creates a generator calling client for every stage.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		executor:    NewExecutor(client, 0),
		remediation: RemediationReassign,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a chart of accounts for profile.
//
// Stages run strictly in order and each receives its predecessor's value. A
// failed stage is replaced by its static fallback and recorded as such. When
// no stage produced model output, or anything unexpected escapes the stages,
// the envelope is the fixed skeleton chart with status "fallback". The only
// error returned is a *PipelineError for a profile missing prompt fields.
func (g *Generator) Generate(ctx context.Context, profile types.CompanyProfile) (env *Envelope, err error) {
	profile.Normalize()
	if err := checkProfile(profile); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("coa generation failed, returning skeleton chart",
				zap.String("company", profile.CompanyName),
				zap.Any("panic", r),
			)
			env, err = g.skeleton(profile), nil
		}
	}()

	steps := make([]StepOutput, 0, len(Stages()))
	var prior Structure
	aiStages := 0
	for _, stage := range Stages() {
		result := g.executor.Run(ctx, stage, profile, prior)

		step := StepOutput{Stage: stage.String(), Source: SourceAI}
		value := result.Value
		if !result.OK() {
			zap.L().Warn("coa stage fell back",
				zap.String("stage", stage.String()),
				zap.String("company", profile.CompanyName),
				zap.Error(result.Err),
			)
			value = Fallback(stage)
			step.Source = SourceFallback
			step.Error = result.Err.Error()
		} else {
			aiStages++
		}
		step.Result = value.Clone()
		steps = append(steps, step)
		prior = value
	}

	if aiStages == 0 {
		zap.L().Warn("no coa stage produced model output, returning skeleton chart",
			zap.String("company", profile.CompanyName),
		)
		return g.skeleton(profile), nil
	}

	chart, issues := EnforceBanding(prior, g.remediation)
	if chart.CountAccounts() == 0 {
		chart = Fallback(StageAccounts)
	}
	if len(issues) > 0 {
		zap.L().Info("coa banding issues",
			zap.String("company", profile.CompanyName),
			zap.Int("issues", len(issues)),
			zap.String("remediation", string(g.remediation)),
		)
	}

	return &Envelope{
		Status:          types.StatusSuccess,
		CompanyProfile:  profile,
		WorkflowSteps:   steps,
		ChartOfAccounts: chart,
		BandingIssues:   issues,
		Metadata: Metadata{
			TotalAccounts:    chart.CountAccounts(),
			GeneratedAt:      g.now().UTC(),
			AIModel:          g.client.Model(llm.TierAdvanced),
			GenerationMethod: MethodFiveStep,
		},
	}, nil
}

func (g *Generator) skeleton(profile types.CompanyProfile) *Envelope {
	chart := SkeletonChart()
	return &Envelope{
		Status:          types.StatusFallback,
		CompanyProfile:  profile,
		ChartOfAccounts: chart,
		Metadata: Metadata{
			TotalAccounts:    chart.CountAccounts(),
			GeneratedAt:      g.now().UTC(),
			AIModel:          g.client.Model(llm.TierAdvanced),
			GenerationMethod: MethodFallbackBasic,
		},
	}
}

// checkProfile verifies the fields every stage prompt interpolates.
func checkProfile(p types.CompanyProfile) error {
	required := []struct {
		field string
		value string
	}{
		{"company_name", p.CompanyName},
		{"industry", p.Industry},
		{"company_type", p.CompanyType},
		{"reporting_framework", p.ReportingFramework},
	}
	for _, r := range required {
		if r.value == "" {
			return &PipelineError{Err: types.NewValidationError(r.field, "is required")}
		}
	}
	return nil
}

// ErrNoAccounts is returned when a chart has nothing to persist.
var ErrNoAccounts = eris.New("chart of accounts has no account rows")
