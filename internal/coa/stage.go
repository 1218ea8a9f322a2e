package coa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// Stage identifies one step of the generation pipeline.
type Stage int

// Pipeline stages in execution order.
const (
	StageStatements Stage = iota + 1
	StageClasses
	StageClassifications
	StageSubclassifications
	StageAccounts
)

type stageSpec struct {
	name      string
	promptKey string
	maxTokens int
	tier      llm.ModelTier
	// requiredKey must appear in at least one entry of a parsed result.
	requiredKey string
}

var stageSpecs = map[Stage]stageSpec{
	StageStatements:         {name: "statements", promptKey: "statements", maxTokens: 1000, tier: llm.TierStandard},
	StageClasses:            {name: "classes", promptKey: "classes", maxTokens: 1500, tier: llm.TierStandard, requiredKey: "class"},
	StageClassifications:    {name: "classifications", promptKey: "classifications", maxTokens: 2000, tier: llm.TierStandard, requiredKey: "classification"},
	StageSubclassifications: {name: "subclassifications", promptKey: "subclassifications", maxTokens: 3000, tier: llm.TierStandard, requiredKey: "subclassification"},
	StageAccounts:           {name: "accounts", promptKey: "accounts", maxTokens: 4000, tier: llm.TierAdvanced, requiredKey: "account"},
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageStatements, StageClasses, StageClassifications, StageSubclassifications, StageAccounts}
}

func (s Stage) String() string {
	if spec, ok := stageSpecs[s]; ok {
		return spec.name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MaxTokens returns the token ceiling requested for the stage.
func (s Stage) MaxTokens() int {
	return stageSpecs[s].maxTokens
}

// StageResult is the outcome of one stage: a parsed value or the upstream or
// parse error that prevented one.
type StageResult struct {
	Stage Stage
	Value Structure
	Err   error
}

// OK reports whether the stage produced model-derived output.
func (r StageResult) OK() bool {
	return r.Err == nil
}

// Executor runs single pipeline stages against a model client.
type Executor struct {
	client  llm.Client
	timeout time.Duration
}

// NewExecutor creates an executor. A positive timeout bounds each model call.
func NewExecutor(client llm.Client, timeout time.Duration) *Executor {
	return &Executor{client: client, timeout: timeout}
}

// Run builds the stage prompt, calls the model once and parses the reply.
// It never panics; failures are returned in StageResult.Err as an
// *llm.UpstreamError or *llm.ParseError.
func (e *Executor) Run(ctx context.Context, stage Stage, profile types.CompanyProfile, prior ...Structure) (result StageResult) {
	result.Stage = stage
	defer func() {
		if r := recover(); r != nil {
			result.Value = nil
			result.Err = &llm.ParseError{Err: eris.Errorf("stage %s panicked: %v", stage, r)}
		}
	}()

	spec, ok := stageSpecs[stage]
	if !ok {
		result.Err = &llm.ParseError{Err: eris.Errorf("unknown stage %d", int(stage))}
		return result
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := e.client.GenerateJSON(callCtx, llm.Request{
		Prompt:    BuildPrompt(stage, profile, prior...),
		MaxTokens: spec.maxTokens,
		Tier:      spec.tier,
	})
	if err != nil {
		var upstream *llm.UpstreamError
		if !errors.As(err, &upstream) {
			err = &llm.UpstreamError{Model: e.client.Model(spec.tier), Err: err}
		}
		result.Err = err
		return result
	}

	result.Value, result.Err = parseStage(stage, text)
	return result
}

// parseStage decodes a stage reply. Stage 1 takes the object's keys as the
// statements; later stages take every value that is an array of objects.
func parseStage(stage Stage, text string) (Structure, error) {
	var raw map[string]json.RawMessage
	if err := llm.DecodeObject(text, &raw); err != nil {
		return nil, err
	}

	out := Structure{}
	if stage == StageStatements {
		for statement := range raw {
			out[statement] = []Entry{}
		}
	} else {
		for statement, value := range raw {
			var entries []Entry
			if err := json.Unmarshal(value, &entries); err != nil {
				continue
			}
			kept := make([]Entry, 0, len(entries))
			for _, entry := range entries {
				if entry != nil {
					kept = append(kept, entry)
				}
			}
			out[statement] = kept
		}
	}

	if len(out) == 0 {
		return nil, &llm.ParseError{Raw: text, Err: eris.Errorf("%s: no statements in response", stage)}
	}
	if key := stageSpecs[stage].requiredKey; key != "" && !hasKey(out, key) {
		return nil, &llm.ParseError{Raw: text, Err: eris.Errorf("%s: no entry carries %q", stage, key)}
	}
	return out, nil
}

func hasKey(s Structure, key string) bool {
	for _, entries := range s {
		for _, e := range entries {
			if e.Has(key) {
				return true
			}
		}
	}
	return false
}
