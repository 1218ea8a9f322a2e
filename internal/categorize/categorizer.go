// Package categorize assigns ledger categories and account codes to
// transactions, using the model when it answers and keyword rules otherwise.
package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/prompts"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConfidencePolicy decides the confidence of keyword fallback results.
type ConfidencePolicy string

// Confidence policies.
const (
	// PolicySplit reports 0.8 for a keyword match and 0.6 for the default.
	PolicySplit ConfidencePolicy = "split"
	// PolicyFlat reports 0.6 for every fallback result.
	PolicyFlat ConfidencePolicy = "flat"
)

const (
	aiMaxTokens        = 500
	defaultAICategory  = "Miscellaneous Expenses"
	defaultAICode      = "6999"
	defaultAIConf      = 0.8
	defaultAIReasoning = "AI categorization"
	fallbackReasoning  = "Keyword-based fallback categorization"
)

var categorizationSchema = llm.ResponseSchema{
	Name:        "TransactionCategory",
	Description: prompts.MustGet(prompts.CategorizeFile, "categorize-transaction"),
	Fields: []llm.SchemaField{
		{Name: "category", Type: "\"string\"", Description: "Ledger category name", Required: true},
		{Name: "account_code", Type: "\"string\"", Description: "4-digit account code", Required: true},
		{Name: "confidence", Type: "number", Description: "Confidence between 0 and 1"},
		{Name: "reasoning", Type: "\"string\"", Description: "One sentence explaining the choice"},
		{Name: "transaction_type", Type: "\"string\"", Description: "debit or credit"},
	},
}

// Categorizer categorizes transactions. It is safe for concurrent use.
type Categorizer struct {
	client      llm.Client
	rules       *Rules
	policy      ConfidencePolicy
	cache       *cache.Cache
	concurrency int
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithConfidencePolicy sets the fallback confidence policy.
func WithConfidencePolicy(p ConfidencePolicy) Option {
	return func(c *Categorizer) { c.policy = p }
}

// WithRules replaces the embedded keyword rules.
func WithRules(r *Rules) Option {
	return func(c *Categorizer) { c.rules = r }
}

// WithCacheTTL sets how long model results are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Categorizer) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, 2*ttl)
	}
}

// WithConcurrency bounds the model calls CategorizeBatch runs at once.
func WithConcurrency(n int) Option {
	return func(c *Categorizer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a categorizer calling client.
func New(client llm.Client, opts ...Option) *Categorizer {
	c := &Categorizer{
		client:      client,
		rules:       DefaultRules(),
		policy:      PolicySplit,
		cache:       cache.New(10*time.Minute, 20*time.Minute),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize assigns a category to req. Model failures are answered by the
// keyword rules; the only error returned is a *types.ValidationError.
func (c *Categorizer) Categorize(ctx context.Context, req types.CategorizeRequest) (*types.CategorizationResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if c.cache != nil {
		if cached, found := c.cache.Get(key); found {
			result := cached.(types.CategorizationResult)
			return &result, nil
		}
	}

	result, err := c.categorizeAI(ctx, req)
	if err != nil {
		log := zap.L().Error
		switch {
		case errors.Is(err, llm.ErrDisabled):
			log = zap.L().Debug
		case llm.IsRecoverable(err):
			log = zap.L().Warn
		}
		log("ai categorization unavailable, using keyword rules",
			zap.String("description", req.Description),
			zap.Error(err),
		)
		return c.Fallback(req), nil
	}

	if c.cache != nil {
		c.cache.Set(key, *result, cache.DefaultExpiration)
	}
	return result, nil
}

// CategorizeBatch categorizes every request, preserving order. Invalid
// requests fail the whole batch before any model call is made.
func (c *Categorizer) CategorizeBatch(ctx context.Context, reqs []types.CategorizeRequest) ([]types.CategorizationResult, error) {
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				return nil, types.NewValidationError(fmt.Sprintf("transactions[%d].%s", i, verr.Field), verr.Message)
			}
			return nil, err
		}
	}

	results := make([]types.CategorizationResult, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := c.Categorize(gCtx, req)
			if err != nil {
				return err
			}
			results[i] = *result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fallback categorizes req with the keyword rules alone.
func (c *Categorizer) Fallback(req types.CategorizeRequest) *types.CategorizationResult {
	rule, matched := c.rules.Match(req.Description)

	confidence := 0.6
	if matched && c.policy != PolicyFlat {
		confidence = 0.8
	}

	return &types.CategorizationResult{
		Category:        rule.Category,
		AccountCode:     rule.AccountCode,
		Confidence:      confidence,
		Reasoning:       fallbackReasoning,
		TransactionType: amountSide(req.Amount),
		Amount:          req.Amount,
		Method:          types.MethodKeywordFallback,
		Status:          types.StatusFallback,
	}
}

type aiReply struct {
	Category        *string  `json:"category"`
	AccountCode     any      `json:"account_code"`
	Confidence      *float64 `json:"confidence"`
	Reasoning       *string  `json:"reasoning"`
	TransactionType *string  `json:"transaction_type"`
}

func (c *Categorizer) categorizeAI(ctx context.Context, req types.CategorizeRequest) (*types.CategorizationResult, error) {
	input, err := prompts.Render(prompts.CategorizeFile, "transaction-input", map[string]string{
		"Description":     req.Description,
		"Amount":          strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"TransactionType": req.TransactionType,
	})
	if err != nil {
		return nil, err
	}

	text, err := c.client.GenerateJSON(ctx, llm.Request{
		Prompt:    llm.BuildSchemaPrompt(categorizationSchema, input),
		MaxTokens: aiMaxTokens,
		Tier:      llm.TierLite,
	})
	if err != nil {
		return nil, err
	}

	var reply aiReply
	if err := llm.DecodeObject(text, &reply); err != nil {
		return nil, err
	}

	result := &types.CategorizationResult{
		Category:        orDefault(reply.Category, defaultAICategory),
		AccountCode:     defaultAICode,
		Confidence:      defaultAIConf,
		Reasoning:       orDefault(reply.Reasoning, defaultAIReasoning),
		TransactionType: normalizeSide(reply.TransactionType, req.Amount),
		Amount:          req.Amount,
		Method:          types.MethodAICategorization,
		Status:          types.StatusSuccess,
	}
	if code := formatCode(reply.AccountCode); code != "" {
		result.AccountCode = code
	}
	if reply.Confidence != nil {
		result.Confidence = min(max(*reply.Confidence, 0), 1)
	}
	return result, nil
}

// amountSide is debit for a positive amount and credit otherwise.
func amountSide(amount float64) string {
	if amount > 0 {
		return types.Debit
	}
	return types.Credit
}

// normalizeSide keeps a debit or credit answer from the model and replaces anything
// else with the side implied by the amount.
func normalizeSide(v *string, amount float64) string {
	if v != nil {
		switch s := strings.ToLower(strings.TrimSpace(*v)); s {
		case types.Debit, types.Credit:
			return s
		}
	}
	return amountSide(amount)
}

func orDefault(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return strings.TrimSpace(*v)
}

func formatCode(v any) string {
	switch code := v.(type) {
	case string:
		return strings.TrimSpace(code)
	case float64:
		return strconv.FormatFloat(code, 'f', -1, 64)
	case json.Number:
		return code.String()
	}
	return ""
}

func cacheKey(req types.CategorizeRequest) string {
	return strings.Join([]string{
		strings.ToLower(req.Description),
		strconv.FormatFloat(req.Amount, 'f', -1, 64),
		strings.ToLower(strings.TrimSpace(req.TransactionType)),
	}, "\x1f")
}
