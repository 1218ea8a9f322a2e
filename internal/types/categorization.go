package types

import (
	"math"
	"strings"
)

// Categorization method tags.
const (
	MethodAICategorization = "ai_categorization"
	MethodKeywordFallback  = "fallback_keyword_matching"
)

// Categorization and generation status values.
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
)

// Ledger sides.
const (
	Debit  = "debit"
	Credit = "credit"
)

// CategorizeRequest is a transaction to categorize.
type CategorizeRequest struct {
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"`
}

// Validate checks the request shape.
func (r *CategorizeRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return NewValidationError("amount", "must be a finite number")
	}
	return nil
}

// CategorizationResult is the category and account code assigned to a transaction.
type CategorizationResult struct {
	Category        string  `json:"category"`
	AccountCode     string  `json:"account_code"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
	Method          string  `json:"method"`
	Status          string  `json:"status"`
}
