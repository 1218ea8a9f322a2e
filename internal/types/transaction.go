package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest represents the request to record a transaction.
// When Category is empty the transaction is categorized before it is stored.
type CreateTransactionRequest struct {
	CompanyID       uuid.UUID       `json:"company_id"`
	ContactID       *uuid.UUID      `json:"contact_id,omitempty"`
	Description     string          `json:"description" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type" validate:"required,max=50"`
	Category        string          `json:"category,omitempty" validate:"max=100"`
	AccountCode     string          `json:"account_code,omitempty" validate:"omitempty,len=4,numeric"`
	Date            *time.Time      `json:"date,omitempty"`
}

// Validate validates the request using the validator.
func (r *CreateTransactionRequest) Validate() error {
	if r.CompanyID == uuid.Nil {
		return NewValidationError("company_id", "is required")
	}
	return AsValidationError(validate.Struct(r))
}
