package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/shopspring/decimal"
)

// User is a registered account holder.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToAPI converts the row to its API representation.
func (u *User) ToAPI() *types.User {
	return &types.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CompanyProfile is a stored company owned by a user.
type CompanyProfile struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	types.CompanyProfile
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChartAccount is one stored account of a company's chart of accounts.
type ChartAccount struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	types.AccountRecord
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a vendor, customer or other counterparty of a company.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"company_id"`
	Name        string    `json:"name"`
	ContactType string    `json:"contact_type"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	TaxID       string    `json:"tax_id,omitempty"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction is a recorded business transaction.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	CompanyID       uuid.UUID       `json:"company_id"`
	ContactID       *uuid.UUID      `json:"contact_id,omitempty"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Category        string          `json:"category,omitempty"`
	AccountCode     string          `json:"account_code,omitempty"`
	Date            time.Time       `json:"date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransactionInput holds the values stored for a new transaction.
type TransactionInput struct {
	CompanyID       uuid.UUID
	ContactID       *uuid.UUID
	Description     string
	Amount          decimal.Decimal
	TransactionType string
	Category        string
	AccountCode     string
	Date            time.Time
}
