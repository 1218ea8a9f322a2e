// Package db persists users, company profiles, charts of accounts, contacts
// and transactions in PostgreSQL or SQLite.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is the persistence layer used by the HTTP API and CLI. Lookups of
// missing rows return nil and no error.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateCompanyProfile(ctx context.Context, userID uuid.UUID, profile types.CompanyProfile) (*CompanyProfile, error)
	GetCompanyProfile(ctx context.Context, userID, id uuid.UUID) (*CompanyProfile, error)
	ListCompanyProfiles(ctx context.Context, userID uuid.UUID) ([]CompanyProfile, error)
	DeleteCompanyProfile(ctx context.Context, userID, id uuid.UUID) (bool, error)

	// ReplaceChartOfAccounts deletes every account of the company and inserts
	// every given record in one transaction, returning the number inserted.
	// Selecting rows by "account" and "code" key presence is the caller's job
	// (coa.Structure.Records).
	ReplaceChartOfAccounts(ctx context.Context, companyID uuid.UUID, records []types.AccountRecord) (int, error)
	ListChartOfAccounts(ctx context.Context, companyID uuid.UUID) ([]ChartAccount, error)

	CreateContact(ctx context.Context, companyID uuid.UUID, req types.CreateContactRequest) (*Contact, error)
	ListContacts(ctx context.Context, companyID uuid.UUID) ([]Contact, error)

	CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error)
	ListTransactions(ctx context.Context, companyID uuid.UUID) ([]Transaction, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// Open connects to the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		store, err := Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, eris.Errorf("db: unknown store driver %q", cfg.Driver)
	}
}
