package db

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Pool is the subset of *pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "db: parse database url")
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "db: connect to database")
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "db: ping database")
	}

	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Driver returns DriverPostgres.
func (s *PostgresStore) Driver() string { return DriverPostgres }

// Ping verifies the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return persistErr("ping", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate applies pending migrations in lexicographic order, recording each
// in schema_migrations. An advisory lock serialises concurrent runs.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "db.migrate"))

	if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_lock(4120001)"); err != nil {
		return persistErr("migrate", eris.Wrap(err, "acquire advisory lock"))
	}
	defer func() {
		if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_unlock(4120001)"); err != nil {
			log.Warn("failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		     filename   TEXT PRIMARY KEY,
		     applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`); err != nil {
		return persistErr("migrate", eris.Wrap(err, "create schema_migrations"))
	}

	applied := make(map[string]bool)
	rows, err := s.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "list applied migrations"))
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return persistErr("migrate", eris.Wrap(err, "scan applied migration"))
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return persistErr("migrate", err)
	}

	entries, err := fs.ReadDir(postgresMigrations, "migrations/postgres")
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "read migration dir"))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := postgresMigrations.ReadFile("migrations/postgres/" + name)
		if err != nil {
			return persistErr("migrate", eris.Wrapf(err, "read %s", name))
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return persistErr("migrate", eris.Wrapf(err, "apply %s", name))
		}
		if _, err := s.pool.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return persistErr("migrate", eris.Wrapf(err, "record %s", name))
		}
		log.Info("applied migration", zap.String("file", name))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

const userColumns = `id, name, email, password_hash, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		name, email, passwordHash,
	))
	if err != nil {
		return nil, persistErr("create user", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get user", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get user by email", err)
	}
	return u, nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *PostgresStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return persistErr("update password", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Company Profiles
// -----------------------------------------------------------------------------

const profileColumns = `id, user_id, company_name, nature_of_business, industry, location, company_type,
	reporting_framework, statutory_compliances, business_size, annual_turnover, employee_count,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*CompanyProfile, error) {
	var (
		p           CompanyProfile
		compliances []byte
		turnover    decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CompanyName, &p.NatureOfBusiness, &p.Industry, &p.Location,
		&p.CompanyType, &p.ReportingFramework, &compliances, &p.BusinessSize, &turnover,
		&p.EmployeeCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalCompliances(compliances, &p.CompanyProfile); err != nil {
		return nil, err
	}
	if turnover.Valid {
		p.AnnualTurnover = &turnover.Decimal
	}
	return &p, nil
}

// CreateCompanyProfile stores a profile owned by userID.
func (s *PostgresStore) CreateCompanyProfile(ctx context.Context, userID uuid.UUID, profile types.CompanyProfile) (*CompanyProfile, error) {
	compliances, err := json.Marshal(nonNil(profile.StatutoryCompliances))
	if err != nil {
		return nil, persistErr("create company profile", eris.Wrap(err, "marshal compliances"))
	}

	p, err := scanProfile(s.pool.QueryRow(ctx,
		`INSERT INTO company_profiles (user_id, company_name, nature_of_business, industry, location,
		     company_type, reporting_framework, statutory_compliances, business_size, annual_turnover, employee_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+profileColumns,
		userID, profile.CompanyName, profile.NatureOfBusiness, profile.Industry, profile.Location,
		profile.CompanyType, profile.ReportingFramework, compliances, profile.BusinessSize,
		nullDecimal(profile.AnnualTurnover), profile.EmployeeCount,
	))
	if err != nil {
		return nil, persistErr("create company profile", err)
	}
	return p, nil
}

// GetCompanyProfile retrieves a profile owned by userID.
func (s *PostgresStore) GetCompanyProfile(ctx context.Context, userID, id uuid.UUID) (*CompanyProfile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM company_profiles WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get company profile", err)
	}
	return p, nil
}

// ListCompanyProfiles returns the profiles owned by userID, newest first.
func (s *PostgresStore) ListCompanyProfiles(ctx context.Context, userID uuid.UUID) ([]CompanyProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM company_profiles WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, persistErr("list company profiles", err)
	}
	defer rows.Close()

	profiles := []CompanyProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, persistErr("list company profiles", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list company profiles", err)
	}
	return profiles, nil
}

// DeleteCompanyProfile deletes a profile owned by userID with its accounts,
// contacts and transactions. It reports whether a row was deleted.
func (s *PostgresStore) DeleteCompanyProfile(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM company_profiles WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, persistErr("delete company profile", err)
	}
	return tag.RowsAffected() > 0, nil
}

// -----------------------------------------------------------------------------
// Chart of Accounts
// -----------------------------------------------------------------------------

// ReplaceChartOfAccounts deletes the company's accounts and inserts records
// inside one transaction. Any failure rolls the transaction back.
func (s *PostgresStore) ReplaceChartOfAccounts(ctx context.Context, companyID uuid.UUID, records []types.AccountRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "begin transaction"))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chart_of_accounts WHERE company_id = $1`, companyID); err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "delete existing accounts"))
	}

	inserted := 0
	for _, r := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO chart_of_accounts (company_id, statement_type, class, classification,
			     subclassification, account_name, code, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			companyID, r.StatementType, r.Class, r.Classification, r.Subclassification,
			r.Account, r.Code, r.Description,
		)
		if err != nil {
			return 0, persistErr("replace chart of accounts", eris.Wrapf(err, "insert account %s", r.Code))
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "commit"))
	}
	return inserted, nil
}

// ListChartOfAccounts returns the company's active accounts ordered by code.
func (s *PostgresStore) ListChartOfAccounts(ctx context.Context, companyID uuid.UUID) ([]ChartAccount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, statement_type, class, classification, subclassification,
		        account_name, code, description, is_active, created_at
		 FROM chart_of_accounts
		 WHERE company_id = $1 AND is_active
		 ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, persistErr("list chart of accounts", err)
	}
	defer rows.Close()

	accounts := []ChartAccount{}
	for rows.Next() {
		var a ChartAccount
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.StatementType, &a.Class, &a.Classification,
			&a.Subclassification, &a.Account, &a.Code, &a.Description, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, persistErr("list chart of accounts", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list chart of accounts", err)
	}
	return accounts, nil
}

// -----------------------------------------------------------------------------
// Contacts
// -----------------------------------------------------------------------------

const contactColumns = `id, company_id, name, contact_type, email, phone, address, tax_id, is_verified, created_at`

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.ContactType, &c.Email, &c.Phone,
		&c.Address, &c.TaxID, &c.IsVerified, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContact stores a contact for a company.
func (s *PostgresStore) CreateContact(ctx context.Context, companyID uuid.UUID, req types.CreateContactRequest) (*Contact, error) {
	c, err := scanContact(s.pool.QueryRow(ctx,
		`INSERT INTO contacts (company_id, name, contact_type, email, phone, address, tax_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+contactColumns,
		companyID, req.Name, req.ContactType, req.Email, req.Phone, req.Address, req.TaxID,
	))
	if err != nil {
		return nil, persistErr("create contact", err)
	}
	return c, nil
}

// ListContacts returns a company's contacts ordered by name.
func (s *PostgresStore) ListContacts(ctx context.Context, companyID uuid.UUID) ([]Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE company_id = $1 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, persistErr("list contacts", err)
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, persistErr("list contacts", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list contacts", err)
	}
	return contacts, nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

const transactionColumns = `id, company_id, contact_id, description, amount, transaction_type,
	category, account_code, txn_date, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t       Transaction
		contact uuid.NullUUID
	)
	err := row.Scan(&t.ID, &t.CompanyID, &contact, &t.Description, &t.Amount, &t.TransactionType,
		&t.Category, &t.AccountCode, &t.Date, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if contact.Valid {
		t.ContactID = &contact.UUID
	}
	return &t, nil
}

// CreateTransaction stores a transaction.
func (s *PostgresStore) CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`INSERT INTO transactions (company_id, contact_id, description, amount, transaction_type,
		     category, account_code, txn_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+transactionColumns,
		in.CompanyID, nullUUID(in.ContactID), in.Description, in.Amount, in.TransactionType,
		in.Category, in.AccountCode, in.Date,
	))
	if err != nil {
		return nil, persistErr("create transaction", err)
	}
	return t, nil
}

// ListTransactions returns a company's transactions, most recent first.
func (s *PostgresStore) ListTransactions(ctx context.Context, companyID uuid.UUID) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE company_id = $1 ORDER BY txn_date DESC, created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, persistErr("list transactions", err)
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, persistErr("list transactions", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list transactions", err)
	}
	return txns, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func unmarshalCompliances(data []byte, p *types.CompanyProfile) error {
	p.StatutoryCompliances = []string{}
	if len(data) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(data, &p.StatutoryCompliances), "unmarshal compliances")
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
