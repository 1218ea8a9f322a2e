package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// timestamps are stored as fixed-width UTC text so they sort lexically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path with WAL
// journaling, a busy timeout and foreign keys enabled.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "db: open sqlite database %s", path)
	}

	// Limit open connections to 1 for SQLite to avoid locking issues
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "db: ping sqlite database")
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Driver returns DriverSQLite.
func (s *SQLiteStore) Driver() string { return DriverSQLite }

// Ping verifies the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return persistErr("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded migrations with golang-migrate.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "create sqlite migration driver"))
	}

	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "open embedded migrations"))
	}
	defer func() { _ = src.Close() }()

	// The migrate instance is not closed: that would close s.db as well.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "create migration instance"))
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			zap.L().Debug("no new sqlite migrations to apply")
			return nil
		}
		return persistErr("migrate", eris.Wrap(err, "apply migrations"))
	}
	zap.L().Info("sqlite migrations applied")
	return nil
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(sqliteTimeLayout)
}

// timeScanner parses stored timestamps.
type timeScanner struct {
	t *time.Time
}

func (ts timeScanner) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case time.Time:
		*ts.t = v
		return nil
	default:
		return eris.Errorf("cannot scan %T into time", src)
	}
	parsed, err := time.Parse(sqliteTimeLayout, text)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return eris.Wrapf(err, "parse timestamp %q", text)
		}
	}
	*ts.t = parsed
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func scanSQLiteUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive,
		timeScanner{&u.CreatedAt}, timeScanner{&u.UpdatedAt})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	id := uuid.New()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id, name, email, passwordHash, now, now,
	)
	if err != nil {
		return nil, persistErr("create user", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get user", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get user by email", err)
	}
	return u, nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, s.timestamp(), id,
	)
	if err != nil {
		return persistErr("update password", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Company Profiles
// -----------------------------------------------------------------------------

func scanSQLiteProfile(row rowScanner) (*CompanyProfile, error) {
	var (
		p           CompanyProfile
		compliances string
		turnover    decimal.NullDecimal
		employees   sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CompanyName, &p.NatureOfBusiness, &p.Industry, &p.Location,
		&p.CompanyType, &p.ReportingFramework, &compliances, &p.BusinessSize, &turnover,
		&employees, timeScanner{&p.CreatedAt}, timeScanner{&p.UpdatedAt})
	if err != nil {
		return nil, err
	}
	if err := unmarshalCompliances([]byte(compliances), &p.CompanyProfile); err != nil {
		return nil, err
	}
	if turnover.Valid {
		p.AnnualTurnover = &turnover.Decimal
	}
	if employees.Valid {
		n := int(employees.Int64)
		p.EmployeeCount = &n
	}
	return &p, nil
}

// CreateCompanyProfile stores a profile owned by userID.
func (s *SQLiteStore) CreateCompanyProfile(ctx context.Context, userID uuid.UUID, profile types.CompanyProfile) (*CompanyProfile, error) {
	compliances, err := json.Marshal(nonNil(profile.StatutoryCompliances))
	if err != nil {
		return nil, persistErr("create company profile", eris.Wrap(err, "marshal compliances"))
	}

	var employees sql.NullInt64
	if profile.EmployeeCount != nil {
		employees = sql.NullInt64{Int64: int64(*profile.EmployeeCount), Valid: true}
	}

	id := uuid.New()
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO company_profiles (id, user_id, company_name, nature_of_business, industry, location,
		     company_type, reporting_framework, statutory_compliances, business_size, annual_turnover,
		     employee_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, profile.CompanyName, profile.NatureOfBusiness, profile.Industry, profile.Location,
		profile.CompanyType, profile.ReportingFramework, string(compliances), profile.BusinessSize,
		nullDecimal(profile.AnnualTurnover), employees, now, now,
	)
	if err != nil {
		return nil, persistErr("create company profile", err)
	}
	return s.GetCompanyProfile(ctx, userID, id)
}

// GetCompanyProfile retrieves a profile owned by userID.
func (s *SQLiteStore) GetCompanyProfile(ctx context.Context, userID, id uuid.UUID) (*CompanyProfile, error) {
	p, err := scanSQLiteProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM company_profiles WHERE id = ? AND user_id = ?`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get company profile", err)
	}
	return p, nil
}

// ListCompanyProfiles returns the profiles owned by userID, newest first.
func (s *SQLiteStore) ListCompanyProfiles(ctx context.Context, userID uuid.UUID) ([]CompanyProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM company_profiles WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, persistErr("list company profiles", err)
	}
	defer rows.Close()

	profiles := []CompanyProfile{}
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
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
func (s *SQLiteStore) DeleteCompanyProfile(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM company_profiles WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, persistErr("delete company profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("delete company profile", err)
	}
	return n > 0, nil
}

// -----------------------------------------------------------------------------
// Chart of Accounts
// -----------------------------------------------------------------------------

// ReplaceChartOfAccounts deletes the company's accounts and inserts records
// inside one transaction. Any failure rolls the transaction back.
func (s *SQLiteStore) ReplaceChartOfAccounts(ctx context.Context, companyID uuid.UUID, records []types.AccountRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "begin transaction"))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chart_of_accounts WHERE company_id = ?`, companyID); err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "delete existing accounts"))
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chart_of_accounts (id, company_id, statement_type, class, classification,
		     subclassification, account_name, code, description, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`)
	if err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "prepare insert"))
	}
	defer stmt.Close()

	now := s.timestamp()
	inserted := 0
	for _, r := range records {
		_, err := stmt.ExecContext(ctx, uuid.New(), companyID, r.StatementType, r.Class, r.Classification,
			r.Subclassification, r.Account, r.Code, r.Description, now)
		if err != nil {
			return 0, persistErr("replace chart of accounts", eris.Wrapf(err, "insert account %s", r.Code))
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("replace chart of accounts", eris.Wrap(err, "commit"))
	}
	return inserted, nil
}

// ListChartOfAccounts returns the company's active accounts ordered by code.
func (s *SQLiteStore) ListChartOfAccounts(ctx context.Context, companyID uuid.UUID) ([]ChartAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, statement_type, class, classification, subclassification,
		        account_name, code, description, is_active, created_at
		 FROM chart_of_accounts
		 WHERE company_id = ? AND is_active = 1
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
			&a.Subclassification, &a.Account, &a.Code, &a.Description, &a.IsActive,
			timeScanner{&a.CreatedAt}); err != nil {
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

func scanSQLiteContact(row rowScanner) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.ContactType, &c.Email, &c.Phone,
		&c.Address, &c.TaxID, &c.IsVerified, timeScanner{&c.CreatedAt})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContact stores a contact for a company.
func (s *SQLiteStore) CreateContact(ctx context.Context, companyID uuid.UUID, req types.CreateContactRequest) (*Contact, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, company_id, name, contact_type, email, phone, address, tax_id, is_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id, companyID, req.Name, req.ContactType, req.Email, req.Phone, req.Address, req.TaxID, s.timestamp(),
	)
	if err != nil {
		return nil, persistErr("create contact", err)
	}

	c, err := scanSQLiteContact(s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id))
	if err != nil {
		return nil, persistErr("create contact", err)
	}
	return c, nil
}

// ListContacts returns a company's contacts ordered by name.
func (s *SQLiteStore) ListContacts(ctx context.Context, companyID uuid.UUID) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, persistErr("list contacts", err)
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		c, err := scanSQLiteContact(rows)
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

func scanSQLiteTransaction(row rowScanner) (*Transaction, error) {
	var (
		t       Transaction
		contact uuid.NullUUID
	)
	err := row.Scan(&t.ID, &t.CompanyID, &contact, &t.Description, &t.Amount, &t.TransactionType,
		&t.Category, &t.AccountCode, timeScanner{&t.Date}, timeScanner{&t.CreatedAt})
	if err != nil {
		return nil, err
	}
	if contact.Valid {
		t.ContactID = &contact.UUID
	}
	return &t, nil
}

// CreateTransaction stores a transaction.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, company_id, contact_id, description, amount, transaction_type,
		     category, account_code, txn_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.CompanyID, nullUUID(in.ContactID), in.Description, in.Amount.String(), in.TransactionType,
		in.Category, in.AccountCode, in.Date.UTC().Format(sqliteTimeLayout), s.timestamp(),
	)
	if err != nil {
		return nil, persistErr("create transaction", err)
	}

	t, err := scanSQLiteTransaction(s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return nil, persistErr("create transaction", err)
	}
	return t, nil
}

// ListTransactions returns a company's transactions, most recent first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, companyID uuid.UUID) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE company_id = ? ORDER BY txn_date DESC, created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, persistErr("list transactions", err)
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		t, err := scanSQLiteTransaction(rows)
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
