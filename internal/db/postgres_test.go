package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func chartRecords() []types.AccountRecord {
	return []types.AccountRecord{
		{StatementType: types.StatementFinancialPosition, Class: "Assets", Account: "Cash in Hand", Code: "1001"},
		{StatementType: types.StatementProfitAndLoss, Class: "Revenue", Account: "Sales Revenue", Code: "4001", Description: "Sales"},
		{StatementType: types.StatementProfitAndLoss, Class: "Expenses", Account: "No Code"},
	}
}

func TestPostgresReplaceChartOfAccounts(t *testing.T) {
	store, mock := newMockStore(t)
	companyID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chart_of_accounts").
		WithArgs(companyID).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec("INSERT INTO chart_of_accounts").
		WithArgs(companyID, types.StatementFinancialPosition, "Assets", "", "", "Cash in Hand", "1001", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO chart_of_accounts").
		WithArgs(companyID, types.StatementProfitAndLoss, "Revenue", "", "", "Sales Revenue", "4001", "Sales").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO chart_of_accounts").
		WithArgs(companyID, types.StatementProfitAndLoss, "Expenses", "", "", "No Code", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := store.ReplaceChartOfAccounts(context.Background(), companyID, chartRecords())

	require.NoError(t, err)
	assert.Equal(t, 3, n, "every record is stored, blank values included")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceChartOfAccounts_RollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	companyID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chart_of_accounts").
		WithArgs(companyID).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec("INSERT INTO chart_of_accounts").
		WithArgs(companyID, types.StatementFinancialPosition, "Assets", "", "", "Cash in Hand", "1001", "").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	n, err := store.ReplaceChartOfAccounts(context.Background(), companyID, chartRecords())

	assert.Zero(t, n)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "replace chart of accounts", perr.Op)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceChartOfAccounts_BeginFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := store.ReplaceChartOfAccounts(context.Background(), uuid.New(), chartRecords())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserByEmail_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	u, err := store.GetUserByEmail(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserByID_Error(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WithArgs(id).
		WillReturnError(errors.New("timeout"))

	_, err := store.GetUserByID(context.Background(), id)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get user", perr.Op)
}

func TestPostgresDeleteCompanyProfile(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"not owned", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			id, userID := uuid.New(), uuid.New()

			mock.ExpectExec("DELETE FROM company_profiles").
				WithArgs(id, userID).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			deleted, err := store.DeleteCompanyProfile(context.Background(), userID, id)

			require.NoError(t, err)
			assert.Equal(t, tt.want, deleted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresUpdateUserPassword(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateUserPassword(context.Background(), id, "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectMigrationPreamble(mock pgxmock.PgxPoolIface, applied ...string) {
	mock.ExpectExec("SELECT pg_advisory_lock").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	rows := pgxmock.NewRows([]string{"filename"})
	for _, name := range applied {
		rows.AddRow(name)
	}
	mock.ExpectQuery("SELECT filename FROM schema_migrations").WillReturnRows(rows)
}

func TestPostgresMigrate_FreshDB(t *testing.T) {
	store, mock := newMockStore(t)

	expectMigrationPreamble(mock)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("001_init.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("SELECT pg_advisory_unlock").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate_AlreadyApplied(t *testing.T) {
	store, mock := newMockStore(t)

	expectMigrationPreamble(mock, "001_init.sql")
	mock.ExpectExec("SELECT pg_advisory_unlock").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate_ApplyFails(t *testing.T) {
	store, mock := newMockStore(t)

	expectMigrationPreamble(mock)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("syntax error"))
	mock.ExpectExec("SELECT pg_advisory_unlock").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	err := store.Migrate(context.Background())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("boom")
	err := persistErr("create contact", cause)

	assert.Equal(t, "persistence error: create contact: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
