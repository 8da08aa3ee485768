package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/store"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	require.NoError(t, err)
	return db, mock
}

var applicationColumns = []string{"id", "amount", "term", "email", "user_id", "loan_type_id", "status", "version", "created_at", "updated_at"}

func TestApplicationSaveInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(`INSERT INTO "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))

	saved, err := repo.Save(context.Background(), &model.Application{
		Amount:     decimal.NewFromInt(5000),
		Term:       12,
		Email:      "ana@example.com",
		UserID:     7,
		LoanTypeID: 1,
		Status:     model.StatusPendingReview,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationSaveUpdatesWithVersionGuard(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE "applications" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := repo.Save(context.Background(), &model.Application{
		ID:      5,
		Status:  model.StatusApproved,
		Version: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), saved.Version)
	assert.Equal(t, model.StatusApproved, saved.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationSaveDetectsConcurrentUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE "applications"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Save(context.Background(), &model.Application{ID: 5, Status: model.StatusRejected, Version: 3})
	assert.ErrorIs(t, err, store.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationSavePropagatesDatabaseError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(`UPDATE "applications"`).WillReturnError(boom)

	_, err := repo.Save(context.Background(), &model.Application{ID: 5, Status: model.StatusRejected})
	assert.ErrorIs(t, err, boom)
}

func TestApplicationFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(5, "5000.00", 12, "ana@example.com", 7, 1, "MANUAL_REVIEW", 2, created, created))

	app, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), app.ID)
	assert.True(t, app.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, model.StatusManualReview, app.Status)
	assert.Equal(t, int64(2), app.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "applications"`).
		WillReturnRows(sqlmock.NewRows(applicationColumns))

	_, err := repo.FindByID(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApplicationListByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApplicationRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE status = \$1 ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(1, "1000", 6, "a@example.com", 7, 1, "PENDING_REVIEW", 0, now, now).
			AddRow(2, "2500.50", 24, "b@example.com", 8, 2, "PENDING_REVIEW", 0, now, now))

	apps, err := repo.ListByStatus(context.Background(), model.StatusPendingReview, 10, 20)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "b@example.com", apps[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanTypeFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanTypeRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "loan_types" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "minimum_amount", "maximum_amount", "interest_rate", "automatic_validation", "created_at", "updated_at"}).
			AddRow(1, "free investment", "1000", "50000", "1.5", true, now, now))

	loanType, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, loanType.AutomaticValidation)
	assert.True(t, loanType.InterestRate.Equal(decimal.RequireFromString("1.5")))

	mock.ExpectQuery(`SELECT \* FROM "loan_types"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.FindByID(context.Background(), 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoanTypeCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanTypeRepository(db)

	mock.ExpectQuery(`INSERT INTO "loan_types"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &model.LoanType{Name: "mortgage"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestLoanTypeList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanTypeRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "loan_types" ORDER BY id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "free investment").AddRow(2, "mortgage"))

	loanTypes, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, loanTypes, 2)
	assert.Equal(t, "mortgage", loanTypes[1].Name)
}

func TestMoneyColumnsKeepFullPrecision(t *testing.T) {
	cache := &sync.Map{}
	tests := []struct {
		dest   interface{}
		fields []string
	}{
		{dest: &model.Application{}, fields: []string{"Amount"}},
		{dest: &model.LoanType{}, fields: []string{"MinimumAmount", "MaximumAmount", "InterestRate"}},
	}
	for _, tt := range tests {
		parsed, err := schema.Parse(tt.dest, cache, schema.NamingStrategy{})
		require.NoError(t, err)

		for _, name := range tt.fields {
			field := parsed.LookUpField(name)
			require.NotNil(t, field, "%s.%s", parsed.Name, name)
			assert.Equal(t, "numeric", field.TagSettings["TYPE"], "%s.%s", parsed.Name, name)
		}
	}

	amount := decimal.RequireFromString("5000.125")
	value, err := amount.Value()
	require.NoError(t, err)
	assert.Equal(t, "5000.125", value)
}
