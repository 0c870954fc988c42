package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newFactorRepoWithMock(t *testing.T) (*FactorRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &FactorRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGlobalMeanDefaultsToZeroWithoutModel(t *testing.T) {
	repo, mock, done := newFactorRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT value FROM cf_model_meta").
		WillReturnError(sql.ErrNoRows)

	mean, err := repo.GlobalMean(context.Background())
	if err != nil {
		t.Fatalf("GlobalMean() error = %v", err)
	}
	if mean != 0 {
		t.Fatalf("expected zero mean, got %v", mean)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserFactorsMissingUserIsNotAnError(t *testing.T) {
	repo, mock, done := newFactorRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT user_id, bias, factors").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	user, err := repo.UserFactors(context.Background(), 404)
	if err != nil {
		t.Fatalf("UserFactors() error = %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil for missing user, got %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserFactorsDecodesJSON(t *testing.T) {
	repo, mock, done := newFactorRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"user_id", "bias", "factors"}).
		AddRow(int64(7), 0.25, []byte(`[0.1, -0.2, 0.3]`))
	mock.ExpectQuery("SELECT user_id, bias, factors").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	user, err := repo.UserFactors(context.Background(), 7)
	if err != nil {
		t.Fatalf("UserFactors() error = %v", err)
	}
	if user.UserID != 7 || user.Bias != 0.25 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(user.Factors) != 3 || user.Factors[1] != -0.2 {
		t.Fatalf("unexpected factors: %v", user.Factors)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemFactorsDecodesAllRows(t *testing.T) {
	repo, mock, done := newFactorRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"movie_id", "bias", "factors"}).
		AddRow(int64(1), 0.1, []byte(`[1, 2]`)).
		AddRow(int64(2), -0.1, []byte(`[3, 4]`))
	mock.ExpectQuery("SELECT movie_id, bias, factors").
		WillReturnRows(rows)

	items, err := repo.ItemFactors(context.Background())
	if err != nil {
		t.Fatalf("ItemFactors() error = %v", err)
	}
	if len(items) != 2 || items[1].MovieID != 2 || items[1].Factors[0] != 3 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
