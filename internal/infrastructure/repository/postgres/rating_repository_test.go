package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRatingRepoWithMock(t *testing.T) (*RatingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RatingRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestSaveRatingUpserts(t *testing.T) {
	repo, mock, done := newRatingRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO ratings").
		WithArgs(int64(7), int64(42), 4.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveRating(context.Background(), 7, 42, 4.5); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRatedMovieIDs(t *testing.T) {
	repo, mock, done := newRatingRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"movie_id"}).AddRow(int64(3)).AddRow(int64(9))
	mock.ExpectQuery("SELECT movie_id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	ids, err := repo.RatedMovieIDs(context.Background(), 7)
	if err != nil {
		t.Fatalf("RatedMovieIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 9 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLikedMovieIDsPropagatesQueryError(t *testing.T) {
	repo, mock, done := newRatingRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT movie_id").
		WithArgs(int64(7), 4.0, 5).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.LikedMovieIDs(context.Background(), 7, 4.0, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
