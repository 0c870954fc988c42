package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RatingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ratings (
	user_id BIGINT NOT NULL,
	movie_id BIGINT NOT NULL,
	rating DOUBLE PRECISION NOT NULL,
	rated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, movie_id)
);

CREATE INDEX IF NOT EXISTS idx_ratings_movie_id ON ratings(movie_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveRating records or replaces one explicit rating.
func (r *RatingRepository) SaveRating(ctx context.Context, userID, movieID int64, rating float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ratings (user_id, movie_id, rating, rated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, movie_id)
DO UPDATE SET rating = EXCLUDED.rating, rated_at = EXCLUDED.rated_at
`, userID, movieID, rating, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

// RatedMovieIDs returns the movies the user already rated, ordered by
// movie id.
func (r *RatingRepository) RatedMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT movie_id
FROM ratings
WHERE user_id = $1
ORDER BY movie_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rated movies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rated movie id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rated movies: %w", err)
	}
	return ids, nil
}

// LikedMovieIDs returns the user's highest-rated movies, most recent
// first, for seeding content similarity.
func (r *RatingRepository) LikedMovieIDs(ctx context.Context, userID int64, minRating float64, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT movie_id
FROM ratings
WHERE user_id = $1 AND rating >= $2
ORDER BY rated_at DESC, movie_id
LIMIT $3
`, userID, minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("query liked movies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan liked movie id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked movies: %w", err)
	}
	return ids, nil
}
