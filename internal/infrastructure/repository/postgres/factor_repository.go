package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/cinegraph/internal/infrastructure/model/cf"
)

// FactorRepository reads the offline-trained matrix-factorization
// parameters. The training pipeline owns writes; this side only needs
// the schema to exist.
type FactorRepository struct {
	db *sql.DB
}

func NewFactorRepository(db *sql.DB) *FactorRepository {
	return &FactorRepository{db: db}
}

func (r *FactorRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS cf_model_meta (
	key TEXT PRIMARY KEY,
	value DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS cf_user_factors (
	user_id BIGINT PRIMARY KEY,
	bias DOUBLE PRECISION NOT NULL DEFAULT 0,
	factors JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS cf_item_factors (
	movie_id BIGINT PRIMARY KEY,
	bias DOUBLE PRECISION NOT NULL DEFAULT 0,
	factors JSONB NOT NULL DEFAULT '[]'::jsonb
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GlobalMean returns the trained global rating mean, or zero when no
// model has been published yet.
func (r *FactorRepository) GlobalMean(ctx context.Context) (float64, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT value FROM cf_model_meta WHERE key = 'global_mean'
`)
	var mean float64
	if err := row.Scan(&mean); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan global mean: %w", err)
	}
	return mean, nil
}

// UserFactors returns one user's trained factors, or (nil, nil) for a
// user absent from the model.
func (r *FactorRepository) UserFactors(ctx context.Context, userID int64) (*cf.UserFactors, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, bias, factors
FROM cf_user_factors
WHERE user_id = $1
`, userID)

	var user cf.UserFactors
	var factorsRaw []byte
	if err := row.Scan(&user.UserID, &user.Bias, &factorsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user factors: %w", err)
	}
	if err := json.Unmarshal(factorsRaw, &user.Factors); err != nil {
		return nil, fmt.Errorf("unmarshal user factors: %w", err)
	}
	return &user, nil
}

// ItemFactors returns every movie's trained factors ordered by movie
// id.
func (r *FactorRepository) ItemFactors(ctx context.Context) ([]cf.ItemFactors, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT movie_id, bias, factors
FROM cf_item_factors
ORDER BY movie_id
`)
	if err != nil {
		return nil, fmt.Errorf("query item factors: %w", err)
	}
	defer rows.Close()

	var items []cf.ItemFactors
	for rows.Next() {
		var item cf.ItemFactors
		var factorsRaw []byte
		if err := rows.Scan(&item.MovieID, &item.Bias, &factorsRaw); err != nil {
			return nil, fmt.Errorf("scan item factors: %w", err)
		}
		if err := json.Unmarshal(factorsRaw, &item.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal item factors: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item factors: %w", err)
	}
	return items, nil
}
