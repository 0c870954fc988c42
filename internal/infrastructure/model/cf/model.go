// Package cf serves collaborative-filtering predictions from an
// externally trained matrix-factorization model. Training happens
// offline; this package only reads the stored factors and scores
// user/movie pairs.
package cf

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// UserFactors is one user's row of the factor model.
type UserFactors struct {
	UserID  int64
	Bias    float64
	Factors []float64
}

// ItemFactors is one movie's column of the factor model.
type ItemFactors struct {
	MovieID int64
	Bias    float64
	Factors []float64
}

// FactorSource provides the trained model parameters. An unknown user
// yields (nil, nil), not an error.
type FactorSource interface {
	GlobalMean(ctx context.Context) (float64, error)
	UserFactors(ctx context.Context, userID int64) (*UserFactors, error)
	ItemFactors(ctx context.Context) ([]ItemFactors, error)
}

// RatingSource reports which movies a user already rated.
type RatingSource interface {
	RatedMovieIDs(ctx context.Context, userID int64) ([]int64, error)
}

const (
	ratingMin = 0.0
	ratingMax = 5.0
)

// Model predicts per-user ratings on the raw 0-5 scale. Item factors
// and the global mean are cached after the first load; Invalidate
// drops the cache when the offline trainer publishes a new model.
type Model struct {
	factors FactorSource
	ratings RatingSource
	logger  *slog.Logger

	mu     sync.RWMutex
	items  []ItemFactors
	mean   float64
	loaded bool

	loadGroup singleflight.Group
}

func New(factors FactorSource, ratings RatingSource, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{factors: factors, ratings: ratings, logger: logger}
}

// Invalidate drops the cached item factors so the next prediction
// reloads the latest trained model.
func (m *Model) Invalidate() {
	m.mu.Lock()
	m.items = nil
	m.loaded = false
	m.mu.Unlock()
	m.logger.Info("cf_factors_invalidated")
}

// RecommendationsForUser scores every item against the user's factors
// and returns the n highest predictions. An unknown user gets an empty
// list, not an error.
func (m *Model) RecommendationsForUser(ctx context.Context, userID int64, n int, excludeRated bool) ([]domain.PredictedRating, error) {
	user, err := m.factors.UserFactors(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user factors: %w", err)
	}
	if user == nil {
		return []domain.PredictedRating{}, nil
	}

	items, mean, err := m.ensureItems(ctx)
	if err != nil {
		return nil, err
	}

	rated := map[int64]struct{}{}
	if excludeRated {
		ids, err := m.ratings.RatedMovieIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load rated movies: %w", err)
		}
		for _, id := range ids {
			rated[id] = struct{}{}
		}
	}

	predictions := make([]domain.PredictedRating, 0, len(items))
	for _, item := range items {
		if _, skip := rated[item.MovieID]; skip {
			continue
		}
		predictions = append(predictions, domain.PredictedRating{
			MovieID: item.MovieID,
			Rating:  predict(mean, *user, item),
		})
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].Rating != predictions[j].Rating {
			return predictions[i].Rating > predictions[j].Rating
		}
		return predictions[i].MovieID < predictions[j].MovieID
	})
	if len(predictions) > n {
		predictions = predictions[:n]
	}
	return predictions, nil
}

// PredictRating scores one user/movie pair. A pair outside the trained
// model yields (0, false).
func (m *Model) PredictRating(ctx context.Context, userID, movieID int64) (float64, bool, error) {
	user, err := m.factors.UserFactors(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("load user factors: %w", err)
	}
	if user == nil {
		return 0, false, nil
	}
	items, mean, err := m.ensureItems(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, item := range items {
		if item.MovieID == movieID {
			return predict(mean, *user, item), true, nil
		}
	}
	return 0, false, nil
}

func (m *Model) ensureItems(ctx context.Context) ([]ItemFactors, float64, error) {
	m.mu.RLock()
	if m.loaded {
		items, mean := m.items, m.mean
		m.mu.RUnlock()
		return items, mean, nil
	}
	m.mu.RUnlock()

	type loaded struct {
		items []ItemFactors
		mean  float64
	}
	result, err, _ := m.loadGroup.Do("load", func() (any, error) {
		m.mu.RLock()
		if m.loaded {
			cached := loaded{items: m.items, mean: m.mean}
			m.mu.RUnlock()
			return cached, nil
		}
		m.mu.RUnlock()

		items, err := m.factors.ItemFactors(ctx)
		if err != nil {
			return nil, fmt.Errorf("load item factors: %w", err)
		}
		mean, err := m.factors.GlobalMean(ctx)
		if err != nil {
			return nil, fmt.Errorf("load global mean: %w", err)
		}

		m.mu.Lock()
		m.items = items
		m.mean = mean
		m.loaded = true
		m.mu.Unlock()
		m.logger.Info("cf_factors_loaded", "items", len(items))
		return loaded{items: items, mean: mean}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	cached := result.(loaded)
	return cached.items, cached.mean, nil
}

// predict is the standard biased factor-model estimate, clamped to the
// rating scale.
func predict(mean float64, user UserFactors, item ItemFactors) float64 {
	rating := mean + user.Bias + item.Bias
	if len(user.Factors) == len(item.Factors) && len(user.Factors) > 0 {
		rating += floats.Dot(user.Factors, item.Factors)
	}
	if rating < ratingMin {
		return ratingMin
	}
	if rating > ratingMax {
		return ratingMax
	}
	return rating
}
