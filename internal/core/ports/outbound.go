package ports

import (
	"context"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// GraphStore is the movie graph collaborator. Name and title matching
// is case-insensitive substring matching throughout.
type GraphStore interface {
	GetMovie(ctx context.Context, movieID int64) (*domain.Movie, error)
	// FindMovieByTitle resolves a partial title to the single most
	// popular match. A miss returns (nil, nil), not an error.
	FindMovieByTitle(ctx context.Context, title string) (*domain.Movie, error)
	FindByDirector(ctx context.Context, name string, filter domain.MovieFilter, limit int) ([]domain.Movie, error)
	FindByActor(ctx context.Context, name string, filter domain.MovieFilter, limit int) ([]domain.Movie, error)
	FindByGenres(ctx context.Context, genres []string, filter domain.MovieFilter, limit int) ([]domain.Movie, error)
	FindByYearRange(ctx context.Context, years domain.YearRange, genres []string, limit int) ([]domain.Movie, error)
	// ListMovies returns catalog movies with genre/cast/director sets
	// populated, for in-process similarity scoring and model builds.
	ListMovies(ctx context.Context, limit int) ([]domain.Movie, error)
}

// ContentModel scores movies by textual/metadata similarity (TF-IDF
// cosine). Scores are in [0,1].
type ContentModel interface {
	GetSimilar(ctx context.Context, movieID int64, n int) ([]domain.ScoredMovie, error)
	RecommendationsForText(ctx context.Context, text string, n int) ([]domain.ScoredMovie, error)
}

// RatingModel predicts per-user ratings on the raw 0-5 scale from the
// externally trained factor model.
type RatingModel interface {
	RecommendationsForUser(ctx context.Context, userID int64, n int, excludeRated bool) ([]domain.PredictedRating, error)
}

// RatingStore persists explicit user ratings and serves the liked
// history that seeds content similarity lookups.
type RatingStore interface {
	SaveRating(ctx context.Context, userID, movieID int64, rating float64) error
	// LikedMovieIDs returns the user's movies rated at or above
	// minRating, most recent first.
	LikedMovieIDs(ctx context.Context, userID int64, minRating float64, limit int) ([]int64, error)
}

// Embedder builds a dense vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs nearest-neighbor retrieval over movie
// embeddings. Scores are in [0,1].
type VectorSearcher interface {
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]domain.ScoredMovie, error)
}

// EntityParser is the optional LLM path for entity extraction. Callers
// must fall back to the rule-based classifier on any error.
type EntityParser interface {
	Parse(ctx context.Context, query string) (domain.ParsedQuery, error)
}

// ModelEvents signals that model artifacts changed and lazily built
// indexes should be rebuilt.
type ModelEvents interface {
	PublishModelRefresh(ctx context.Context, artifact string) error
	SubscribeModelRefresh(ctx context.Context, handler func(context.Context, string) error) error
}
