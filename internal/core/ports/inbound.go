package ports

import (
	"context"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// QueryClassifier turns free text into a routing decision. Pure and
// deterministic for identical input.
type QueryClassifier interface {
	Classify(query string) domain.QueryIntent
}

// SimilarityRequest asks for movies similar to one source movie.
// Exactly one of MovieID and Title must be set.
type SimilarityRequest struct {
	MovieID int64
	Title   string
	Limit   int
	Weights domain.SimilarityWeights
}

// SimilarityFinder is the inbound contract for weighted graph
// similarity lookups.
type SimilarityFinder interface {
	FindSimilar(ctx context.Context, req SimilarityRequest) ([]domain.SimilarMovie, domain.SimilarityDetails, error)
}

// RecommendationRequest carries every signal the fusion engine may use.
type RecommendationRequest struct {
	UserID          int64
	LikedMovieIDs   []int64
	PreferredGenres []string
	TextQuery       string
	Limit           int
}

// Recommender is the inbound contract for hybrid recommendations. It
// never fails: degraded backends shrink the result instead.
type Recommender interface {
	Recommend(ctx context.Context, req RecommendationRequest) []domain.Recommendation
}

// SearchResult is one smart-search hit with its routing provenance.
type SearchResult struct {
	Movie       domain.Movie `json:"movie"`
	Score       float64      `json:"score"`
	MatchReason string       `json:"match_reason"`
}

// SearchResponse is the full smart-search outcome.
type SearchResponse struct {
	Results    []SearchResult     `json:"results"`
	SearchType string             `json:"search_type"`
	Intent     domain.QueryIntent `json:"intent"`
}

// SmartSearcher routes a free-text query to the applicable strategies
// and returns one ranked result list.
type SmartSearcher interface {
	Search(ctx context.Context, query string, limit int) (*SearchResponse, error)
}
