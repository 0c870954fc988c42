package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

// catalogScanLimit bounds how many candidate movies one similarity
// request scores.
const catalogScanLimit = 10000

// SimilarityUseCase implements weighted multi-hop graph similarity:
// candidates are ranked by how many genres, actors, and directors they
// share with the source movie, plus an era bonus.
type SimilarityUseCase struct {
	graph  ports.GraphStore
	logger *slog.Logger
}

func NewSimilarityUseCase(graph ports.GraphStore, logger *slog.Logger) *SimilarityUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimilarityUseCase{graph: graph, logger: logger}
}

// FindSimilar resolves the source movie, scores every other catalog
// movie against it, and returns the top matches with match reasons.
// An unresolvable source is not an error: the result is just empty.
func (uc *SimilarityUseCase) FindSimilar(
	ctx context.Context,
	req ports.SimilarityRequest,
) ([]domain.SimilarMovie, domain.SimilarityDetails, error) {
	if req.MovieID == 0 && req.Title == "" {
		return nil, domain.SimilarityDetails{}, domain.WrapError(
			domain.ErrInvalidInput,
			"find similar",
			errors.New("either movie id or movie title is required"),
		)
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	weights := req.Weights
	if weights == (domain.SimilarityWeights{}) {
		weights = domain.DefaultSimilarityWeights()
	}

	source, err := uc.resolveSource(ctx, req)
	if err != nil {
		return nil, domain.SimilarityDetails{}, err
	}
	if source == nil {
		uc.logger.Warn("similarity_source_not_found", "movie_id", req.MovieID, "title", req.Title)
		return []domain.SimilarMovie{}, domain.SimilarityDetails{}, nil
	}

	candidates, err := uc.graph.ListMovies(ctx, catalogScanLimit)
	if err != nil {
		return nil, domain.SimilarityDetails{}, fmt.Errorf("list candidate movies: %w", err)
	}

	scored := scoreCandidates(*source, candidates, weights)
	sortSimilar(scored)
	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}
	for i := range scored {
		scored[i].MatchReason = buildMatchReason(scored[i])
	}

	details := domain.SimilarityDetails{
		SourceTitle: source.Title,
		SourceID:    source.ID,
		Weights:     weights,
		TotalFound:  len(scored),
	}
	uc.logger.Info("similarity_search",
		"source_id", source.ID,
		"source_title", source.Title,
		"found", len(scored),
	)
	return scored, details, nil
}

func (uc *SimilarityUseCase) resolveSource(ctx context.Context, req ports.SimilarityRequest) (*domain.Movie, error) {
	if req.MovieID != 0 {
		movie, err := uc.graph.GetMovie(ctx, req.MovieID)
		if err != nil {
			if domain.IsKind(err, domain.ErrSourceNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("fetch source movie: %w", err)
		}
		return movie, nil
	}
	movie, err := uc.graph.FindMovieByTitle(ctx, req.Title)
	if err != nil {
		return nil, fmt.Errorf("resolve source title: %w", err)
	}
	return movie, nil
}

func scoreCandidates(source domain.Movie, candidates []domain.Movie, weights domain.SimilarityWeights) []domain.SimilarMovie {
	scored := make([]domain.SimilarMovie, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == source.ID {
			continue
		}
		sharedGenres := intersect(source.Genres, candidate.Genres)
		sharedActors := intersect(source.Actors, candidate.Actors)
		sharedDirectors := intersect(source.Directors, candidate.Directors)
		sameEra := source.ReleaseYear != 0 && candidate.ReleaseYear != 0 &&
			absInt(source.ReleaseYear-candidate.ReleaseYear) <= 10

		score := float64(len(sharedGenres))*weights.Genre +
			float64(len(sharedActors))*weights.Actor +
			float64(len(sharedDirectors))*weights.Director
		if sameEra {
			score += weights.Era
		}
		if score <= 0 {
			continue
		}

		scored = append(scored, domain.SimilarMovie{
			Movie:           candidate,
			Score:           score,
			GenreMatches:    len(sharedGenres),
			ActorMatches:    len(sharedActors),
			DirectorMatches: len(sharedDirectors),
			SameEra:         sameEra,
			SharedGenres:    sharedGenres,
			SharedActors:    sharedActors,
			SharedDirectors: sharedDirectors,
		})
	}
	return scored
}

// sortSimilar orders by score, then vote average, then movie id so a
// fixed graph state always yields the same ranking.
func sortSimilar(scored []domain.SimilarMovie) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Movie.VoteAverage != scored[j].Movie.VoteAverage {
			return scored[i].Movie.VoteAverage > scored[j].Movie.VoteAverage
		}
		return scored[i].Movie.ID < scored[j].Movie.ID
	})
}

// intersect preserves the order of the first argument in its output.
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		if _, ok := set[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
