package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

type graphStoreFake struct {
	movies       map[int64]domain.Movie
	byTitle      map[string]domain.Movie
	listErr      error
	directorHits []domain.Movie
	actorHits    []domain.Movie
	genreHits    []domain.Movie
	yearHits     []domain.Movie

	directorQueried string
	actorQueried    string
	genresQueried   []string
	yearsQueried    domain.YearRange
}

func (f *graphStoreFake) GetMovie(_ context.Context, movieID int64) (*domain.Movie, error) {
	movie, ok := f.movies[movieID]
	if !ok {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "get movie", errors.New("no such movie"))
	}
	return &movie, nil
}

func (f *graphStoreFake) FindMovieByTitle(_ context.Context, title string) (*domain.Movie, error) {
	movie, ok := f.byTitle[title]
	if !ok {
		return nil, nil
	}
	return &movie, nil
}

func (f *graphStoreFake) FindByDirector(_ context.Context, name string, _ domain.MovieFilter, _ int) ([]domain.Movie, error) {
	f.directorQueried = name
	return f.directorHits, nil
}

func (f *graphStoreFake) FindByActor(_ context.Context, name string, _ domain.MovieFilter, _ int) ([]domain.Movie, error) {
	f.actorQueried = name
	return f.actorHits, nil
}

func (f *graphStoreFake) FindByGenres(_ context.Context, genres []string, _ domain.MovieFilter, _ int) ([]domain.Movie, error) {
	f.genresQueried = genres
	return f.genreHits, nil
}

func (f *graphStoreFake) FindByYearRange(_ context.Context, years domain.YearRange, _ []string, _ int) ([]domain.Movie, error) {
	f.yearsQueried = years
	return f.yearHits, nil
}

func (f *graphStoreFake) ListMovies(context.Context, int) ([]domain.Movie, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Movie, 0, len(f.movies))
	for _, movie := range f.movies {
		out = append(out, movie)
	}
	return out, nil
}

func TestFindSimilarWeightedScore(t *testing.T) {
	source := domain.Movie{
		ID: 1, Title: "Source",
		Genres:      []string{"Action", "Thriller"},
		Actors:      []string{"A One", "B Two"},
		Directors:   []string{"D One"},
		ReleaseYear: 2010,
	}
	candidate := domain.Movie{
		ID: 2, Title: "Candidate",
		Genres:      []string{"Action", "Thriller", "Drama"},
		Actors:      []string{"C Three"},
		Directors:   []string{"D One"},
		ReleaseYear: 2015,
	}
	graph := &graphStoreFake{movies: map[int64]domain.Movie{1: source, 2: candidate}}
	uc := NewSimilarityUseCase(graph, nil)

	results, details, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{MovieID: 1})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// 2 genres * 5 + 0 actors * 3 + 1 director * 2 + era * 1
	if results[0].Score != 13 {
		t.Fatalf("expected score 13, got %v", results[0].Score)
	}
	if results[0].MatchReason == "" {
		t.Fatalf("expected a match reason")
	}
	if details.SourceTitle != "Source" || details.TotalFound != 1 {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestFindSimilarDeterministicTieBreak(t *testing.T) {
	source := domain.Movie{ID: 1, Genres: []string{"Action"}, ReleaseYear: 2000}
	// Same score, tie broken by vote average then id.
	low := domain.Movie{ID: 5, Genres: []string{"Action"}, ReleaseYear: 2001, VoteAverage: 6.0}
	high := domain.Movie{ID: 9, Genres: []string{"Action"}, ReleaseYear: 2002, VoteAverage: 8.0}
	tied := domain.Movie{ID: 3, Genres: []string{"Action"}, ReleaseYear: 2003, VoteAverage: 6.0}

	graph := &graphStoreFake{movies: map[int64]domain.Movie{1: source, 5: low, 9: high, 3: tied}}
	uc := NewSimilarityUseCase(graph, nil)

	for i := 0; i < 10; i++ {
		results, _, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{MovieID: 1})
		if err != nil {
			t.Fatalf("FindSimilar() error = %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Movie.ID != 9 || results[1].Movie.ID != 3 || results[2].Movie.ID != 5 {
			t.Fatalf("unexpected order: %d, %d, %d",
				results[0].Movie.ID, results[1].Movie.ID, results[2].Movie.ID)
		}
	}
}

func TestFindSimilarExcludesSourceAndZeroScores(t *testing.T) {
	source := domain.Movie{ID: 1, Genres: []string{"Action"}, ReleaseYear: 2000}
	unrelated := domain.Movie{ID: 2, Genres: []string{"Romance"}}

	graph := &graphStoreFake{movies: map[int64]domain.Movie{1: source, 2: unrelated}}
	uc := NewSimilarityUseCase(graph, nil)

	results, _, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{MovieID: 1})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestFindSimilarUnresolvedTitleIsNotAnError(t *testing.T) {
	graph := &graphStoreFake{movies: map[int64]domain.Movie{}, byTitle: map[string]domain.Movie{}}
	uc := NewSimilarityUseCase(graph, nil)

	results, details, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{Title: "No Such Movie"})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	if details.TotalFound != 0 {
		t.Fatalf("expected empty details, got %+v", details)
	}
}

func TestFindSimilarRequiresIDOrTitle(t *testing.T) {
	uc := NewSimilarityUseCase(&graphStoreFake{}, nil)

	_, _, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestFindSimilarCustomWeights(t *testing.T) {
	source := domain.Movie{ID: 1, Directors: []string{"D One"}, ReleaseYear: 1950}
	candidate := domain.Movie{ID: 2, Directors: []string{"D One"}, ReleaseYear: 2020}

	graph := &graphStoreFake{movies: map[int64]domain.Movie{1: source, 2: candidate}}
	uc := NewSimilarityUseCase(graph, nil)

	results, _, err := uc.FindSimilar(context.Background(), ports.SimilarityRequest{
		MovieID: 1,
		Weights: domain.SimilarityWeights{Director: 10},
	})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(results) != 1 || results[0].Score != 10 {
		t.Fatalf("expected single result scored 10, got %+v", results)
	}
}
