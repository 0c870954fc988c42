package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

type contentModelFake struct {
	similar      map[int64][]domain.ScoredMovie
	textHits     []domain.ScoredMovie
	similarErr   error
	textErr      error
	textQuery    string
	blockSimilar bool
}

func (f *contentModelFake) GetSimilar(ctx context.Context, movieID int64, _ int) ([]domain.ScoredMovie, error) {
	if f.blockSimilar {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	return f.similar[movieID], nil
}

func (f *contentModelFake) RecommendationsForText(_ context.Context, text string, _ int) ([]domain.ScoredMovie, error) {
	f.textQuery = text
	if f.textErr != nil {
		return nil, f.textErr
	}
	return f.textHits, nil
}

type ratingModelFake struct {
	predictions []domain.PredictedRating
	err         error
}

func (f *ratingModelFake) RecommendationsForUser(context.Context, int64, int, bool) ([]domain.PredictedRating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.predictions, nil
}

type embedderFake struct {
	err  error
	text string
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type vectorSearcherFake struct {
	hits []domain.ScoredMovie
	err  error
}

func (f *vectorSearcherFake) VectorSearch(context.Context, []float32, int) ([]domain.ScoredMovie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type ratingHistoryFake struct {
	liked        []int64
	err          error
	gotUserID    int64
	gotMinRating float64
	gotLimit     int
	calls        int
}

func (f *ratingHistoryFake) SaveRating(context.Context, int64, int64, float64) error {
	return nil
}

func (f *ratingHistoryFake) LikedMovieIDs(_ context.Context, userID int64, minRating float64, limit int) ([]int64, error) {
	f.calls++
	f.gotUserID = userID
	f.gotMinRating = minRating
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.liked, nil
}

func newRecommendFixture(content *contentModelFake, ratings *ratingModelFake, embedder *embedderFake, vectors *vectorSearcherFake, graph *graphStoreFake) *RecommendUseCase {
	if content == nil {
		content = &contentModelFake{}
	}
	if ratings == nil {
		ratings = &ratingModelFake{}
	}
	if embedder == nil {
		embedder = &embedderFake{}
	}
	if vectors == nil {
		vectors = &vectorSearcherFake{}
	}
	if graph == nil {
		graph = &graphStoreFake{}
	}
	return NewRecommendUseCase(content, ratings, embedder, vectors, graph, FusionWeights{}, 0, nil)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecommendCombinesContentScore(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {{MovieID: 42, Title: "Hit", Score: 0.8}},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		LikedMovieIDs: []int64{1},
	})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// 0.4 * 0.8 with no other signals and no genre overlap.
	if !almostEqual(recs[0].Score, 0.32) {
		t.Fatalf("expected score 0.32, got %v", recs[0].Score)
	}
	if !strings.Contains(recs[0].Explanation, "similar content") {
		t.Fatalf("unexpected explanation %q", recs[0].Explanation)
	}
}

func TestRecommendExcludesLikedMovies(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {
				{MovieID: 1, Title: "Liked Itself", Score: 0.9},
				{MovieID: 2, Title: "Also Liked", Score: 0.9},
				{MovieID: 7, Title: "Fresh", Score: 0.6},
			},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		LikedMovieIDs: []int64{1, 2},
	})
	if len(recs) != 1 || recs[0].MovieID != 7 {
		t.Fatalf("expected only movie 7, got %+v", recs)
	}
}

func TestRecommendRescalesRatings(t *testing.T) {
	ratings := &ratingModelFake{predictions: []domain.PredictedRating{{MovieID: 8, Rating: 4.0}}}
	graph := &graphStoreFake{movies: map[int64]domain.Movie{
		8: {ID: 8, Title: "From CF", Genres: []string{"Drama"}},
	}}
	uc := newRecommendFixture(nil, ratings, nil, nil, graph)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{UserID: 77})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// 0.3 * (4.0 / 5.0)
	if !almostEqual(recs[0].Score, 0.24) {
		t.Fatalf("expected score 0.24, got %v", recs[0].Score)
	}
	if recs[0].Title != "From CF" {
		t.Fatalf("expected catalog snapshot, got %+v", recs[0])
	}
}

func TestRecommendAppliesGenreBoost(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {{MovieID: 42, Title: "Hit", Score: 0.8, Genres: []string{"Action", "Drama"}}},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		LikedMovieIDs:   []int64{1},
		PreferredGenres: []string{"Action"},
	})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// 0.4*0.8 boosted by one overlapping genre, plus the semantic hit
	// dispatch returns nothing for the empty vector fake.
	if !almostEqual(recs[0].Score, 0.32*1.1) {
		t.Fatalf("expected score %v, got %v", 0.32*1.1, recs[0].Score)
	}
	if !strings.Contains(recs[0].Explanation, "features Action") {
		t.Fatalf("unexpected explanation %q", recs[0].Explanation)
	}
}

func TestRecommendSumsScoresAcrossSeeds(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {{MovieID: 42, Title: "Hit", Score: 0.5}},
			2: {{MovieID: 42, Title: "Hit", Score: 0.3}},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		LikedMovieIDs: []int64{1, 2},
	})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// 0.4 * (0.5 + 0.3)
	if !almostEqual(recs[0].Score, 0.32) {
		t.Fatalf("expected summed score 0.32, got %v", recs[0].Score)
	}
}

func TestRecommendSurvivesAllBackendFailures(t *testing.T) {
	content := &contentModelFake{similarErr: errors.New("content down"), textErr: errors.New("content down")}
	ratings := &ratingModelFake{err: errors.New("db down")}
	embedder := &embedderFake{err: errors.New("llm down")}
	graph := &graphStoreFake{listErr: errors.New("graph down")}
	uc := newRecommendFixture(content, ratings, embedder, nil, graph)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		UserID:          7,
		LikedMovieIDs:   []int64{1, 2},
		TextQuery:       "anything",
		PreferredGenres: []string{"Action"},
	})
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %d", len(recs))
	}
}

func TestRecommendGenreFallback(t *testing.T) {
	graph := &graphStoreFake{genreHits: []domain.Movie{
		{ID: 11, Title: "Fallback", Genres: []string{"Comedy"}},
	}}
	uc := newRecommendFixture(nil, nil, nil, nil, graph)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		PreferredGenres: []string{"Comedy"},
	})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// Placeholder scores 0.3 on cbf and semantic, boosted by the
	// single genre overlap: (0.4*0.3 + 0.3*0.3) * 1.1
	want := (0.4*0.3 + 0.3*0.3) * 1.1
	if !almostEqual(recs[0].Score, want) {
		t.Fatalf("expected score %v, got %v", want, recs[0].Score)
	}
}

func TestRecommendDeterministicOrder(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {
				{MovieID: 9, Title: "B", Score: 0.5},
				{MovieID: 3, Title: "A", Score: 0.5},
			},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	for i := 0; i < 10; i++ {
		recs := uc.Recommend(context.Background(), ports.RecommendationRequest{LikedMovieIDs: []int64{1}})
		if len(recs) != 2 {
			t.Fatalf("expected 2 recommendations, got %d", len(recs))
		}
		if recs[0].MovieID != 3 || recs[1].MovieID != 9 {
			t.Fatalf("expected id order 3,9 on equal scores, got %d,%d", recs[0].MovieID, recs[1].MovieID)
		}
	}
}

func TestRecommendSeedsFromRatingHistory(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			5: {{MovieID: 42, Title: "Hit", Score: 0.8}},
		},
	}
	history := &ratingHistoryFake{liked: []int64{5}}
	uc := newRecommendFixture(content, nil, nil, nil, nil)
	uc.UseRatingHistory(history, 4.0, 20)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{UserID: 77})
	if history.calls != 1 {
		t.Fatalf("expected one history lookup, got %d", history.calls)
	}
	if history.gotUserID != 77 || history.gotMinRating != 4.0 || history.gotLimit != 20 {
		t.Fatalf("unexpected lookup args: user=%d min=%v limit=%d", history.gotUserID, history.gotMinRating, history.gotLimit)
	}
	if len(recs) != 1 || recs[0].MovieID != 42 {
		t.Fatalf("expected movie 42 from history seed, got %+v", recs)
	}
	// 0.4 * 0.8 from the single seeded content hit.
	if !almostEqual(recs[0].Score, 0.32) {
		t.Fatalf("expected score 0.32, got %v", recs[0].Score)
	}
}

func TestRecommendExplicitSeedsSkipHistory(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {{MovieID: 42, Title: "Hit", Score: 0.8}},
		},
	}
	history := &ratingHistoryFake{liked: []int64{5}}
	uc := newRecommendFixture(content, nil, nil, nil, nil)
	uc.UseRatingHistory(history, 4.0, 20)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		UserID:        77,
		LikedMovieIDs: []int64{1},
	})
	if history.calls != 0 {
		t.Fatalf("expected no history lookup with explicit seeds, got %d", history.calls)
	}
	if len(recs) != 1 || recs[0].MovieID != 42 {
		t.Fatalf("expected movie 42 from explicit seed, got %+v", recs)
	}
}

func TestRecommendSurvivesHistoryFailure(t *testing.T) {
	history := &ratingHistoryFake{err: errors.New("db down")}
	uc := newRecommendFixture(nil, nil, nil, nil, nil)
	uc.UseRatingHistory(history, 4.0, 20)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{UserID: 77})
	if len(recs) != 0 {
		t.Fatalf("expected empty result when history is down, got %d", len(recs))
	}
}

func TestRecommendTimedOutStrategyContributesNothing(t *testing.T) {
	content := &contentModelFake{blockSimilar: true}
	vectors := &vectorSearcherFake{hits: []domain.ScoredMovie{
		{MovieID: 9, Title: "Semantic", Score: 0.6},
	}}
	uc := NewRecommendUseCase(content, &ratingModelFake{}, &embedderFake{}, vectors, &graphStoreFake{}, FusionWeights{}, 30*time.Millisecond, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{
		LikedMovieIDs: []int64{1},
		TextQuery:     "space epics",
	})
	if len(recs) != 1 || recs[0].MovieID != 9 {
		t.Fatalf("expected only the semantic hit, got %+v", recs)
	}
	// 0.3 * 0.6: the blocked content lookup times out and adds nothing.
	if !almostEqual(recs[0].Score, 0.18) {
		t.Fatalf("expected score 0.18, got %v", recs[0].Score)
	}
}

func TestRecommendDefaultExplanation(t *testing.T) {
	content := &contentModelFake{
		similar: map[int64][]domain.ScoredMovie{
			1: {{MovieID: 42, Title: "Weak", Score: 0.2}},
		},
	}
	uc := newRecommendFixture(content, nil, nil, nil, nil)

	recs := uc.Recommend(context.Background(), ports.RecommendationRequest{LikedMovieIDs: []int64{1}})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Explanation != "Recommended based on popularity and relevance" {
		t.Fatalf("unexpected explanation %q", recs[0].Explanation)
	}
}
