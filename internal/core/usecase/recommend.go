package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

// FusionWeights blends the per-strategy scores into one ranking score.
type FusionWeights struct {
	CBF      float64
	CF       float64
	Semantic float64
}

func DefaultFusionWeights() FusionWeights {
	return FusionWeights{CBF: 0.4, CF: 0.3, Semantic: 0.3}
}

const (
	// defaultStrategyTimeout bounds each strategy dispatch; a timed-out
	// dispatch contributes nothing, same as a failed one.
	defaultStrategyTimeout = 10 * time.Second
	// strategyWorkers bounds the fan-out pool.
	strategyWorkers = 4
	// maxLikedSeeds caps how many liked movies seed content lookups.
	maxLikedSeeds = 3
	// cfRatingScale rescales raw 0-5 predicted ratings into [0,1].
	cfRatingScale = 5.0
	// genreBoostStep is the multiplicative boost per overlapping genre.
	genreBoostStep = 0.1
	// fallbackStrategyScore is the placeholder score attached to
	// genre-fallback candidates for the cbf and semantic channels.
	fallbackStrategyScore = 0.3
)

type strategyScores struct {
	cbf      float64
	cf       float64
	semantic float64
}

// candidateScore accumulates one movie's contributions across all
// strategies. It exists only for the duration of a single fusion call.
type candidateScore struct {
	movieID  int64
	scores   strategyScores
	snapshot domain.ScoredMovie
}

// RecommendUseCase is the hybrid fusion engine. Every collaborator
// call is independent and failure-tolerant: a broken backend degrades
// its signal to zero instead of failing the request.
type RecommendUseCase struct {
	content  ports.ContentModel
	ratings  ports.RatingModel
	embedder ports.Embedder
	vectors  ports.VectorSearcher
	graph    ports.GraphStore
	history  ports.RatingStore

	weights           FusionWeights
	strategyTimeout   time.Duration
	likedRatingMin    float64
	likedLimit        int
	logger            *slog.Logger
	onStrategyFailure func(strategy string)
}

// UseRatingHistory plugs in the rating store so that requests carrying
// a user id but no explicit liked movies are seeded from the user's
// stored liked history.
func (uc *RecommendUseCase) UseRatingHistory(history ports.RatingStore, minRating float64, limit int) {
	uc.history = history
	uc.likedRatingMin = minRating
	uc.likedLimit = limit
}

// ObserveStrategyFailures registers a callback invoked once per failed
// strategy dispatch. The core stays free of metrics imports; callers
// plug their counters in here.
func (uc *RecommendUseCase) ObserveStrategyFailures(fn func(strategy string)) {
	uc.onStrategyFailure = fn
}

func (uc *RecommendUseCase) strategyFailed(strategy string, err error, attrs ...any) {
	logAttrs := append([]any{"strategy", strategy, "error", err}, attrs...)
	uc.logger.Warn("strategy_failed", logAttrs...)
	if uc.onStrategyFailure != nil {
		uc.onStrategyFailure(strategy)
	}
}

func NewRecommendUseCase(
	content ports.ContentModel,
	ratings ports.RatingModel,
	embedder ports.Embedder,
	vectors ports.VectorSearcher,
	graph ports.GraphStore,
	weights FusionWeights,
	strategyTimeout time.Duration,
	logger *slog.Logger,
) *RecommendUseCase {
	if weights == (FusionWeights{}) {
		weights = DefaultFusionWeights()
	}
	if strategyTimeout <= 0 {
		strategyTimeout = defaultStrategyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendUseCase{
		content:         content,
		ratings:         ratings,
		embedder:        embedder,
		vectors:         vectors,
		graph:           graph,
		weights:         weights,
		strategyTimeout: strategyTimeout,
		logger:          logger,
	}
}

// contribution is one strategy's score list, tagged with the channel
// it feeds. Slices are filled concurrently into preassigned slots and
// merged in a fixed order so the fusion result is deterministic.
type contribution struct {
	channel domain.Strategy
	movies  []domain.ScoredMovie
}

// Recommend fuses content, collaborative, and semantic signals into
// one ranked, explained list. It never fails: if every signal is
// unavailable the result is empty.
func (uc *RecommendUseCase) Recommend(ctx context.Context, req ports.RecommendationRequest) []domain.Recommendation {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	fetchN := req.Limit * 2

	uc.seedFromHistory(ctx, &req)

	contributions := uc.collect(ctx, req, fetchN)

	merged := make(map[int64]*candidateScore, fetchN)
	var order []int64
	for _, contrib := range contributions {
		for _, scored := range contrib.movies {
			candidate, ok := merged[scored.MovieID]
			if !ok {
				candidate = &candidateScore{movieID: scored.MovieID, snapshot: scored}
				merged[scored.MovieID] = candidate
				order = append(order, scored.MovieID)
			}
			switch contrib.channel {
			case domain.StrategyCBF:
				candidate.scores.cbf += scored.Score
			case domain.StrategySemantic:
				candidate.scores.semantic += scored.Score
			}
		}
	}
	uc.mergeRatings(ctx, req, merged, &order, fetchN)
	uc.applyGenreFallback(ctx, req, merged, &order)

	liked := make(map[int64]struct{}, len(req.LikedMovieIDs))
	for _, id := range req.LikedMovieIDs {
		liked[id] = struct{}{}
	}

	recommendations := make([]domain.Recommendation, 0, len(order))
	for _, movieID := range order {
		if _, isInput := liked[movieID]; isInput {
			continue
		}
		candidate := merged[movieID]
		combined := uc.weights.CBF*candidate.scores.cbf +
			uc.weights.CF*candidate.scores.cf +
			uc.weights.Semantic*candidate.scores.semantic

		overlap := intersect(req.PreferredGenres, candidate.snapshot.Genres)
		if len(overlap) > 0 {
			combined *= 1 + genreBoostStep*float64(len(overlap))
		}

		recommendations = append(recommendations, domain.Recommendation{
			MovieID:     candidate.movieID,
			Title:       candidate.snapshot.Title,
			Score:       combined,
			Genres:      candidate.snapshot.Genres,
			Overview:    candidate.snapshot.Overview,
			ReleaseYear: candidate.snapshot.ReleaseYear,
			PosterPath:  candidate.snapshot.PosterPath,
			Explanation: buildRecommendationExplanation(candidate.scores, overlap),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].MovieID < recommendations[j].MovieID
	})
	if len(recommendations) > req.Limit {
		recommendations = recommendations[:req.Limit]
	}
	return recommendations
}

// seedFromHistory fills LikedMovieIDs from the stored rating history
// when the request names a user but no explicit liked movies. A lookup
// failure degrades to an unseeded request, same as any other strategy.
func (uc *RecommendUseCase) seedFromHistory(ctx context.Context, req *ports.RecommendationRequest) {
	if uc.history == nil || req.UserID == 0 || len(req.LikedMovieIDs) > 0 {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.strategyTimeout)
	defer cancel()

	ids, err := uc.history.LikedMovieIDs(callCtx, req.UserID, uc.likedRatingMin, uc.likedLimit)
	if err != nil {
		uc.strategyFailed("liked_history", err, "user_id", req.UserID)
		return
	}
	req.LikedMovieIDs = ids
}

// collect fans the content and semantic lookups out on a bounded pool.
// Each dispatch carries its own timeout; the merge step waits for all
// of them. Task failures are logged and contribute nothing.
func (uc *RecommendUseCase) collect(ctx context.Context, req ports.RecommendationRequest, fetchN int) []contribution {
	seeds := req.LikedMovieIDs
	if len(seeds) > maxLikedSeeds {
		seeds = seeds[:maxLikedSeeds]
	}

	slots := make([]contribution, 0, len(seeds)+2)
	for range seeds {
		slots = append(slots, contribution{channel: domain.StrategyCBF})
	}
	textSlot, semanticSlot := -1, -1
	if strings.TrimSpace(req.TextQuery) != "" {
		textSlot = len(slots)
		slots = append(slots, contribution{channel: domain.StrategyCBF})
	}
	if strings.TrimSpace(req.TextQuery) != "" || len(req.PreferredGenres) > 0 {
		semanticSlot = len(slots)
		slots = append(slots, contribution{channel: domain.StrategySemantic})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(strategyWorkers)

	perSeed := fetchN / maxInt(len(seeds), 1)
	for i, seed := range seeds {
		slot, movieID := i, seed
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, uc.strategyTimeout)
			defer cancel()
			movies, err := uc.content.GetSimilar(callCtx, movieID, perSeed)
			if err != nil {
				uc.strategyFailed("cbf", err, "movie_id", movieID)
				return nil
			}
			slots[slot].movies = movies
			return nil
		})
	}
	if textSlot >= 0 {
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, uc.strategyTimeout)
			defer cancel()
			movies, err := uc.content.RecommendationsForText(callCtx, req.TextQuery, fetchN)
			if err != nil {
				uc.strategyFailed("cbf_text", err)
				return nil
			}
			slots[textSlot].movies = movies
			return nil
		})
	}
	if semanticSlot >= 0 {
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, uc.strategyTimeout)
			defer cancel()
			movies, err := uc.semanticSearch(callCtx, req, fetchN)
			if err != nil {
				uc.strategyFailed("semantic", err)
				return nil
			}
			slots[semanticSlot].movies = movies
			return nil
		})
	}

	// Tasks swallow their own errors, so Wait only reflects ctx state.
	_ = group.Wait()
	return slots
}

func (uc *RecommendUseCase) semanticSearch(ctx context.Context, req ports.RecommendationRequest, n int) ([]domain.ScoredMovie, error) {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(req.TextQuery) != "" {
		parts = append(parts, req.TextQuery)
	}
	if len(req.PreferredGenres) > 0 {
		parts = append(parts, strings.Join(req.PreferredGenres, " "))
	}
	vector, err := uc.embedder.EmbedQuery(ctx, strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}
	return uc.vectors.VectorSearch(ctx, vector, n)
}

// mergeRatings adds the collaborative signal. Movies the content and
// semantic channels did not surface need a catalog snapshot; a movie
// whose snapshot cannot be fetched is skipped, not failed.
func (uc *RecommendUseCase) mergeRatings(
	ctx context.Context,
	req ports.RecommendationRequest,
	merged map[int64]*candidateScore,
	order *[]int64,
	fetchN int,
) {
	if req.UserID == 0 {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.strategyTimeout)
	defer cancel()

	predictions, err := uc.ratings.RecommendationsForUser(callCtx, req.UserID, fetchN, true)
	if err != nil {
		uc.strategyFailed("cf", err, "user_id", req.UserID)
		return
	}
	for _, prediction := range predictions {
		candidate, ok := merged[prediction.MovieID]
		if !ok {
			movie, err := uc.graph.GetMovie(callCtx, prediction.MovieID)
			if err != nil {
				uc.logger.Warn("cf_snapshot_failed", "movie_id", prediction.MovieID, "error", err)
				continue
			}
			candidate = &candidateScore{
				movieID:  prediction.MovieID,
				snapshot: snapshotOf(*movie),
			}
			merged[prediction.MovieID] = candidate
			*order = append(*order, prediction.MovieID)
		}
		candidate.scores.cf += prediction.Rating / cfRatingScale
	}
}

// applyGenreFallback tops the candidate pool up with genre-filtered
// catalog movies at fixed placeholder scores when the strategies alone
// produced fewer candidates than requested.
func (uc *RecommendUseCase) applyGenreFallback(
	ctx context.Context,
	req ports.RecommendationRequest,
	merged map[int64]*candidateScore,
	order *[]int64,
) {
	if len(merged) >= req.Limit || len(req.PreferredGenres) == 0 {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.strategyTimeout)
	defer cancel()

	movies, err := uc.graph.FindByGenres(callCtx, req.PreferredGenres, domain.MovieFilter{}, req.Limit)
	if err != nil {
		uc.strategyFailed("genre_fallback", err)
		return
	}
	for _, movie := range movies {
		if _, ok := merged[movie.ID]; ok {
			continue
		}
		merged[movie.ID] = &candidateScore{
			movieID: movie.ID,
			scores: strategyScores{
				cbf:      fallbackStrategyScore,
				semantic: fallbackStrategyScore,
			},
			snapshot: snapshotOf(movie),
		}
		*order = append(*order, movie.ID)
	}
}

func snapshotOf(movie domain.Movie) domain.ScoredMovie {
	return domain.ScoredMovie{
		MovieID:     movie.ID,
		Title:       movie.Title,
		Genres:      movie.Genres,
		Overview:    movie.Overview,
		ReleaseYear: movie.ReleaseYear,
		PosterPath:  movie.PosterPath,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
