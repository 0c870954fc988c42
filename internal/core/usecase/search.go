package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

// graphFacetScore is the score contributed by each structured graph
// facet a movie matches. Content scores live in [0,1], so any single
// structured match outranks a pure text match.
const graphFacetScore = 1.0

// entityParseTimeout bounds the optional LLM entity parse. The rule
// classifier already ran by then, so a slow parser costs nothing but
// refinement.
const entityParseTimeout = 5 * time.Second

// SmartSearchUseCase routes free-text queries: classify, optionally
// refine entities through the LLM parser, dispatch the applicable
// strategies, and merge the hits into one ranked list.
type SmartSearchUseCase struct {
	classifier ports.QueryClassifier
	parser     ports.EntityParser
	similar    ports.SimilarityFinder
	graph      ports.GraphStore
	content    ports.ContentModel
	logger     *slog.Logger
}

func NewSmartSearchUseCase(
	classifier ports.QueryClassifier,
	parser ports.EntityParser,
	similar ports.SimilarityFinder,
	graph ports.GraphStore,
	content ports.ContentModel,
	logger *slog.Logger,
) *SmartSearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SmartSearchUseCase{
		classifier: classifier,
		parser:     parser,
		similar:    similar,
		graph:      graph,
		content:    content,
		logger:     logger,
	}
}

// Search classifies the query and fans it out to the strategies the
// intent selects. Strategy failures degrade the result instead of
// failing the request; only an empty query is an error.
func (uc *SmartSearchUseCase) Search(ctx context.Context, query string, limit int) (*ports.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "smart search", errors.New("query must not be empty"))
	}
	if limit <= 0 {
		limit = 10
	}

	intent := uc.classifier.Classify(query)
	intent.Entities = uc.refineEntities(ctx, query, intent.Entities)

	uc.logger.Info("query_classified",
		"query", query,
		"strategies", intent.Strategies,
		"confidence", intent.Confidence,
	)

	if intent.NeedsSimilaritySearch() && intent.Entities.SimilarToTitle != "" {
		return uc.searchSimilar(ctx, intent, limit)
	}

	merged := make(map[int64]*ports.SearchResult, limit*2)
	var order []int64

	graphUsed := false
	if intent.NeedsGraphSearch() && intent.Entities.HasStructured() {
		graphUsed = uc.dispatchGraph(ctx, intent.Entities, limit, merged, &order)
	}
	contentUsed := false
	if intent.NeedsContentSearch() && strings.TrimSpace(intent.SemanticQuery) != "" {
		contentUsed = uc.dispatchContent(ctx, intent.SemanticQuery, limit, merged, &order)
	}

	results := make([]ports.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Movie.ID < results[j].Movie.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return &ports.SearchResponse{
		Results:    results,
		SearchType: searchTypeOf(graphUsed, contentUsed),
		Intent:     intent,
	}, nil
}

// refineEntities overlays LLM-extracted entities on the rule-based
// ones. Any parser failure keeps the rule-based extraction untouched.
func (uc *SmartSearchUseCase) refineEntities(ctx context.Context, query string, base domain.QueryEntities) domain.QueryEntities {
	if uc.parser == nil {
		return base
	}
	parseCtx, cancel := context.WithTimeout(ctx, entityParseTimeout)
	defer cancel()

	parsed, err := uc.parser.Parse(parseCtx, query)
	if err != nil {
		uc.logger.Warn("entity_parse_failed", "query", query, "error", err)
		return base
	}
	if !parsed.IsSupported {
		uc.logger.Info("entity_parse_unsupported", "query", query, "reason", parsed.UnsupportedReason)
		return base
	}
	if parsed.Entities.Director != "" {
		base.Director = parsed.Entities.Director
	}
	if parsed.Entities.Actor != "" {
		base.Actor = parsed.Entities.Actor
	}
	if len(parsed.Entities.Genres) > 0 {
		base.Genres = parsed.Entities.Genres
	}
	if parsed.Entities.Year != 0 {
		base.Year = parsed.Entities.Year
	}
	if parsed.Entities.Decade != nil {
		base.Decade = parsed.Entities.Decade
	}
	if parsed.Entities.SimilarToTitle != "" {
		base.SimilarToTitle = parsed.Entities.SimilarToTitle
	}
	return base
}

func (uc *SmartSearchUseCase) searchSimilar(ctx context.Context, intent domain.QueryIntent, limit int) (*ports.SearchResponse, error) {
	matches, _, err := uc.similar.FindSimilar(ctx, ports.SimilarityRequest{
		Title: intent.Entities.SimilarToTitle,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	results := make([]ports.SearchResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, ports.SearchResult{
			Movie:       match.Movie,
			Score:       match.Score,
			MatchReason: match.MatchReason,
		})
	}
	return &ports.SearchResponse{
		Results:    results,
		SearchType: string(domain.StrategySimilar),
		Intent:     intent,
	}, nil
}

// dispatchGraph runs one lookup per structured facet and merges the
// hits. A movie matching several facets accumulates score and reasons.
func (uc *SmartSearchUseCase) dispatchGraph(
	ctx context.Context,
	entities domain.QueryEntities,
	limit int,
	merged map[int64]*ports.SearchResult,
	order *[]int64,
) bool {
	filter := entities.YearFilter()
	dispatched := false

	if entities.Director != "" {
		movies, err := uc.graph.FindByDirector(ctx, entities.Director, filter, limit)
		if err != nil {
			uc.logger.Warn("graph_lookup_failed", "facet", "director", "name", entities.Director, "error", err)
		} else {
			dispatched = true
			mergeGraphHits(movies, "Directed by "+entities.Director, merged, order)
		}
	}
	if entities.Actor != "" {
		movies, err := uc.graph.FindByActor(ctx, entities.Actor, filter, limit)
		if err != nil {
			uc.logger.Warn("graph_lookup_failed", "facet", "actor", "name", entities.Actor, "error", err)
		} else {
			dispatched = true
			mergeGraphHits(movies, "Starring "+entities.Actor, merged, order)
		}
	}
	if len(entities.Genres) > 0 {
		movies, err := uc.graph.FindByGenres(ctx, entities.Genres, filter, limit)
		if err != nil {
			uc.logger.Warn("graph_lookup_failed", "facet", "genres", "genres", entities.Genres, "error", err)
		} else {
			dispatched = true
			mergeGraphHits(movies, "Genre: "+strings.Join(entities.Genres, ", "), merged, order)
		}
	}
	// A bare year or decade only warrants its own lookup when no other
	// facet already narrowed the result set.
	if entities.Director == "" && entities.Actor == "" && len(entities.Genres) == 0 &&
		(entities.Year != 0 || entities.Decade != nil) {
		years := domain.YearRange{Min: filter.YearMin, Max: filter.YearMax}
		movies, err := uc.graph.FindByYearRange(ctx, years, nil, limit)
		if err != nil {
			uc.logger.Warn("graph_lookup_failed", "facet", "years", "range", years, "error", err)
		} else {
			dispatched = true
			mergeGraphHits(movies, yearReason(years), merged, order)
		}
	}
	return dispatched
}

func (uc *SmartSearchUseCase) dispatchContent(
	ctx context.Context,
	semanticQuery string,
	limit int,
	merged map[int64]*ports.SearchResult,
	order *[]int64,
) bool {
	movies, err := uc.content.RecommendationsForText(ctx, semanticQuery, limit)
	if err != nil {
		uc.logger.Warn("content_search_failed", "query", semanticQuery, "error", err)
		return false
	}
	for _, scored := range movies {
		existing, ok := merged[scored.MovieID]
		if !ok {
			merged[scored.MovieID] = &ports.SearchResult{
				Movie: domain.Movie{
					ID:          scored.MovieID,
					Title:       scored.Title,
					Overview:    scored.Overview,
					Genres:      scored.Genres,
					ReleaseYear: scored.ReleaseYear,
					PosterPath:  scored.PosterPath,
				},
				Score:       scored.Score,
				MatchReason: "Matches your description",
			}
			*order = append(*order, scored.MovieID)
			continue
		}
		existing.Score += scored.Score
		existing.MatchReason += "; matches your description"
	}
	return true
}

func mergeGraphHits(movies []domain.Movie, reason string, merged map[int64]*ports.SearchResult, order *[]int64) {
	for _, movie := range movies {
		existing, ok := merged[movie.ID]
		if !ok {
			merged[movie.ID] = &ports.SearchResult{
				Movie:       movie,
				Score:       graphFacetScore,
				MatchReason: reason,
			}
			*order = append(*order, movie.ID)
			continue
		}
		existing.Score += graphFacetScore
		existing.MatchReason += "; " + reason
		// Graph rows carry the full record; keep it over a partial one.
		if existing.Movie.Title == "" {
			existing.Movie = movie
		}
	}
}

func yearReason(years domain.YearRange) string {
	if years.Min == years.Max {
		return "Released in " + strconv.Itoa(years.Min)
	}
	return "Released " + strconv.Itoa(years.Min) + "-" + strconv.Itoa(years.Max)
}

func searchTypeOf(graphUsed, contentUsed bool) string {
	switch {
	case graphUsed && contentUsed:
		return string(domain.StrategyHybrid)
	case graphUsed:
		return string(domain.StrategyGraph)
	case contentUsed:
		return string(domain.StrategyCBF)
	default:
		return string(domain.StrategyHybrid)
	}
}
