package neo4j

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// vectorIndexName is the Neo4j vector index over Movie.embedding.
const vectorIndexName = "movie_embeddings"

// vectorMinScore drops near-orthogonal vector hits.
const vectorMinScore = 0.5

// Store is the Neo4j-backed movie catalog. All lookups are read-only;
// ingestion happens out of band.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Store{driver: driver, database: database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

const movieReturnClause = `
RETURN
    m.movie_id AS movie_id,
    m.title AS title,
    m.overview AS overview,
    m.release_year AS release_year,
    m.vote_average AS vote_average,
    m.popularity AS popularity,
    m.poster_path AS poster_path,
    genres,
    actors,
    directors`

const collectRelationsClause = `
OPTIONAL MATCH (m)-[:HAS_GENRE]->(g:Genre)
OPTIONAL MATCH (a:Actor)-[:ACTED_IN]->(m)
OPTIONAL MATCH (d:Director)-[:DIRECTED]->(m)
WITH m,
    collect(DISTINCT g.name) AS genres,
    collect(DISTINCT a.name) AS actors,
    collect(DISTINCT d.name) AS directors`

func (s *Store) GetMovie(ctx context.Context, movieID int64) (*domain.Movie, error) {
	query := `MATCH (m:Movie {movie_id: $movie_id})` + collectRelationsClause + movieReturnClause
	movies, err := s.readMovies(ctx, query, map[string]any{"movie_id": movieID})
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", movieID, err)
	}
	if len(movies) == 0 {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "get movie",
			fmt.Errorf("movie %d not in graph", movieID))
	}
	return &movies[0], nil
}

func (s *Store) FindMovieByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	query := `
MATCH (m:Movie)
WHERE m.title =~ $title_pattern
WITH m
ORDER BY m.popularity DESC
LIMIT 1` + collectRelationsClause + movieReturnClause
	movies, err := s.readMovies(ctx, query, map[string]any{
		"title_pattern": containsPattern(title),
	})
	if err != nil {
		return nil, fmt.Errorf("find movie by title: %w", err)
	}
	if len(movies) == 0 {
		return nil, nil
	}
	return &movies[0], nil
}

func (s *Store) FindByDirector(ctx context.Context, name string, filter domain.MovieFilter, limit int) ([]domain.Movie, error) {
	where, params := filterClauses(filter, limit)
	params["director_pattern"] = containsPattern(name)

	query := `
MATCH (dir:Director)-[:DIRECTED]->(m:Movie)
WHERE dir.name =~ $director_pattern` + where + collectRelationsClause + movieReturnClause + rankedLimitClause
	movies, err := s.readMovies(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find by director: %w", err)
	}
	return movies, nil
}

func (s *Store) FindByActor(ctx context.Context, name string, filter domain.MovieFilter, limit int) ([]domain.Movie, error) {
	where, params := filterClauses(filter, limit)
	params["actor_pattern"] = containsPattern(name)

	query := `
MATCH (act:Actor)-[:ACTED_IN]->(m:Movie)
WHERE act.name =~ $actor_pattern` + where + collectRelationsClause + movieReturnClause + rankedLimitClause
	movies, err := s.readMovies(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find by actor: %w", err)
	}
	return movies, nil
}

func (s *Store) FindByGenres(ctx context.Context, genres []string, filter domain.MovieFilter, limit int) ([]domain.Movie, error) {
	where, params := filterClauses(filter, limit)
	params["genres"] = genres

	query := `
MATCH (m:Movie)-[:HAS_GENRE]->(gf:Genre)
WHERE gf.name IN $genres` + where + `
WITH DISTINCT m` + collectRelationsClause + movieReturnClause + rankedLimitClause
	movies, err := s.readMovies(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find by genres: %w", err)
	}
	return movies, nil
}

func (s *Store) FindByYearRange(ctx context.Context, years domain.YearRange, genres []string, limit int) ([]domain.Movie, error) {
	params := map[string]any{
		"year_min": years.Min,
		"year_max": years.Max,
		"limit":    limit,
	}
	match := `MATCH (m:Movie)`
	where := `
WHERE m.release_year >= $year_min AND m.release_year <= $year_max`
	if len(genres) > 0 {
		match = `MATCH (m:Movie)-[:HAS_GENRE]->(gf:Genre)`
		where += ` AND gf.name IN $genres`
		params["genres"] = genres
	}

	query := match + where + `
WITH DISTINCT m` + collectRelationsClause + movieReturnClause + rankedLimitClause
	movies, err := s.readMovies(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find by year range: %w", err)
	}
	return movies, nil
}

func (s *Store) ListMovies(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := `
MATCH (m:Movie)
WITH m
ORDER BY m.popularity DESC
LIMIT $limit` + collectRelationsClause + movieReturnClause
	movies, err := s.readMovies(ctx, query, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// VectorSearch runs nearest-neighbor retrieval over the movie embedding
// index and drops low-score hits.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, limit int) ([]domain.ScoredMovie, error) {
	query := `
CALL db.index.vector.queryNodes($index_name, $limit, $embedding)
YIELD node, score
WHERE score >= $min_score
RETURN
    node.movie_id AS movie_id,
    node.title AS title,
    score,
    node.overview AS overview,
    node.release_year AS release_year,
    node.poster_path AS poster_path,
    [(node)-[:HAS_GENRE]->(g:Genre) | g.name] AS genres`
	params := map[string]any{
		"index_name": vectorIndexName,
		"limit":      limit,
		"embedding":  float32sToAny(vector),
		"min_score":  vectorMinScore,
	}

	records, err := s.read(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	out := make([]domain.ScoredMovie, 0, len(records))
	for _, record := range records {
		out = append(out, domain.ScoredMovie{
			MovieID:     recordInt64(record, "movie_id"),
			Title:       recordString(record, "title"),
			Score:       recordFloat(record, "score"),
			Overview:    recordString(record, "overview"),
			ReleaseYear: int(recordInt64(record, "release_year")),
			PosterPath:  recordString(record, "poster_path"),
			Genres:      recordStrings(record, "genres"),
		})
	}
	return out, nil
}

const rankedLimitClause = `
ORDER BY m.vote_average DESC, m.popularity DESC
LIMIT $limit`

func filterClauses(filter domain.MovieFilter, limit int) (string, map[string]any) {
	params := map[string]any{"limit": limit}
	var clauses []string
	if filter.YearMin != 0 {
		clauses = append(clauses, "m.release_year >= $year_min")
		params["year_min"] = filter.YearMin
	}
	if filter.YearMax != 0 {
		clauses = append(clauses, "m.release_year <= $year_max")
		params["year_max"] = filter.YearMax
	}
	if filter.RatingMin != 0 {
		clauses = append(clauses, "m.vote_average >= $rating_min")
		params["rating_min"] = filter.RatingMin
	}
	if len(clauses) == 0 {
		return "", params
	}
	return " AND " + strings.Join(clauses, " AND "), params
}

// containsPattern builds a case-insensitive substring regex for Cypher
// =~ matching. The needle is quoted so user text cannot alter it.
func containsPattern(needle string) string {
	return "(?i).*" + regexp.QuoteMeta(needle) + ".*"
}

func (s *Store) readMovies(ctx context.Context, query string, params map[string]any) ([]domain.Movie, error) {
	records, err := s.read(ctx, query, params)
	if err != nil {
		return nil, err
	}
	movies := make([]domain.Movie, 0, len(records))
	for _, record := range records {
		movies = append(movies, domain.Movie{
			ID:          recordInt64(record, "movie_id"),
			Title:       recordString(record, "title"),
			Overview:    recordString(record, "overview"),
			ReleaseYear: int(recordInt64(record, "release_year")),
			VoteAverage: recordFloat(record, "vote_average"),
			Popularity:  recordFloat(record, "popularity"),
			PosterPath:  recordString(record, "poster_path"),
			Genres:      recordStrings(record, "genres"),
			Actors:      recordStrings(record, "actors"),
			Directors:   recordStrings(record, "directors"),
		})
	}
	return movies, nil
}

func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, ok := result.([]*neo4j.Record)
	if !ok {
		return nil, errors.New("unexpected neo4j result shape")
	}
	return records, nil
}

func recordString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func recordInt64(record *neo4j.Record, key string) int64 {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	switch v := value.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func recordFloat(record *neo4j.Record, key string) float64 {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func recordStrings(record *neo4j.Record, key string) []string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// The driver only accepts []any parameter lists.
func float32sToAny(vector []float32) []any {
	out := make([]any, len(vector))
	for i, v := range vector {
		out[i] = v
	}
	return out
}
