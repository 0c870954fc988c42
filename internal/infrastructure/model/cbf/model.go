// Package cbf holds the content-based filtering model: TF-IDF vectors
// over movie metadata, compared by cosine similarity. The index is
// built lazily from the graph catalog and rebuilt on demand when model
// artifacts change.
package cbf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"

	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
)

const (
	// catalogLimit bounds how many movies the index covers.
	catalogLimit = 10000
	// maxFeatures caps the vocabulary, keeping the highest
	// document-frequency terms.
	maxFeatures = 5000
	// genreWeight repeats genre tokens so genre overlap dominates
	// incidental overview word overlap.
	genreWeight = 2
)

// Model implements content similarity over the movie catalog. Safe for
// concurrent use; the first caller after construction or invalidation
// pays the index build cost once.
type Model struct {
	graph  ports.GraphStore
	logger *slog.Logger

	mu    sync.RWMutex
	index *tfidfIndex

	buildGroup singleflight.Group
}

func New(graph ports.GraphStore, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{graph: graph, logger: logger}
}

// Invalidate drops the built index so the next call rebuilds it from
// the current catalog.
func (m *Model) Invalidate() {
	m.mu.Lock()
	m.index = nil
	m.mu.Unlock()
	m.logger.Info("cbf_index_invalidated")
}

// GetSimilar ranks catalog movies by cosine similarity to the given
// movie's content vector. A movie missing from the index falls back to
// a genre lookup against the graph.
func (m *Model) GetSimilar(ctx context.Context, movieID int64, n int) ([]domain.ScoredMovie, error) {
	index, err := m.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	row, ok := index.byID[movieID]
	if !ok {
		return m.genreFallback(ctx, movieID, n)
	}

	scores := index.similarities(index.rows[row])
	scores[row] = 0 // never recommend the movie itself
	return index.topMovies(scores, n), nil
}

// RecommendationsForText vectorizes free text with the index
// vocabulary and ranks the catalog against it.
func (m *Model) RecommendationsForText(ctx context.Context, text string, n int) ([]domain.ScoredMovie, error) {
	index, err := m.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	vector := index.vectorize(tokenizeNgrams(text))
	if len(vector.cols) == 0 {
		return []domain.ScoredMovie{}, nil
	}
	scores := index.similarities(vector)
	return index.topMovies(scores, n), nil
}

func (m *Model) genreFallback(ctx context.Context, movieID int64, n int) ([]domain.ScoredMovie, error) {
	movie, err := m.graph.GetMovie(ctx, movieID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSourceNotFound) {
			return []domain.ScoredMovie{}, nil
		}
		return nil, fmt.Errorf("cbf fallback lookup: %w", err)
	}
	genres := movie.Genres
	if len(genres) > 2 {
		genres = genres[:2]
	}
	if len(genres) == 0 {
		return []domain.ScoredMovie{}, nil
	}

	matches, err := m.graph.FindByGenres(ctx, genres, domain.MovieFilter{}, n)
	if err != nil {
		return nil, fmt.Errorf("cbf fallback genre search: %w", err)
	}
	out := make([]domain.ScoredMovie, 0, len(matches))
	for _, match := range matches {
		if match.ID == movieID {
			continue
		}
		out = append(out, domain.ScoredMovie{
			MovieID:     match.ID,
			Title:       match.Title,
			Score:       clamp01(match.VoteAverage / 10),
			Genres:      match.Genres,
			Overview:    match.Overview,
			ReleaseYear: match.ReleaseYear,
			PosterPath:  match.PosterPath,
		})
	}
	return out, nil
}

func (m *Model) ensureIndex(ctx context.Context) (*tfidfIndex, error) {
	m.mu.RLock()
	index := m.index
	m.mu.RUnlock()
	if index != nil {
		return index, nil
	}

	result, err, _ := m.buildGroup.Do("build", func() (any, error) {
		m.mu.RLock()
		existing := m.index
		m.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		built, err := m.buildIndex(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.index = built
		m.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*tfidfIndex), nil
}

func (m *Model) buildIndex(ctx context.Context) (*tfidfIndex, error) {
	movies, err := m.graph.ListMovies(ctx, catalogLimit)
	if err != nil {
		return nil, fmt.Errorf("load catalog for cbf index: %w", err)
	}
	if len(movies) == 0 {
		return nil, domain.WrapError(domain.ErrStrategyUnavailable, "cbf.build", fmt.Errorf("empty catalog"))
	}

	docs := make([][]string, len(movies))
	for i, movie := range movies {
		docs[i] = contentTokens(movie)
	}

	index := fitTFIDF(docs, movies)
	m.logger.Info("cbf_index_built", "movies", len(movies), "vocabulary", len(index.vocab))
	return index, nil
}

// contentTokens builds the per-movie token stream: title, overview,
// and genres repeated for weight.
func contentTokens(movie domain.Movie) []string {
	var parts []string
	if movie.Title != "" {
		parts = append(parts, movie.Title)
	}
	if movie.Overview != "" {
		parts = append(parts, movie.Overview)
	}
	for i := 0; i < genreWeight; i++ {
		parts = append(parts, movie.Genres...)
	}
	return tokenizeNgrams(strings.Join(parts, " "))
}

// sparseVector is a row of the TF-IDF matrix: parallel sorted column
// indices and weights, L2-normalized after fitting.
type sparseVector struct {
	cols    []int
	weights []float64
}

type tfidfIndex struct {
	vocab  map[string]int
	idf    []float64
	rows   []sparseVector
	movies []domain.ScoredMovie
	byID   map[int64]int
}

// fitTFIDF computes the vocabulary, smoothed IDF weights, and the
// normalized document matrix. Vocabulary selection is deterministic:
// ties on document frequency break lexicographically.
func fitTFIDF(docs [][]string, movies []domain.Movie) *tfidfIndex {
	docFreq := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			docFreq[token]++
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	totalDocs := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+totalDocs)/(1+float64(docFreq[term]))) + 1
	}

	index := &tfidfIndex{
		vocab:  vocab,
		idf:    idf,
		rows:   make([]sparseVector, len(docs)),
		movies: make([]domain.ScoredMovie, len(movies)),
		byID:   make(map[int64]int, len(movies)),
	}
	for i, tokens := range docs {
		index.rows[i] = index.vectorize(tokens)
		index.byID[movies[i].ID] = i
		index.movies[i] = domain.ScoredMovie{
			MovieID:     movies[i].ID,
			Title:       movies[i].Title,
			Genres:      movies[i].Genres,
			Overview:    movies[i].Overview,
			ReleaseYear: movies[i].ReleaseYear,
			PosterPath:  movies[i].PosterPath,
		}
	}
	return index
}

// vectorize turns a token stream into a normalized TF-IDF vector using
// the fitted vocabulary. Unknown terms are ignored.
func (idx *tfidfIndex) vectorize(tokens []string) sparseVector {
	counts := make(map[int]float64)
	for _, token := range tokens {
		if col, ok := idx.vocab[token]; ok {
			counts[col]++
		}
	}
	if len(counts) == 0 {
		return sparseVector{}
	}

	cols := make([]int, 0, len(counts))
	for col := range counts {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	weights := make([]float64, len(cols))
	for i, col := range cols {
		weights[i] = counts[col] * idx.idf[col]
	}
	norm := math.Sqrt(floats.Dot(weights, weights))
	if norm > 0 {
		floats.Scale(1/norm, weights)
	}
	return sparseVector{cols: cols, weights: weights}
}

// similarities computes the cosine similarity of one vector against
// every document row. Rows are normalized, so cosine is a sparse dot.
func (idx *tfidfIndex) similarities(query sparseVector) []float64 {
	scores := make([]float64, len(idx.rows))
	for i, row := range idx.rows {
		scores[i] = sparseDot(query, row)
	}
	return scores
}

func sparseDot(a, b sparseVector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.cols) && j < len(b.cols) {
		switch {
		case a.cols[i] == b.cols[j]:
			dot += a.weights[i] * b.weights[j]
			i++
			j++
		case a.cols[i] < b.cols[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// topMovies picks the n best-scoring catalog movies. Zero scores are
// dropped; equal scores order by movie id.
func (idx *tfidfIndex) topMovies(scores []float64, n int) []domain.ScoredMovie {
	type ranked struct {
		row   int
		score float64
	}
	candidates := make([]ranked, 0, len(scores))
	for row, score := range scores {
		if score > 0 {
			candidates = append(candidates, ranked{row: row, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return idx.movies[candidates[i].row].MovieID < idx.movies[candidates[j].row].MovieID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]domain.ScoredMovie, 0, len(candidates))
	for _, candidate := range candidates {
		movie := idx.movies[candidate.row]
		movie.Score = candidate.score
		out = append(out, movie)
	}
	return out
}

// stopwords is a compact English function-word list; enough to keep
// connective words out of the vocabulary.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "his": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "she": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "they": {}, "this": {}, "to": {}, "was": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"will": {}, "with": {},
}

// tokenizeNgrams produces lowercase alphanumeric unigrams plus
// adjacent-pair bigrams, with stopwords removed before pairing.
func tokenizeNgrams(text string) []string {
	raw := tokenizeAlphaNum(text)
	unigrams := make([]string, 0, len(raw))
	for _, token := range raw {
		if _, stop := stopwords[token]; stop {
			continue
		}
		unigrams = append(unigrams, token)
	}

	out := make([]string, 0, len(unigrams)*2)
	out = append(out, unigrams...)
	for i := 0; i+1 < len(unigrams); i++ {
		out = append(out, unigrams[i]+" "+unigrams[i+1])
	}
	return out
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
