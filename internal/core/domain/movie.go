package domain

// Movie is the read-only catalog record owned by the graph store.
type Movie struct {
	ID          int64     `json:"movie_id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	Genres      []string  `json:"genres"`
	Actors      []string  `json:"actors"`
	Directors   []string  `json:"directors"`
	ReleaseYear int       `json:"release_year"`
	VoteAverage float64   `json:"vote_average"`
	Popularity  float64   `json:"popularity"`
	PosterPath  string    `json:"poster_path"`
	Embedding   []float32 `json:"-"`
}

// MovieFilter narrows structured graph lookups.
type MovieFilter struct {
	YearMin   int
	YearMax   int
	RatingMin float64
}

// ScoredMovie is the shape every strategy adapter returns: a movie id,
// a relevance score, and the display fields needed downstream.
type ScoredMovie struct {
	MovieID     int64    `json:"movie_id"`
	Title       string   `json:"title"`
	Score       float64  `json:"score"`
	Genres      []string `json:"genres"`
	Overview    string   `json:"overview"`
	ReleaseYear int      `json:"release_year"`
	PosterPath  string   `json:"poster_path"`
}

// PredictedRating is a collaborative-filtering prediction on the raw
// 0-5 rating scale.
type PredictedRating struct {
	MovieID int64
	Rating  float64
}

// SimilarityWeights configures graph similarity scoring. The scorer
// never mutates a caller-supplied value.
type SimilarityWeights struct {
	Genre    float64 `json:"genre"`
	Actor    float64 `json:"actor"`
	Director float64 `json:"director"`
	Era      float64 `json:"era"`
}

func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Genre: 5.0, Actor: 3.0, Director: 2.0, Era: 1.0}
}

// SimilarMovie is one graph-similarity result with its score breakdown
// and a human-readable match reason derived from the shared sets.
type SimilarMovie struct {
	Movie           Movie    `json:"movie"`
	Score           float64  `json:"score"`
	GenreMatches    int      `json:"genre_matches"`
	ActorMatches    int      `json:"actor_matches"`
	DirectorMatches int      `json:"director_matches"`
	SameEra         bool     `json:"same_era"`
	SharedGenres    []string `json:"shared_genres"`
	SharedActors    []string `json:"shared_actors"`
	SharedDirectors []string `json:"shared_directors"`
	MatchReason     string   `json:"match_reason"`
}

// SimilarityDetails describes how a similarity result set was produced,
// for upstream reasoning surfaces.
type SimilarityDetails struct {
	SourceTitle string            `json:"source_movie"`
	SourceID    int64             `json:"source_id"`
	Weights     SimilarityWeights `json:"weights"`
	TotalFound  int               `json:"total_found"`
}

// Recommendation is the ranked, explained output shape consumed by the
// HTTP layer.
type Recommendation struct {
	MovieID     int64    `json:"movie_id"`
	Title       string   `json:"title"`
	Score       float64  `json:"score"`
	Genres      []string `json:"genres"`
	Overview    string   `json:"overview"`
	ReleaseYear int      `json:"release_year"`
	PosterPath  string   `json:"poster_path"`
	Explanation string   `json:"explanation"`
}
