package domain

// Strategy names one retrieval path the router can dispatch to.
type Strategy string

const (
	StrategyGraph    Strategy = "graph"
	StrategySimilar  Strategy = "similar"
	StrategyCBF      Strategy = "cbf"
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
)

// YearRange is an inclusive release-year interval.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// QueryEntities holds the structured entities extracted from a query.
// Zero values mean "not detected".
type QueryEntities struct {
	Director       string   `json:"director,omitempty"`
	Actor          string   `json:"actor,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Year           int      `json:"year,omitempty"`
	Decade         *YearRange `json:"decade,omitempty"`
	SimilarToTitle string   `json:"similar_to_movie,omitempty"`
}

func (e QueryEntities) HasStructured() bool {
	return e.Director != "" || e.Actor != "" || len(e.Genres) > 0 || e.Year != 0 || e.Decade != nil
}

// YearFilter folds the explicit year and decade entities into one
// filter for graph lookups. An explicit year wins over a decade.
func (e QueryEntities) YearFilter() MovieFilter {
	if e.Year != 0 {
		return MovieFilter{YearMin: e.Year, YearMax: e.Year}
	}
	if e.Decade != nil {
		return MovieFilter{YearMin: e.Decade.Min, YearMax: e.Decade.Max}
	}
	return MovieFilter{}
}

// QueryIntent is the classifier's immutable verdict for one query.
type QueryIntent struct {
	Strategies    []Strategy    `json:"strategies"`
	Entities      QueryEntities `json:"entities"`
	Confidence    float64       `json:"confidence"`
	OriginalQuery string        `json:"original_query"`
	SemanticQuery string        `json:"semantic_query"`
}

func (qi QueryIntent) Has(s Strategy) bool {
	for _, existing := range qi.Strategies {
		if existing == s {
			return true
		}
	}
	return false
}

func (qi QueryIntent) NeedsGraphSearch() bool {
	return qi.Has(StrategyGraph) || qi.Has(StrategyHybrid)
}

func (qi QueryIntent) NeedsSimilaritySearch() bool {
	return qi.Has(StrategySimilar)
}

func (qi QueryIntent) NeedsContentSearch() bool {
	return qi.Has(StrategyCBF) || qi.Has(StrategyHybrid)
}

// ParsedQuery is the optional LLM entity parser's output. When the
// parser is unavailable or fails, the rule-based classifier produces an
// equivalent QueryIntent instead.
type ParsedQuery struct {
	IsSupported       bool          `json:"is_supported"`
	Entities          QueryEntities `json:"entities"`
	Explanation       string        `json:"explanation"`
	UnsupportedReason string        `json:"unsupported_reason"`
}
