package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// explanationClause is one candidate sentence fragment for a generated
// explanation. Only triggered clauses make it into the output.
type explanationClause struct {
	triggered bool
	message   string
}

func joinTriggered(clauses []explanationClause, separator string) string {
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		if clause.triggered {
			parts = append(parts, clause.message)
		}
	}
	return strings.Join(parts, separator)
}

const defaultExplanation = "Recommended based on popularity and relevance"

// scoreThreshold is the per-strategy raw score above which a strategy
// is considered to have meaningfully contributed to a candidate.
const scoreThreshold = 0.5

// buildRecommendationExplanation renders the fusion explanation from
// the raw pre-boost strategy scores and the genre overlap.
func buildRecommendationExplanation(scores strategyScores, overlappingGenres []string) string {
	clauses := []explanationClause{
		{scores.cbf > scoreThreshold, "similar content to movies you like"},
		{scores.cf > scoreThreshold, "popular among users with similar taste"},
		{scores.semantic > scoreThreshold, "matches your search criteria"},
		{len(overlappingGenres) > 0, "features " + strings.Join(overlappingGenres, ", ")},
	}
	joined := joinTriggered(clauses, " and ")
	if joined == "" {
		return defaultExplanation
	}
	return "Recommended because it has " + joined
}

// buildMatchReason renders the graph-similarity match reason from the
// shared sets computed during scoring. Nothing is recomputed here.
func buildMatchReason(sm domain.SimilarMovie) string {
	clauses := []explanationClause{
		{sm.GenreMatches > 0, fmt.Sprintf("%d shared genres: %s", sm.GenreMatches, strings.Join(headOf(sm.SharedGenres, 3), ", "))},
		{sm.ActorMatches > 0, fmt.Sprintf("%d shared actors: %s", sm.ActorMatches, strings.Join(headOf(sm.SharedActors, 2), ", "))},
		{sm.DirectorMatches > 0, "same director: " + strings.Join(sm.SharedDirectors, ", ")},
		{sm.SameEra, fmt.Sprintf("same era (%ds)", sm.Movie.ReleaseYear)},
	}
	return joinTriggered(clauses, "; ")
}

func headOf(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
