package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

// IntentClassifier is the rule-based query router. It holds only
// compiled patterns and static lookup tables, performs no I/O, and is
// safe for concurrent use.
type IntentClassifier struct {
	similarPatterns  []*regexp.Regexp
	directorPatterns []*regexp.Regexp
	actorPatterns    []*regexp.Regexp
	yearPatterns     []*regexp.Regexp
	shortDecade      *regexp.Regexp
	longDecade       *regexp.Regexp
	trailingFiller   *regexp.Regexp
	whitespace       *regexp.Regexp
}

// Queries phrased as "movies like X" short-circuit every other
// extraction path. Order matters: more specific templates first.
var similarPatternTexts = []string{
	`(?i)(?:movies?|films?) (?:like|similar to) ["']?([^"'?]+)["']?`,
	`(?i)(?:something|anything) (?:like|similar to) ["']?([^"'?]+)["']?`,
	`(?i)(?:more|other) (?:movies?|films?) like ["']?([^"'?]+)["']?`,
	`(?i)(?:if i liked?|i (?:love|loved|enjoy|enjoyed)) ["']?([^"'?,]+)["']?`,
	`(?i)recommend.*(?:like|similar to) ["']?([^"'?]+)["']?`,
	`(?i)(?:similar|like) ["']?([^"'?]+)["']?`,
}

// Name captures are deliberately case-sensitive: proper names only.
var directorPatternTexts = []string{
	`(?:directed|made|created) by (?:director )?([A-Z][a-z]+ [A-Z][a-z]+)`,
	`by director ([A-Z][a-z]+ [A-Z][a-z]+)`,
	`director ([A-Z][a-z]+ [A-Z][a-z]+)`,
}

var actorPatternTexts = []string{
	`(?:starring|featuring) ([A-Z][a-z]+ [A-Z][a-z]+)`,
	`movies (?:with|starring) ([A-Z][a-z]+ [A-Z][a-z]+)`,
	`actor ([A-Z][a-z]+ [A-Z][a-z]+)`,
}

var yearPatternTexts = []string{
	`from ((?:19|20)\d{2})\b`,
	`in ((?:19|20)\d{2})\b`,
	`((?:19|20)\d{2}) movies`,
	`released (?:in )?((?:19|20)\d{2})\b`,
}

// Common adjectives that must never be accepted as parts of a name.
var nonNameWords = map[string]struct{}{
	"mind": {}, "bending": {}, "thriller": {}, "action": {}, "comedy": {},
	"horror": {}, "scary": {}, "funny": {}, "great": {}, "best": {},
	"good": {}, "classic": {}, "modern": {}, "old": {}, "new": {},
	"feel": {}, "bad": {}, "fast": {}, "slow": {}, "long": {}, "short": {},
	"high": {}, "low": {}, "dark": {}, "light": {}, "black": {}, "white": {},
	"big": {}, "small": {}, "real": {}, "fake": {}, "thought": {},
	"provoking": {}, "heart": {}, "warming": {}, "edge": {}, "seat": {},
	"must": {}, "watch": {}, "highly": {}, "rated": {}, "award": {},
	"winning": {}, "critically": {}, "acclaimed": {},
}

type genreKeywords struct {
	canonical string
	keywords  []string
}

// Keyword-to-canonical-genre table. Iterated in fixed order so the
// extracted genre list is deterministic.
var genreTable = []genreKeywords{
	{"Action", []string{"action", "fight", "explosive", "combat"}},
	{"Comedy", []string{"comedy", "funny", "hilarious", "laugh"}},
	{"Drama", []string{"drama", "dramatic", "emotional"}},
	{"Horror", []string{"horror", "scary", "terrifying", "frightening"}},
	{"Science Fiction", []string{"sci-fi", "science fiction", "futuristic", "space"}},
	{"Romance", []string{"romance", "romantic", "love story"}},
	{"Thriller", []string{"thriller", "suspense", "tense", "suspenseful"}},
	{"Animation", []string{"animation", "animated", "cartoon"}},
	{"Documentary", []string{"documentary", "real story", "true story"}},
	{"Fantasy", []string{"fantasy", "magical", "mythical"}},
	{"Adventure", []string{"adventure", "epic journey"}},
	{"Mystery", []string{"mystery", "detective", "whodunit"}},
	{"Crime", []string{"crime", "criminal", "heist"}},
	{"War", []string{"war", "military", "battlefield"}},
	{"Western", []string{"western", "cowboy"}},
	{"Family", []string{"family", "kids", "children"}},
	{"Musical", []string{"musical", "singing", "songs"}},
}

var descriptiveKeywords = []string{
	"suggest", "recommend", "something", "anything",
	"best", "top", "good", "great", "amazing",
	"underrated", "hidden gem", "classic",
	"mood", "feel", "vibe",
}

var knownDirectors = []string{
	"Christopher Nolan", "Steven Spielberg", "Martin Scorsese",
	"Quentin Tarantino", "James Cameron", "David Fincher",
	"Ridley Scott", "Denis Villeneuve", "Wes Anderson",
	"Coen Brothers", "Stanley Kubrick", "Alfred Hitchcock",
	"Francis Ford Coppola", "Tim Burton", "Peter Jackson",
	"Guillermo del Toro", "George Lucas", "Robert Zemeckis",
}

var knownActors = []string{
	"Tom Hanks", "Leonardo DiCaprio", "Brad Pitt",
	"Morgan Freeman", "Robert De Niro", "Al Pacino",
	"Tom Cruise", "Will Smith", "Denzel Washington",
	"Johnny Depp", "Christian Bale", "Matt Damon",
	"Scarlett Johansson", "Jennifer Lawrence", "Meryl Streep",
	"Natalie Portman", "Emma Stone", "Anne Hathaway",
}

func NewIntentClassifier() *IntentClassifier {
	compile := func(texts []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(texts))
		for _, text := range texts {
			out = append(out, regexp.MustCompile(text))
		}
		return out
	}
	return &IntentClassifier{
		similarPatterns:  compile(similarPatternTexts),
		directorPatterns: compile(directorPatternTexts),
		actorPatterns:    compile(actorPatternTexts),
		yearPatterns:     compile(yearPatternTexts),
		shortDecade:      regexp.MustCompile(`(\d{2})s\b`),
		longDecade:       regexp.MustCompile(`(\d{4})s\b`),
		trailingFiller:   regexp.MustCompile(`(?i)\s+(but|and|with|that|which|please|thanks)\b.*$`),
		whitespace:       regexp.MustCompile(`\s+`),
	}
}

// Classify routes a free-text query to its applicable strategies and
// extracts whatever structured entities the query contains. It never
// fails: unrecognized queries fall through to the hybrid default.
func (c *IntentClassifier) Classify(query string) domain.QueryIntent {
	intent := domain.QueryIntent{
		OriginalQuery: query,
		SemanticQuery: query,
	}
	queryLower := strings.ToLower(query)

	// "Movies like X" wins outright; no other extraction runs.
	if title := c.extractSimilarTitle(query); title != "" {
		intent.Entities.SimilarToTitle = title
		intent.Strategies = []domain.Strategy{domain.StrategySimilar}
		intent.Confidence = 0.95
		return intent
	}

	intent.Entities.Director = c.extractDirector(query)
	intent.Entities.Actor = c.extractActor(query)
	intent.Entities.Genres = extractGenres(queryLower)
	intent.Entities.Year = c.extractYear(query)
	intent.Entities.Decade = c.extractDecade(queryLower)
	descriptive := isDescriptive(queryLower)

	switch {
	case intent.Entities.HasStructured() && descriptive:
		intent.Strategies = []domain.Strategy{domain.StrategyHybrid}
		intent.Confidence = 0.9
		intent.SemanticQuery = c.cleanForContentMatch(query, intent.Entities)
	case intent.Entities.HasStructured():
		intent.Strategies = []domain.Strategy{domain.StrategyGraph}
		intent.Confidence = 0.95
	case descriptive:
		intent.Strategies = []domain.Strategy{domain.StrategyCBF}
		intent.Confidence = 0.8
	default:
		intent.Strategies = []domain.Strategy{domain.StrategyHybrid}
		intent.Confidence = 0.5
	}
	return intent
}

func (c *IntentClassifier) extractSimilarTitle(query string) string {
	for _, pattern := range c.similarPatterns {
		match := pattern.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		title := strings.TrimSpace(match[1])
		title = c.trailingFiller.ReplaceAllString(title, "")
		title = strings.Trim(title, " .,!?")
		if len(title) >= 2 {
			return title
		}
	}
	return ""
}

func (c *IntentClassifier) extractDirector(query string) string {
	if name := matchKnownName(query, knownDirectors); name != "" {
		return name
	}
	return c.matchNamePatterns(query, c.directorPatterns)
}

func (c *IntentClassifier) extractActor(query string) string {
	if name := matchKnownName(query, knownActors); name != "" {
		return name
	}
	return c.matchNamePatterns(query, c.actorPatterns)
}

func matchKnownName(query string, known []string) string {
	queryLower := strings.ToLower(query)
	for _, name := range known {
		if strings.Contains(queryLower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func (c *IntentClassifier) matchNamePatterns(query string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		if isValidName(match[1]) {
			return match[1]
		}
	}
	return ""
}

// isValidName gates regex captures: at least two tokens, and no token
// from the generic-adjective stopword set.
func isValidName(name string) bool {
	words := strings.Fields(strings.ToLower(name))
	if len(words) < 2 {
		return false
	}
	for _, word := range words {
		if _, stop := nonNameWords[word]; stop {
			return false
		}
	}
	return true
}

func extractGenres(queryLower string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, entry := range genreTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(queryLower, keyword) {
				if _, dup := seen[entry.canonical]; !dup {
					seen[entry.canonical] = struct{}{}
					found = append(found, entry.canonical)
				}
				break
			}
		}
	}
	return found
}

func isDescriptive(queryLower string) bool {
	for _, keyword := range descriptiveKeywords {
		if strings.Contains(queryLower, keyword) {
			return true
		}
	}
	return false
}

func (c *IntentClassifier) extractYear(query string) int {
	for _, pattern := range c.yearPatterns {
		match := pattern.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		year := atoiSafe(match[1])
		if year >= 1900 && year <= 2030 {
			return year
		}
	}
	return 0
}

// extractDecade maps "90s" and "1990s" phrasing to an inclusive
// ten-year range. Two-digit decades below 30 read as 2000s.
func (c *IntentClassifier) extractDecade(queryLower string) *domain.YearRange {
	if match := c.longDecade.FindStringSubmatch(queryLower); match != nil {
		start := atoiSafe(match[1])
		return &domain.YearRange{Min: start, Max: start + 9}
	}
	if match := c.shortDecade.FindStringSubmatch(queryLower); match != nil {
		short := atoiSafe(match[1])
		start := 1900 + short
		if short < 30 {
			start = 2000 + short
		}
		return &domain.YearRange{Min: start, Max: start + 9}
	}
	return nil
}

// cleanForContentMatch strips recognized entity phrases so the text
// signal is not dominated by names the graph side already handles.
func (c *IntentClassifier) cleanForContentMatch(query string, entities domain.QueryEntities) string {
	cleaned := query
	if entities.Director != "" {
		escaped := regexp.QuoteMeta(entities.Director)
		for _, text := range []string{
			`(?i)directed by (?:director )?` + escaped,
			`(?i)` + escaped + `(?:'s| movies| films)`,
			`(?i)by ` + escaped,
			`(?i)` + escaped,
		} {
			cleaned = regexp.MustCompile(text).ReplaceAllString(cleaned, "")
		}
	}
	if entities.Actor != "" {
		escaped := regexp.QuoteMeta(entities.Actor)
		for _, text := range []string{
			`(?i)(?:starring|with|featuring) ` + escaped,
			`(?i)` + escaped + ` movies`,
			`(?i)` + escaped,
		} {
			cleaned = regexp.MustCompile(text).ReplaceAllString(cleaned, "")
		}
	}
	cleaned = strings.TrimSpace(c.whitespace.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return query
	}
	return cleaned
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
