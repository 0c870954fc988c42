package ollama

// buildEntityPrompt asks the model for structured entities only. The
// typo-correction examples matter: users misspell names constantly and
// the graph side does exact-ish matching.
func buildEntityPrompt(query string) string {
	const maxQuery = 500
	if len(query) > maxQuery {
		query = query[:maxQuery]
	}

	return `You are a movie query parser. Extract structured entities from the user query below.

Available genres: Action, Adventure, Animation, Comedy, Crime, Documentary, Drama, Family, Fantasy, History, Horror, Music, Mystery, Romance, Science Fiction, Thriller, War, Western

CRITICAL: correct all typos and misspellings in names and titles.
Always return the correct spelling, not what the user typed. Examples:
- "Cristopher Nolan" -> "Christopher Nolan"
- "Spielburg" -> "Steven Spielberg"
- "Leanardo DiCaprio" -> "Leonardo DiCaprio"
- "Denis Villneuv" -> "Denis Villeneuve"
- "Inseption" -> "Inception"
- "Shawshank Redemtion" -> "The Shawshank Redemption"

Supported queries: movies by director, movies with actor, movies of a genre, movies from a year or decade, movies similar to a title, and combinations of these.
Unsupported queries (set is_supported to false): mood or emotion requests, plot details, subjective quality, abstract themes.

Return a strict JSON object with keys:
is_supported (boolean),
entities (object with keys: director, actor, genres (array), year (number), decade (object with min and max), similar_to_movie; omit keys you did not detect),
explanation (string, mention any corrections made),
unsupported_reason (string, empty when supported).
No markdown, no extra keys.

Query:
` + query
}
