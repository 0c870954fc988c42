package config

import "testing"

func TestLoadIncludesFusionDefaults(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "")
	t.Setenv("RECOMMEND_DEFAULT_LIMIT", "")
	t.Setenv("STRATEGY_TIMEOUT_SECONDS", "")
	t.Setenv("LIKED_RATING_MIN", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.SearchDefaultLimit != 10 {
		t.Fatalf("expected default search limit 10, got %d", cfg.SearchDefaultLimit)
	}
	if cfg.RecommendDefaultLimit != 10 {
		t.Fatalf("expected default recommend limit 10, got %d", cfg.RecommendDefaultLimit)
	}
	if cfg.StrategyTimeoutSeconds != 10 {
		t.Fatalf("expected default strategy timeout 10, got %d", cfg.StrategyTimeoutSeconds)
	}
	if cfg.LikedRatingMin != 4.0 {
		t.Fatalf("expected default liked rating min 4.0, got %v", cfg.LikedRatingMin)
	}
	if cfg.NATSSubject != "models.refresh" {
		t.Fatalf("expected default nats subject models.refresh, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "25")
	t.Setenv("STRATEGY_TIMEOUT_SECONDS", "3")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_RATE_LIMIT_BURST", "5")
	t.Setenv("NEO4J_DATABASE", "movies")

	cfg := Load()
	if cfg.SearchDefaultLimit != 25 {
		t.Fatalf("expected search limit 25, got %d", cfg.SearchDefaultLimit)
	}
	if cfg.StrategyTimeoutSeconds != 3 {
		t.Fatalf("expected strategy timeout 3, got %d", cfg.StrategyTimeoutSeconds)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIRateLimitBurst != 5 {
		t.Fatalf("expected rate limit burst 5, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.Neo4jDatabase != "movies" {
		t.Fatalf("expected neo4j database override, got %q", cfg.Neo4jDatabase)
	}
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "many")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.SearchDefaultLimit != 10 {
		t.Fatalf("expected fallback search limit 10, got %d", cfg.SearchDefaultLimit)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected fallback rate limit rps 50, got %v", cfg.APIRateLimitRPS)
	}
}
