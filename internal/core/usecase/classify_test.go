package usecase

import (
	"testing"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

func TestClassifySimilarShortCircuits(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("movies like Inception")
	if len(intent.Strategies) != 1 || intent.Strategies[0] != domain.StrategySimilar {
		t.Fatalf("expected only similar strategy, got %v", intent.Strategies)
	}
	if intent.Entities.SimilarToTitle != "Inception" {
		t.Fatalf("expected title Inception, got %q", intent.Entities.SimilarToTitle)
	}
	if intent.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %v", intent.Confidence)
	}
}

func TestClassifySimilarTrimsTrailingFiller(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("movies similar to The Matrix but more recent please")
	if intent.Entities.SimilarToTitle != "The Matrix" {
		t.Fatalf("expected title The Matrix, got %q", intent.Entities.SimilarToTitle)
	}
}

func TestClassifyStructuredOnlyRoutesToGraph(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("Christopher Nolan sci-fi movies")
	if len(intent.Strategies) != 1 || intent.Strategies[0] != domain.StrategyGraph {
		t.Fatalf("expected graph strategy, got %v", intent.Strategies)
	}
	if intent.Entities.Director != "Christopher Nolan" {
		t.Fatalf("expected director Christopher Nolan, got %q", intent.Entities.Director)
	}
	if len(intent.Entities.Genres) != 1 || intent.Entities.Genres[0] != "Science Fiction" {
		t.Fatalf("expected genre Science Fiction, got %v", intent.Entities.Genres)
	}
	if intent.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %v", intent.Confidence)
	}
}

func TestClassifyStructuredPlusDescriptiveRoutesToHybrid(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("suggest good Christopher Nolan movies")
	if len(intent.Strategies) != 1 || intent.Strategies[0] != domain.StrategyHybrid {
		t.Fatalf("expected hybrid strategy, got %v", intent.Strategies)
	}
	if intent.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", intent.Confidence)
	}
	if intent.SemanticQuery == intent.OriginalQuery {
		t.Fatalf("expected cleaned semantic query, got original %q", intent.SemanticQuery)
	}
}

func TestClassifyDescriptiveOnlyRoutesToContent(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("something dark and atmospheric for tonight")
	if len(intent.Strategies) != 1 || intent.Strategies[0] != domain.StrategyCBF {
		t.Fatalf("expected cbf strategy, got %v", intent.Strategies)
	}
	if intent.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", intent.Confidence)
	}
	if intent.SemanticQuery != intent.OriginalQuery {
		t.Fatalf("semantic query must stay untouched without entities, got %q", intent.SemanticQuery)
	}
}

func TestClassifyUnrecognizedFallsBackToHybrid(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("qwerty asdf")
	if len(intent.Strategies) != 1 || intent.Strategies[0] != domain.StrategyHybrid {
		t.Fatalf("expected hybrid fallback, got %v", intent.Strategies)
	}
	if intent.Confidence != 0.5 {
		t.Fatalf("expected confidence 0.5, got %v", intent.Confidence)
	}
}

func TestClassifyExtractsActorAndYear(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("movies starring Tom Hanks from 1994")
	if intent.Entities.Actor != "Tom Hanks" {
		t.Fatalf("expected actor Tom Hanks, got %q", intent.Entities.Actor)
	}
	if intent.Entities.Year != 1994 {
		t.Fatalf("expected year 1994, got %d", intent.Entities.Year)
	}
}

func TestClassifyDecades(t *testing.T) {
	c := NewIntentClassifier()

	cases := []struct {
		query    string
		min, max int
	}{
		{"action movies from the 90s", 1990, 1999},
		{"thrillers from the 2010s", 2010, 2019},
		{"comedies from the 20s", 2020, 2029},
	}
	for _, tc := range cases {
		intent := c.Classify(tc.query)
		if intent.Entities.Decade == nil {
			t.Fatalf("%q: expected a decade", tc.query)
		}
		if intent.Entities.Decade.Min != tc.min || intent.Entities.Decade.Max != tc.max {
			t.Fatalf("%q: expected %d-%d, got %d-%d",
				tc.query, tc.min, tc.max, intent.Entities.Decade.Min, intent.Entities.Decade.Max)
		}
	}
}

func TestClassifyRejectsAdjectivePairsAsNames(t *testing.T) {
	c := NewIntentClassifier()

	intent := c.Classify("movies starring Mind Bending heroes")
	if intent.Entities.Actor != "" {
		t.Fatalf("expected no actor, got %q", intent.Entities.Actor)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewIntentClassifier()

	first := c.Classify("best sci-fi thriller from the 80s")
	for i := 0; i < 5; i++ {
		again := c.Classify("best sci-fi thriller from the 80s")
		if len(again.Strategies) != len(first.Strategies) || again.Strategies[0] != first.Strategies[0] {
			t.Fatalf("strategies differ across runs: %v vs %v", again.Strategies, first.Strategies)
		}
		if len(again.Entities.Genres) != len(first.Entities.Genres) {
			t.Fatalf("genres differ across runs: %v vs %v", again.Entities.Genres, first.Entities.Genres)
		}
		for j := range again.Entities.Genres {
			if again.Entities.Genres[j] != first.Entities.Genres[j] {
				t.Fatalf("genre order differs across runs: %v vs %v", again.Entities.Genres, first.Entities.Genres)
			}
		}
	}
}
