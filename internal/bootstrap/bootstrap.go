package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/cinegraph/internal/config"
	"github.com/kirillkom/cinegraph/internal/core/ports"
	"github.com/kirillkom/cinegraph/internal/core/usecase"
	"github.com/kirillkom/cinegraph/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/cinegraph/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/cinegraph/internal/infrastructure/model/cbf"
	"github.com/kirillkom/cinegraph/internal/infrastructure/model/cf"
	"github.com/kirillkom/cinegraph/internal/infrastructure/queue/nats"
	"github.com/kirillkom/cinegraph/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/cinegraph/internal/infrastructure/resilience"
	"github.com/kirillkom/cinegraph/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Events  ports.ModelEvents
	Ratings *postgres.RatingRepository

	ContentModel *cbf.Model
	RatingModel  *cf.Model

	SearchUC    ports.SmartSearcher
	SimilarUC   ports.SimilarityFinder
	RecommendUC *usecase.RecommendUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ratingRepo := postgres.NewRatingRepository(db)
	if err := ratingRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ratings schema: %w", err)
	}
	factorRepo := postgres.NewFactorRepository(db)
	if err := factorRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure factor schema: %w", err)
	}

	graphStore, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}

	events, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init model events: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	parser := ollama.NewParser(ollamaClient)

	contentModel := cbf.New(graphStore, logger)
	ratingModel := cf.New(factorRepo, ratingRepo, logger)

	classifier := usecase.NewIntentClassifier()
	similarUC := usecase.NewSimilarityUseCase(graphStore, logger)
	recommendUC := usecase.NewRecommendUseCase(
		contentModel,
		ratingModel,
		embedder,
		graphStore,
		graphStore,
		usecase.DefaultFusionWeights(),
		time.Duration(cfg.StrategyTimeoutSeconds)*time.Second,
		logger,
	)
	recommendUC.UseRatingHistory(ratingRepo, cfg.LikedRatingMin, cfg.LikedMoviesLimit)
	searchUC := usecase.NewSmartSearchUseCase(classifier, parser, similarUC, graphStore, contentModel, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Events:  events,
		Ratings: ratingRepo,

		ContentModel: contentModel,
		RatingModel:  ratingModel,

		SearchUC:    searchUC,
		SimilarUC:   similarUC,
		RecommendUC: recommendUC,

		closeFn: func() {
			events.Close()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graphStore.Close(closeCtx)
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
