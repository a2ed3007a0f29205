package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cavtal/backend/config"
	"github.com/cavtal/backend/internal/infrastructure/catalog"
	"github.com/cavtal/backend/internal/infrastructure/llm"
	"github.com/cavtal/backend/internal/infrastructure/retrieval"
	"github.com/cavtal/backend/internal/stream"
	"github.com/cavtal/backend/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "subsidy-worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("pgx", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	llmClient := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		ChatModel:         cfg.LLM.ChatModel,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Debug:             cfg.Resolver.Debug,
	})
	retriever := retrieval.NewStore(db, llmClient)

	pipeline, err := buildPipeline(ctx, cfg, db, retriever, llmClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	queue := stream.NewQueue(rdb, cfg.Redis.ResultTTL)
	if err := queue.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create consumer group")
	}

	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
	consumer := stream.NewConsumer(rdb, queue, pipeline, consumerName, logger)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped")
	}
	logger.Info().Msg("worker shut down")
}

// buildPipeline wires the two resolver stages the same way the API server
// does.
func buildPipeline(ctx context.Context, cfg *config.Config, db *sqlx.DB, retriever *retrieval.Store, llmClient *llm.Client) (*usecase.Pipeline, error) {
	fallbackCfg := usecase.FallbackConfig{
		TopK:               cfg.Resolver.FallbackTopK,
		EnableDebugLogging: cfg.Resolver.Debug,
	}

	var products *usecase.ProductResolver
	switch cfg.Resolver.Mode {
	case "corpus":
		fallback := usecase.NewFallbackResolver(retriever, llmClient, nil, fallbackCfg)
		products = usecase.NewCorpusProductResolver(retriever, fallback, usecase.CorpusConfig{
			TopK:               cfg.Retrieval.ProductTopK,
			EnableDebugLogging: cfg.Resolver.Debug,
		})
	default:
		items, err := catalog.NewPostgresSource(db).Load(ctx)
		if err != nil {
			return nil, err
		}
		matcher := usecase.NewCatalogMatcher(items, usecase.MatcherConfig{
			EnableDebugLogging: cfg.Resolver.Debug,
		})
		fallback := usecase.NewFallbackResolver(retriever, llmClient, matcher.Codes(), fallbackCfg)
		products = usecase.NewCatalogProductResolver(matcher, fallback)
	}

	discounts := usecase.NewDiscountResolver(retriever, llmClient, usecase.DiscountConfig{
		TopK:               cfg.Retrieval.DiscountTopK,
		MaxContextWords:    cfg.Retrieval.MaxContextWords,
		EnableDebugLogging: cfg.Resolver.Debug,
	})

	return usecase.NewPipeline(products, discounts), nil
}
