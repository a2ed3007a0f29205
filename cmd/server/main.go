package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cavtal/backend/config"
	httpDelivery "github.com/cavtal/backend/internal/delivery/http"
	"github.com/cavtal/backend/internal/infrastructure/cache"
	"github.com/cavtal/backend/internal/infrastructure/catalog"
	"github.com/cavtal/backend/internal/infrastructure/geocode"
	"github.com/cavtal/backend/internal/infrastructure/llm"
	"github.com/cavtal/backend/internal/infrastructure/retrieval"
	"github.com/cavtal/backend/internal/stream"
	"github.com/cavtal/backend/internal/usecase"
)

func main() {
	// Local development reads secrets from .env; deployed environments set
	// real environment variables.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Cavtal Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Resolver mode: %s", cfg.Resolver.Mode)

	ctx := context.Background()

	// Database carries the product catalog and the reference corpus
	db, err := sqlx.Connect("pgx", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	defer db.Close()

	// Language model client (completions + query embeddings)
	llmClient := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		ChatModel:         cfg.LLM.ChatModel,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Debug:             cfg.Resolver.Debug,
	})
	log.Printf("LLM configured: %s (%s)", cfg.LLM.BaseURL, cfg.LLM.ChatModel)

	retriever := retrieval.NewStore(db, llmClient)

	// Stage 1: product resolution
	fallback := usecase.NewFallbackResolver(retriever, llmClient, nil, usecase.FallbackConfig{
		TopK:               cfg.Resolver.FallbackTopK,
		EnableDebugLogging: cfg.Resolver.Debug,
	})

	var products *usecase.ProductResolver
	switch cfg.Resolver.Mode {
	case "corpus":
		products = usecase.NewCorpusProductResolver(retriever, fallback, usecase.CorpusConfig{
			TopK:               cfg.Retrieval.ProductTopK,
			EnableDebugLogging: cfg.Resolver.Debug,
		})
	default:
		items, err := catalog.NewPostgresSource(db).Load(ctx)
		if err != nil {
			log.Fatalf("Failed to load product catalog: %v", err)
		}
		matcher := usecase.NewCatalogMatcher(items, usecase.MatcherConfig{
			EnableDebugLogging: cfg.Resolver.Debug,
		})
		log.Printf("Catalog loaded: %d entries", matcher.Size())

		fallback = usecase.NewFallbackResolver(retriever, llmClient, matcher.Codes(), usecase.FallbackConfig{
			TopK:               cfg.Resolver.FallbackTopK,
			EnableDebugLogging: cfg.Resolver.Debug,
		})
		products = usecase.NewCatalogProductResolver(matcher, fallback)
	}

	// Stage 2: community discount lookup
	discounts := usecase.NewDiscountResolver(retriever, llmClient, usecase.DiscountConfig{
		TopK:               cfg.Retrieval.DiscountTopK,
		MaxContextWords:    cfg.Retrieval.MaxContextWords,
		EnableDebugLogging: cfg.Resolver.Debug,
	})

	pipeline := usecase.NewPipeline(products, discounts)

	// Batch queue (optional; the sync endpoint works without it)
	var queue httpDelivery.BatchQueue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Redis unreachable at %s, batch endpoints disabled: %v", cfg.Redis.Addr, err)
	} else {
		q := stream.NewQueue(rdb, cfg.Redis.ResultTTL)
		if err := q.EnsureGroup(ctx); err != nil {
			log.Fatalf("Failed to create batch consumer group: %v", err)
		}
		queue = q
	}

	// Address validation (optional; needs a geocoding key)
	var validator httpDelivery.AddressChecker
	if cfg.Geocode.APIKey != "" {
		geocoder := geocode.NewClient(cfg.Geocode.APIKey, cfg.Geocode.BaseURL)
		if cfg.Server.Environment == "development" {
			geocoder.SetDebug(true)
		}
		validator = usecase.NewAddressValidator(geocoder, cache.NewMemoryCache(), cfg.Geocode.CacheTTL)
	} else {
		log.Printf("WARNING: no geocoding key configured, address validation disabled")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(pipeline, queue, validator)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
