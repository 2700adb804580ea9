package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nmkrspvl/interviewprep/config"
	"github.com/nmkrspvl/interviewprep/internal/api/handlers"
	"github.com/nmkrspvl/interviewprep/internal/api/middleware"
	"github.com/nmkrspvl/interviewprep/internal/api/routes"
	"github.com/nmkrspvl/interviewprep/internal/cache"
	"github.com/nmkrspvl/interviewprep/internal/logger"
	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
	mongorepo "github.com/nmkrspvl/interviewprep/internal/repositories/mongo"
	"github.com/nmkrspvl/interviewprep/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	l := logger.New(cfg.LogLevel)

	mongoClient, err := config.InitMongo(cfg.MongoURI)
	if err != nil {
		l.Fatalf("MongoDB init error: %v", err)
	}
	db := mongoClient.Database(cfg.MongoDB)
	if err := config.EnsureMongoIndexes(db); err != nil {
		l.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	var store cache.TranscriptCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb, err := config.InitRedis(cfg.RedisAddr)
		if err != nil {
			l.Fatalf("Redis init error: %v", err)
		}
		store = cache.NewRedisCache(rdb)
		l.Info("Redis connected")
	} else {
		l.Warn("REDIS_ADDR not set, caching disabled")
	}

	var provider llm.Provider
	switch cfg.LLMProvider {
	case "ollama":
		provider = llm.NewOllamaClient(cfg.OllamaAPIURL, cfg.OllamaModel)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			l.Fatal("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		provider = llm.NewGeminiClient(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		l.Fatalf("unknown LLM_PROVIDER %q (expected gemini or ollama)", cfg.LLMProvider)
	}
	l.WithField("provider", provider.Name()).Info("LLM provider configured")

	transcripts := mongorepo.NewTranscriptRepo(db)
	interviewSvc := services.NewInterviewService(transcripts, provider, store, l)
	generatorSvc := services.NewGeneratorService(provider, l)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))
	r.Use(middleware.Metrics())

	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(interviewSvc),
		AI:        handlers.NewAIHandler(generatorSvc),
		Health:    handlers.NewHealthHandler(provider),
		JWTSecret: cfg.SupabaseJWTSecret,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		l.Fatalf("server error: %v", err)
	}
}
