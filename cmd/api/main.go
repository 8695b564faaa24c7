package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/config"
	"hiresight/matching-engine/internal/handlers"
	applogger "hiresight/matching-engine/internal/logger"
	"hiresight/matching-engine/internal/repositories"
	"hiresight/matching-engine/internal/services"
)

func main() {
	cfg := config.Load()

	zapLogger, err := applogger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("config loaded", zap.String("env", cfg.Server.Env))

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}

	// Repositories
	resumeRepo := repositories.NewResumeRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	matchRepo := repositories.NewMatchRepository(db)

	// Storage
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zapLogger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// Extraction and parsing
	extractor := services.NewDocumentExtractor(cfg.Worker.ExtractTimeout, zapLogger)
	parser := services.NewResumeParser(extractor, zapLogger)

	// Embedding pipeline
	var cache services.VectorCache
	switch cfg.Embedding.CacheBackend {
	case "redis":
		cache = services.NewRedisVectorCache(cfg.Embedding.RedisAddr)
		zapLogger.Info("embedding cache backend: redis", zap.String("addr", cfg.Embedding.RedisAddr))
	default:
		cache, err = services.NewDiskVectorCache(cfg.Embedding.CacheDir)
		if err != nil {
			zapLogger.Fatal("failed to initialize embedding cache", zap.Error(err))
		}
		zapLogger.Info("embedding cache backend: disk", zap.String("dir", cfg.Embedding.CacheDir))
	}

	model, err := services.NewGeminiEmbeddingModel(
		cfg.Embedding.APIKey,
		cfg.Embedding.ModelName,
		cfg.Embedding.Dimension,
	)
	if err != nil {
		zapLogger.Fatal("failed to initialize embedding model", zap.Error(err))
	}

	embedder := services.NewEmbeddingService(model, cache, cfg.Embedding.Timeout, zapLogger)

	// Passage similarity index
	chunker := services.NewTextChunker()
	index, err := services.NewSimilarityIndex(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		chunker,
		embedder,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("failed to initialize similarity index", zap.Error(err))
	}
	if err := index.InitCollection(context.Background()); err != nil {
		zapLogger.Fatal("failed to initialize similarity collection", zap.Error(err))
	}

	// Scoring
	weights := services.ScoreWeights{
		Semantic:   cfg.Scoring.SemanticWeight,
		Skill:      cfg.Scoring.SkillWeight,
		Experience: cfg.Scoring.ExperienceWeight,
		Education:  cfg.Scoring.EducationWeight,
	}
	matcher := services.NewMatcherService(
		resumeRepo,
		candidateRepo,
		jobRepo,
		matchRepo,
		embedder,
		weights,
		zapLogger,
	)

	ingestService := services.NewIngestService(
		resumeRepo,
		candidateRepo,
		parser,
		embedder,
		index,
		zapLogger,
	)

	worker := services.NewWorker(
		resumeRepo,
		matcher,
		ingestService,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		zapLogger,
	)
	worker.Start(context.Background())

	// Handlers
	resumeHandler := handlers.NewResumeHandler(
		resumeRepo,
		storageService,
		ingestService,
		embedder,
		index,
		cfg.Storage.MaxFileSize,
	)
	jobHandler := handlers.NewJobHandler(jobRepo, embedder, zapLogger)
	matchHandler := handlers.NewMatchHandler(matcher, worker, jobRepo, resumeRepo)

	app := fiber.New(fiber.Config{
		AppName:      "HireSight Matching Engine",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/resumes", resumeHandler.HandleUpload)
	api.Get("/resumes/:id", resumeHandler.HandleGetResume)
	api.Delete("/resumes/:id", resumeHandler.HandleDelete)
	api.Post("/resumes/:id/parse", resumeHandler.HandleReparse)
	api.Post("/resumes/:id/embed", resumeHandler.HandleEmbed)
	api.Get("/resumes/:id/similar", resumeHandler.HandleSimilar)

	api.Post("/jobs", jobHandler.HandleCreate)
	api.Get("/jobs/:id", jobHandler.HandleGetJob)
	api.Put("/jobs/:id", jobHandler.HandleUpdate)

	api.Post("/matches", matchHandler.HandleScoreMatch)
	api.Post("/jobs/:id/score", matchHandler.HandleScoreRun)
	api.Get("/jobs/:id/ranking", matchHandler.HandleRanking)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "HireSight Matching Engine API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/resumes",
				"GET /api/v1/resumes/:id",
				"DELETE /api/v1/resumes/:id",
				"POST /api/v1/resumes/:id/parse",
				"POST /api/v1/resumes/:id/embed",
				"GET /api/v1/resumes/:id/similar",
				"POST /api/v1/jobs",
				"GET /api/v1/jobs/:id",
				"PUT /api/v1/jobs/:id",
				"POST /api/v1/matches",
				"POST /api/v1/jobs/:id/score",
				"GET /api/v1/jobs/:id/ranking",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("shutting down server")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			zapLogger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zapLogger.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
