// Rebuilds the passage similarity index from the database. Run after a
// collection wipe or an embedding model change; the index is derived data
// and can always be regenerated from parsed resumes.
package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"hiresight/matching-engine/internal/config"
	applogger "hiresight/matching-engine/internal/logger"
	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/services"
)

func main() {
	cfg := config.Load()

	zapLogger, err := applogger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}

	var cache services.VectorCache
	switch cfg.Embedding.CacheBackend {
	case "redis":
		cache = services.NewRedisVectorCache(cfg.Embedding.RedisAddr)
	default:
		cache, err = services.NewDiskVectorCache(cfg.Embedding.CacheDir)
		if err != nil {
			zapLogger.Fatal("failed to initialize embedding cache", zap.Error(err))
		}
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

	ctx := context.Background()
	if err := index.InitCollection(ctx); err != nil {
		zapLogger.Fatal("failed to initialize similarity collection", zap.Error(err))
	}

	var resumes []models.Resume
	err = db.
		Where("status IN ?", []models.ResumeStatus{
			models.ResumeStatusParsed,
			models.ResumeStatusEmbedded,
		}).
		Where("raw_text <> ''").
		Find(&resumes).Error
	if err != nil {
		zapLogger.Fatal("failed to load resumes", zap.Error(err))
	}

	zapLogger.Info("reindexing resumes", zap.Int("count", len(resumes)))

	successCount := 0
	failCount := 0

	for _, resume := range resumes {
		if err := index.IndexResume(ctx, resume.ID, resume.RawText); err != nil {
			zapLogger.Error("failed to index resume",
				zap.String("resume_id", resume.ID.String()),
				zap.Error(err))
			failCount++
			continue
		}
		successCount++
	}

	zapLogger.Info("reindex complete",
		zap.Int("indexed", successCount),
		zap.Int("failed", failCount))

	if failCount > 0 {
		os.Exit(1)
	}
}
