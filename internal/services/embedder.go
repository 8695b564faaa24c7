package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SimilarityHit pairs a candidate index with its similarity to the query.
type SimilarityHit struct {
	Index int
	Score float64
}

// EmbeddingService generates vectors through the configured model with a
// content-addressed cache in front. Failures degrade to zero vectors so a
// missing embedding biases the semantic sub-score toward 0 instead of
// aborting the scoring pipeline.
type EmbeddingService interface {
	ModelName() string
	Dimension() int
	EmbedText(ctx context.Context, text string, useCache bool) []float32
	EmbedBatch(ctx context.Context, texts []string, useCache bool) [][]float32
	CosineSimilarity(a, b []float32) float64
	FindSimilar(query []float32, candidates [][]float32, topK int) []SimilarityHit
}

type embeddingService struct {
	model   EmbeddingModel
	cache   VectorCache
	timeout time.Duration
	logger  *zap.Logger
}

func NewEmbeddingService(
	model EmbeddingModel,
	cache VectorCache,
	timeout time.Duration,
	logger *zap.Logger,
) EmbeddingService {
	return &embeddingService{
		model:   model,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *embeddingService) ModelName() string {
	return s.model.Name()
}

func (s *embeddingService) Dimension() int {
	return s.model.Dimension()
}

func (s *embeddingService) zeroVector() []float32 {
	return make([]float32, s.model.Dimension())
}

func (s *embeddingService) EmbedText(ctx context.Context, text string, useCache bool) []float32 {
	return s.EmbedBatch(ctx, []string{text}, useCache)[0]
}

// EmbedBatch returns one vector per input, in input order, for any mixture
// of cache hits and misses. All misses go to the model in a single call.
func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string, useCache bool) [][]float32 {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vectors := make([][]float32, len(texts))

	var (
		missTexts   []string
		missIndices []int
	)

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			s.logger.Warn("empty text provided for embedding")
			vectors[i] = s.zeroVector()
			continue
		}

		if useCache {
			if cached, ok := s.cache.Get(ctx, CacheKey(s.model.Name(), text)); ok {
				vectors[i] = cached
				continue
			}
		}

		missTexts = append(missTexts, text)
		missIndices = append(missIndices, i)
	}

	if len(missTexts) == 0 {
		return vectors
	}

	encoded, err := s.model.Encode(ctx, missTexts)
	if err != nil || len(encoded) != len(missTexts) {
		s.logger.Warn("embedding model call failed, falling back to zero vectors",
			zap.Int("texts", len(missTexts)),
			zap.Error(err))
		for _, i := range missIndices {
			vectors[i] = s.zeroVector()
		}
		return vectors
	}

	for pos, i := range missIndices {
		vectors[i] = encoded[pos]
		if useCache {
			key := CacheKey(s.model.Name(), missTexts[pos])
			if err := s.cache.Put(ctx, key, encoded[pos]); err != nil {
				s.logger.Warn("failed to cache embedding", zap.Error(err))
			}
		}
	}

	return vectors
}

// CosineSimilarity returns the clamped [0,1] cosine similarity. Similarity
// against a zero vector is 0, never NaN.
func (s *embeddingService) CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, similarity))
}

// FindSimilar ranks candidates by similarity to the query, highest first.
// Ties break toward the lower candidate index so results are stable.
func (s *embeddingService) FindSimilar(query []float32, candidates [][]float32, topK int) []SimilarityHit {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	hits := make([]SimilarityHit, len(candidates))
	for i, candidate := range candidates {
		hits[i] = SimilarityHit{
			Index: i,
			Score: s.CosineSimilarity(query, candidate),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK]
}
