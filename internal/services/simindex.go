package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

const (
	passageChunkSize = 1000
	passageOverlap   = 100
)

// SimilarityIndex stores embedded resume passages and answers
// "which resumes read like this one" queries. It is an index, not the
// system of record; rows can always be rebuilt from the database.
type SimilarityIndex interface {
	InitCollection(ctx context.Context) error
	IndexResume(ctx context.Context, resumeID uuid.UUID, rawText string) error
	SearchSimilar(ctx context.Context, queryVector []float32, limit int) ([]PassageHit, error)
	RemoveResume(ctx context.Context, resumeID uuid.UUID) error
}

type PassageHit struct {
	ResumeID string
	Score    float64
	Snippet  string
}

type similarityIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	chunker        TextChunker
	embedder       EmbeddingService
	logger         *zap.Logger
}

func NewSimilarityIndex(
	urlStr, apiKey, collectionName string,
	chunker TextChunker,
	embedder EmbeddingService,
	logger *zap.Logger,
) (SimilarityIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port, not the HTTP one.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &similarityIndex{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(embedder.Dimension()),
		chunker:        chunker,
		embedder:       embedder,
		logger:         logger,
	}, nil
}

func (s *similarityIndex) InitCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.logger.Info("created qdrant collection", zap.String("collection", s.collectionName))
	return nil
}

// IndexResume replaces the resume's passages in the index: chunk the raw
// text, batch-embed all chunks in one model call, upsert one point per
// passage.
func (s *similarityIndex) IndexResume(ctx context.Context, resumeID uuid.UUID, rawText string) error {
	if err := s.RemoveResume(ctx, resumeID); err != nil {
		return err
	}

	chunks := s.chunker.Chunk(rawText, passageChunkSize, passageOverlap)
	if len(chunks) == 0 {
		return nil
	}

	vectors := s.embedder.EmbedBatch(ctx, chunks, true)

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"resume_id": resumeID.String(),
				"chunk":     i,
				"text":      chunk,
			}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert resume passages: %w", err)
	}

	s.logger.Debug("indexed resume passages",
		zap.String("resume_id", resumeID.String()),
		zap.Int("passages", len(points)))
	return nil
}

func (s *similarityIndex) SearchSimilar(ctx context.Context, queryVector []float32, limit int) ([]PassageHit, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search similar passages: %w", err)
	}

	hits := make([]PassageHit, 0, len(points))
	for _, point := range points {
		hit := PassageHit{Score: float64(point.Score)}

		if v, ok := point.Payload["resume_id"]; ok {
			if sv, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				hit.ResumeID = sv.StringValue
			}
		}
		if v, ok := point.Payload["text"]; ok {
			if sv, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				hit.Snippet = sv.StringValue
			}
		}

		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *similarityIndex) RemoveResume(ctx context.Context, resumeID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("resume_id", resumeID.String()),
		},
	}

	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to remove resume passages: %w", err)
	}
	return nil
}
