package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"google.golang.org/genai"
)

const maxEmbedInputBytes = 40000

// truncateUTF8 cuts text to at most limit bytes without splitting a rune.
func truncateUTF8(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// EmbeddingModel abstracts the model that turns text into vectors. The
// process owns a single instance, constructed in main and passed by handle;
// implementations are expected to be expensive to create and cheap to call.
type EmbeddingModel interface {
	Name() string
	Dimension() int
	// Encode embeds all texts in one model call and returns one vector per
	// input, in input order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

type geminiEmbeddingModel struct {
	client    *genai.Client
	modelName string
	dimension int
}

func NewGeminiEmbeddingModel(apiKey, modelName string, dimension int) (EmbeddingModel, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiEmbeddingModel{
		client:    client,
		modelName: modelName,
		dimension: dimension,
	}, nil
}

func (g *geminiEmbeddingModel) Name() string {
	return g.modelName
}

func (g *geminiEmbeddingModel) Dimension() int {
	return g.dimension
}

func (g *geminiEmbeddingModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		// The embedding endpoint caps input length; truncate rather than fail.
		contents = append(contents, genai.Text(truncateUTF8(text, maxEmbedInputBytes))...)
	}

	dim := int32(g.dimension)
	result, err := g.client.Models.EmbedContent(ctx, g.modelName, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch: want %d vectors", len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}
