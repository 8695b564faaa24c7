package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbeddingModel returns a fixed-dimension vector derived from the text
// length, or a canned error. Encode calls are counted so tests can assert on
// cache behavior.
type stubEmbeddingModel struct {
	dim         int
	err         error
	encodeCalls int
}

func (s *stubEmbeddingModel) Name() string   { return "stub-model" }
func (s *stubEmbeddingModel) Dimension() int { return s.dim }

func (s *stubEmbeddingModel) Encode(_ context.Context, texts []string) ([][]float32, error) {
	s.encodeCalls++
	if s.err != nil {
		return nil, s.err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, s.dim)
		vector[0] = float32(len(text))
		vectors[i] = vector
	}
	return vectors, nil
}

func mustDiskCache(t *testing.T) VectorCache {
	t.Helper()
	cache, err := NewDiskVectorCache(t.TempDir())
	require.NoError(t, err)
	return cache
}

func newTestEmbedder(t *testing.T, model EmbeddingModel) EmbeddingService {
	t.Helper()
	return NewEmbeddingService(model, mustDiskCache(t), 0, zap.NewNop())
}

func TestEmbedBatchOrderAndLength(t *testing.T) {
	model := &stubEmbeddingModel{dim: 4}
	embedder := newTestEmbedder(t, model)

	texts := []string{"a", "bb", "ccc"}
	vectors := embedder.EmbedBatch(context.Background(), texts, true)

	require.Len(t, vectors, len(texts))
	for i, vector := range vectors {
		require.Len(t, vector, 4)
		assert.Equal(t, float32(len(texts[i])), vector[0])
	}
	assert.Equal(t, 1, model.encodeCalls)
}

func TestEmbedBatchUsesCache(t *testing.T) {
	model := &stubEmbeddingModel{dim: 4}
	embedder := newTestEmbedder(t, model)

	first := embedder.EmbedBatch(context.Background(), []string{"hello", "world"}, true)
	require.Equal(t, 1, model.encodeCalls)

	// Second call with one hit and one miss: only the miss reaches the model.
	second := embedder.EmbedBatch(context.Background(), []string{"hello", "fresh text"}, true)
	assert.Equal(t, 2, model.encodeCalls)
	assert.Equal(t, first[0], second[0])

	// Fully cached batch never calls the model.
	embedder.EmbedBatch(context.Background(), []string{"hello", "world"}, true)
	assert.Equal(t, 2, model.encodeCalls)
}

func TestEmbedBatchBypassesCacheWhenDisabled(t *testing.T) {
	model := &stubEmbeddingModel{dim: 2}
	embedder := newTestEmbedder(t, model)

	embedder.EmbedBatch(context.Background(), []string{"hello"}, false)
	embedder.EmbedBatch(context.Background(), []string{"hello"}, false)
	assert.Equal(t, 2, model.encodeCalls)
}

func TestEmbedBatchEmptyText(t *testing.T) {
	model := &stubEmbeddingModel{dim: 3}
	embedder := newTestEmbedder(t, model)

	vectors := embedder.EmbedBatch(context.Background(), []string{"", "   "}, true)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 0, 0}, vectors[1])
	assert.Equal(t, 0, model.encodeCalls)
}

func TestEmbedBatchModelFailure(t *testing.T) {
	model := &stubEmbeddingModel{dim: 3, err: errors.New("quota exceeded")}
	embedder := newTestEmbedder(t, model)

	vectors := embedder.EmbedBatch(context.Background(), []string{"some text"}, true)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{0, 0, 0}, vectors[0])

	// A later recovery produces real vectors for the same text; the failure
	// must not have been cached.
	model.err = nil
	recovered := embedder.EmbedText(context.Background(), "some text", true)
	assert.Equal(t, float32(9), recovered[0])
}

func TestCosineSimilarity(t *testing.T) {
	embedder := newTestEmbedder(t, &stubEmbeddingModel{dim: 3})

	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.2, 0.8}
		assert.InDelta(t, 1.0, embedder.CosineSimilarity(v, v), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0,
			embedder.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	t.Run("opposite vectors clamp to zero", func(t *testing.T) {
		assert.Equal(t, 0.0,
			embedder.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}))
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Equal(t, 0.0,
			embedder.CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.Equal(t, 0.0,
			embedder.CosineSimilarity([]float32{1}, []float32{1, 0}))
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Equal(t, 0.0, embedder.CosineSimilarity(nil, nil))
	})
}

func TestFindSimilar(t *testing.T) {
	embedder := newTestEmbedder(t, &stubEmbeddingModel{dim: 2})

	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},       // orthogonal
		{1, 0},       // identical
		{0.7, 0.7},   // diagonal
		{0.9, 0.05},  // near-identical
	}

	t.Run("ordered by similarity descending", func(t *testing.T) {
		hits := embedder.FindSimilar(query, candidates, 4)
		require.Len(t, hits, 4)
		assert.Equal(t, 1, hits[0].Index)
		assert.Equal(t, 3, hits[1].Index)
		assert.Equal(t, 2, hits[2].Index)
		assert.Equal(t, 0, hits[3].Index)
	})

	t.Run("topK truncates", func(t *testing.T) {
		hits := embedder.FindSimilar(query, candidates, 2)
		require.Len(t, hits, 2)
		assert.Equal(t, 1, hits[0].Index)
	})

	t.Run("topK beyond candidates", func(t *testing.T) {
		hits := embedder.FindSimilar(query, candidates, 10)
		assert.Len(t, hits, 4)
	})

	t.Run("ties break toward the lower index", func(t *testing.T) {
		hits := embedder.FindSimilar(query, [][]float32{{2, 0}, {1, 0}, {3, 0}}, 3)
		require.Len(t, hits, 3)
		assert.Equal(t, []int{0, 1, 2}, []int{hits[0].Index, hits[1].Index, hits[2].Index})
	})

	t.Run("empty candidates", func(t *testing.T) {
		assert.Nil(t, embedder.FindSimilar(query, nil, 5))
	})
}
