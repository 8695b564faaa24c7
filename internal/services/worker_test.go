package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
)

func seedScorablePool(t *testing.T, resumeRepo *fakeResumeRepo, candidateRepo *fakeCandidateRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		resume := &models.Resume{
			ID:        uuid.New(),
			Name:      "Candidate",
			Status:    models.ResumeStatusEmbedded,
			Embedding: []float32{1, 0, 0},
		}
		require.NoError(t, resumeRepo.Create(resume))
		require.NoError(t, candidateRepo.Create(&models.Candidate{
			ID:               uuid.New(),
			ResumeID:         resume.ID,
			Name:             "Candidate",
			NormalizedSkills: []string{"go"},
		}))
	}
}

func TestRunScoreBatch(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	candidateRepo := newFakeCandidateRepo()
	jobRepo := newFakeJobRepo()
	matchRepo := newFakeMatchRepo()

	seedScorablePool(t, resumeRepo, candidateRepo, 5)

	job := &models.JobRequirement{
		ID:             uuid.New(),
		Title:          "Backend Engineer",
		RequiredSkills: []string{"go"},
		Embedding:      []float32{1, 0, 0},
	}
	require.NoError(t, jobRepo.Create(job))

	matcher := newTestMatcher(resumeRepo, candidateRepo, jobRepo, matchRepo, t)
	ingest := NewIngestService(
		resumeRepo, candidateRepo,
		&stubParser{result: &ParseResult{Success: true}},
		newTestEmbedder(t, &stubEmbeddingModel{dim: 3}),
		&stubIndex{},
		zap.NewNop(),
	)

	w := NewWorker(resumeRepo, matcher, ingest, 3, time.Minute, zap.NewNop()).(*worker)

	require.NoError(t, w.runScoreBatch(context.Background(), job.ID))

	// One score row per scorable resume, all ranked after the barrier.
	assert.Equal(t, 5, matchRepo.scoreCount())
	assert.Len(t, matchRepo.ranked, 5)
}

func TestRunScoreBatchSkipsResumesWithoutCandidate(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	candidateRepo := newFakeCandidateRepo()
	jobRepo := newFakeJobRepo()
	matchRepo := newFakeMatchRepo()

	seedScorablePool(t, resumeRepo, candidateRepo, 2)

	// Scorable resume with no candidate row behind it.
	orphan := &models.Resume{ID: uuid.New(), Status: models.ResumeStatusParsed}
	require.NoError(t, resumeRepo.Create(orphan))

	job := &models.JobRequirement{ID: uuid.New(), Title: "Engineer", Embedding: []float32{1, 0, 0}}
	require.NoError(t, jobRepo.Create(job))

	matcher := newTestMatcher(resumeRepo, candidateRepo, jobRepo, matchRepo, t)
	w := NewWorker(resumeRepo, matcher, nil, 2, time.Minute, zap.NewNop()).(*worker)

	require.NoError(t, w.runScoreBatch(context.Background(), job.ID))
	assert.Equal(t, 2, matchRepo.scoreCount())
}

func TestRunScoreBatchNoScorableResumes(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	matchRepo := newFakeMatchRepo()

	matcher := newTestMatcher(resumeRepo, newFakeCandidateRepo(), newFakeJobRepo(), matchRepo, t)
	w := NewWorker(resumeRepo, matcher, nil, 1, time.Minute, zap.NewNop()).(*worker)

	require.NoError(t, w.runScoreBatch(context.Background(), uuid.New()))
	assert.Equal(t, 0, matchRepo.scoreCount())
}

func TestWorkerEnqueueAndStop(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	candidateRepo := newFakeCandidateRepo()
	jobRepo := newFakeJobRepo()
	matchRepo := newFakeMatchRepo()

	seedScorablePool(t, resumeRepo, candidateRepo, 3)

	job := &models.JobRequirement{ID: uuid.New(), Title: "Engineer", Embedding: []float32{1, 0, 0}}
	require.NoError(t, jobRepo.Create(job))

	matcher := newTestMatcher(resumeRepo, candidateRepo, jobRepo, matchRepo, t)
	ingest := NewIngestService(
		resumeRepo, candidateRepo,
		&stubParser{result: &ParseResult{Success: true}},
		newTestEmbedder(t, &stubEmbeddingModel{dim: 3}),
		&stubIndex{},
		zap.NewNop(),
	)

	w := NewWorker(resumeRepo, matcher, ingest, 2, time.Hour, zap.NewNop())
	w.Start(context.Background())

	w.EnqueueScoreRun(job.ID)

	assert.Eventually(t, func() bool {
		return matchRepo.scoreCount() == 3
	}, 5*time.Second, 10*time.Millisecond)

	// Stop blocks until both loops exit.
	w.Stop()
}
