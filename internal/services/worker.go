package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hiresight/matching-engine/internal/repositories"
)

// Worker runs score batches in the background and keeps embeddings fresh.
// A score run fans every scorable resume out over a bounded pool; ranking
// only starts once all individual scores for the job have landed.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueScoreRun(jobID uuid.UUID)
}

type worker struct {
	resumeRepo  repositories.ResumeRepository
	matcher     MatcherService
	ingest      IngestService
	runQueue    chan uuid.UUID
	concurrency int
	pollEvery   time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

func NewWorker(
	resumeRepo repositories.ResumeRepository,
	matcher MatcherService,
	ingest IngestService,
	concurrency int,
	pollEvery time.Duration,
	logger *zap.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollEvery <= 0 {
		pollEvery = 10 * time.Second
	}
	return &worker{
		resumeRepo:  resumeRepo,
		matcher:     matcher,
		ingest:      ingest,
		runQueue:    make(chan uuid.UUID, 100),
		concurrency: concurrency,
		pollEvery:   pollEvery,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting worker", zap.Int("concurrency", w.concurrency))

	w.wg.Add(1)
	go w.processScoreRuns(ctx)

	w.wg.Add(1)
	go w.pollPendingEmbeddings(ctx)
}

func (w *worker) Stop() {
	w.logger.Info("stopping worker")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *worker) EnqueueScoreRun(jobID uuid.UUID) {
	select {
	case w.runQueue <- jobID:
		w.logger.Info("score run enqueued", zap.String("job_id", jobID.String()))
	case <-w.stopChan:
		w.logger.Warn("worker stopped, dropping score run", zap.String("job_id", jobID.String()))
	}
}

func (w *worker) processScoreRuns(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case jobID := <-w.runQueue:
			if err := w.runScoreBatch(ctx, jobID); err != nil {
				w.logger.Error("score run failed",
					zap.String("job_id", jobID.String()),
					zap.Error(err))
			}
		}
	}
}

// runScoreBatch scores every scorable resume against the job, then ranks.
// Scoring is embarrassingly parallel across resumes: each call writes its
// own row. The errgroup wait is the barrier before ranking.
func (w *worker) runScoreBatch(ctx context.Context, jobID uuid.UUID) error {
	resumes, err := w.resumeRepo.FindScorable()
	if err != nil {
		return err
	}
	if len(resumes) == 0 {
		w.logger.Info("no scorable resumes for run", zap.String("job_id", jobID.String()))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, resume := range resumes {
		resumeID := resume.ID
		g.Go(func() error {
			if _, err := w.matcher.ScoreCandidate(gctx, resumeID, jobID); err != nil {
				// A resume without a candidate row is a data fault for that
				// resume, not for the whole run.
				w.logger.Error("failed to score resume",
					zap.String("resume_id", resumeID.String()),
					zap.String("job_id", jobID.String()),
					zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	ranked, err := w.matcher.RankCandidates(ctx, jobID, len(resumes))
	if err != nil {
		return err
	}

	w.logger.Info("score run completed",
		zap.String("job_id", jobID.String()),
		zap.Int("ranked", len(ranked)))
	return nil
}

// pollPendingEmbeddings moves parsed resumes to embedded in the background
// so uploads do not wait on the embedding model.
func (w *worker) pollPendingEmbeddings(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.resumeRepo.FindPendingEmbedding(10)
			if err != nil {
				w.logger.Warn("failed to fetch resumes pending embedding", zap.Error(err))
				continue
			}

			for _, resume := range pending {
				if _, err := w.ingest.EmbedResume(ctx, resume.ID); err != nil {
					w.logger.Warn("failed to embed resume",
						zap.String("resume_id", resume.ID.String()),
						zap.Error(err))
				}
			}
		}
	}
}
