package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
	"hiresight/matching-engine/internal/services"
)

type MatchHandler struct {
	matcher    services.MatcherService
	worker     services.Worker
	jobRepo    repositories.JobRepository
	resumeRepo repositories.ResumeRepository
}

func NewMatchHandler(
	matcher services.MatcherService,
	worker services.Worker,
	jobRepo repositories.JobRepository,
	resumeRepo repositories.ResumeRepository,
) *MatchHandler {
	return &MatchHandler{
		matcher:    matcher,
		worker:     worker,
		jobRepo:    jobRepo,
		resumeRepo: resumeRepo,
	}
}

// HandleScoreMatch scores a single resume against a single job synchronously
// and returns the stored match row.
func (h *MatchHandler) HandleScoreMatch(c *fiber.Ctx) error {
	var req models.ScoreMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	resumeID, err := uuid.Parse(req.ResumeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume_id format",
		})
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job_id format",
		})
	}

	score, err := h.matcher.ScoreCandidate(c.Context(), resumeID, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, services.ErrNoCandidate) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to score match: %v", err),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(score)
}

// HandleScoreRun enqueues a scoring run over every scorable resume for the
// job. The run executes on the worker; 202 means accepted, not finished.
func (h *MatchHandler) HandleScoreRun(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID format",
		})
	}

	if _, err := h.jobRepo.FindByID(jobID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}

	h.worker.EnqueueScoreRun(jobID)

	return c.Status(fiber.StatusAccepted).JSON(models.ScoreRunResponse{
		JobID:  jobID.String(),
		Status: "queued",
	})
}

// HandleRanking recomputes ranks and percentiles over the job's current
// match rows and returns the top slice.
func (h *MatchHandler) HandleRanking(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID format",
		})
	}

	if _, err := h.jobRepo.FindByID(jobID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a non-negative integer",
			})
		}
	}

	scores, err := h.matcher.RankCandidates(c.Context(), jobID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to rank candidates: %v", err),
		})
	}

	ranked := make([]models.RankedMatch, 0, len(scores))
	for _, score := range scores {
		entry := models.RankedMatch{MatchScore: score}
		if resume, err := h.resumeRepo.FindByID(score.ResumeID); err == nil {
			entry.CandidateName = resume.Name
		}
		ranked = append(ranked, entry)
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID.String(),
		"total":   len(ranked),
		"results": ranked,
	})
}
