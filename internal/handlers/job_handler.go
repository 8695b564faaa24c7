package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
	"hiresight/matching-engine/internal/services"
)

type JobHandler struct {
	jobRepo  repositories.JobRepository
	embedder services.EmbeddingService
	logger   *zap.Logger
}

func NewJobHandler(
	jobRepo repositories.JobRepository,
	embedder services.EmbeddingService,
	logger *zap.Logger,
) *JobHandler {
	return &JobHandler{
		jobRepo:  jobRepo,
		embedder: embedder,
		logger:   logger,
	}
}

func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Title == "" || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and description are required",
		})
	}

	job := models.JobRequirement{
		ID:                      uuid.New(),
		Title:                   req.Title,
		Company:                 req.Company,
		Description:             req.Description,
		Requirements:            req.Requirements,
		RequiredSkills:          services.NormalizeSkills(req.RequiredSkills),
		RequiredExperienceYears: req.RequiredExperienceYears,
		RequiredEducation:       req.RequiredEducation,
		CreatedAt:               time.Now(),
		UpdatedAt:               time.Now(),
	}

	if err := h.jobRepo.Create(&job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to create job: %v", err),
		})
	}

	h.embedJob(c, &job)

	return c.Status(fiber.StatusCreated).JSON(job)
}

func (h *JobHandler) HandleGetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}

	return c.JSON(job)
}

// HandleUpdate applies a partial update. The embedding is refreshed only
// when a field contributing to the embedding text changed; stale match
// scores are left in place until the next score run.
func (h *JobHandler) HandleUpdate(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}

	var req models.UpdateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	reembed := false
	if req.Title != nil && *req.Title != job.Title {
		job.Title = *req.Title
		reembed = true
	}
	if req.Company != nil {
		job.Company = *req.Company
	}
	if req.Description != nil && *req.Description != job.Description {
		job.Description = *req.Description
		reembed = true
	}
	if req.Requirements != nil {
		job.Requirements = *req.Requirements
	}
	if req.RequiredSkills != nil {
		job.RequiredSkills = services.NormalizeSkills(*req.RequiredSkills)
		reembed = true
	}
	if req.RequiredExperienceYears != nil {
		job.RequiredExperienceYears = req.RequiredExperienceYears
	}
	if req.RequiredEducation != nil {
		job.RequiredEducation = req.RequiredEducation
	}
	job.UpdatedAt = time.Now()

	if err := h.jobRepo.Update(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to update job: %v", err),
		})
	}

	if reembed {
		h.embedJob(c, job)
	}

	return c.JSON(job)
}

func (h *JobHandler) embedJob(c *fiber.Ctx, job *models.JobRequirement) {
	vector := h.embedder.EmbedText(c.Context(), services.JobEmbeddingText(job), true)
	if err := h.jobRepo.UpdateEmbedding(job.ID, vector, h.embedder.ModelName()); err != nil {
		h.logger.Warn("failed to store job embedding",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		return
	}
	job.Embedding = vector
	job.EmbeddingModel = h.embedder.ModelName()
}
