package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
	"hiresight/matching-engine/internal/services"
)

type ResumeHandler struct {
	resumeRepo     repositories.ResumeRepository
	storageService services.StorageService
	ingestService  services.IngestService
	embedder       services.EmbeddingService
	index          services.SimilarityIndex
	maxFileSize    int64
}

func NewResumeHandler(
	resumeRepo repositories.ResumeRepository,
	storageService services.StorageService,
	ingestService services.IngestService,
	embedder services.EmbeddingService,
	index services.SimilarityIndex,
	maxFileSize int64,
) *ResumeHandler {
	return &ResumeHandler{
		resumeRepo:     resumeRepo,
		storageService: storageService,
		ingestService:  ingestService,
		embedder:       embedder,
		index:          index,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload accepts a multipart "resume" file, stores it and parses it
// synchronously. A parse failure still yields 201: the row is persisted
// with status failed and the error message for the caller to inspect.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'resume' file field",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	filename, filePath, err := h.storageService.SaveFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save file: %v", err),
		})
	}

	resume := models.Resume{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FilePath:         filePath,
		FileSize:         file.Size,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), "."),
		Status:           models.ResumeStatusUploaded,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.resumeRepo.Create(&resume); err != nil {
		h.storageService.DeleteFile(filename)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save resume record: %v", err),
		})
	}

	parsed, err := h.ingestService.ParseResume(c.Context(), resume.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to parse resume: %v", err),
		})
	}

	response := models.UploadResumeResponse{
		ID:           parsed.ID.String(),
		Filename:     parsed.Filename,
		OriginalName: parsed.OriginalFileName,
		Status:       string(parsed.Status),
	}
	if parsed.ParseError != nil {
		response.ParseError = *parsed.ParseError
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *ResumeHandler) HandleGetResume(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID format",
		})
	}

	resume, err := h.resumeRepo.FindByID(resumeID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "resume not found",
		})
	}

	return c.JSON(resume)
}

// HandleDelete removes the resume row, its candidate and match rows, the
// stored file and its passages in the similarity index.
func (h *ResumeHandler) HandleDelete(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID format",
		})
	}

	resume, err := h.resumeRepo.FindByID(resumeID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "resume not found",
		})
	}

	if err := h.resumeRepo.Delete(resumeID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to delete resume: %v", err),
		})
	}

	h.storageService.DeleteFile(resume.Filename)
	if h.index != nil {
		h.index.RemoveResume(c.Context(), resumeID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReparse re-runs the parser on explicit request. There is no
// automatic retry for failed parses.
func (h *ResumeHandler) HandleReparse(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID format",
		})
	}

	parsed, err := h.ingestService.ParseResume(c.Context(), resumeID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to parse resume: %v", err),
		})
	}

	return c.JSON(parsed)
}

func (h *ResumeHandler) HandleEmbed(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID format",
		})
	}

	resume, err := h.ingestService.EmbedResume(c.Context(), resumeID)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to embed resume: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"id":              resume.ID.String(),
		"status":          string(resume.Status),
		"embedding_model": resume.EmbeddingModel,
	})
}

// HandleSimilar returns resumes whose passages read most like this one.
func (h *ResumeHandler) HandleSimilar(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID format",
		})
	}

	topK, err := strconv.Atoi(c.Query("top_k", "5"))
	if err != nil || topK < 1 {
		topK = 5
	}

	resume, err := h.resumeRepo.FindByID(resumeID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "resume not found",
		})
	}

	queryVector := resume.Embedding
	if !resume.HasEmbedding() {
		queryVector = h.embedder.EmbedText(c.Context(), services.ResumeEmbeddingText(resume), true)
	}

	hits, err := h.index.SearchSimilar(c.Context(), queryVector, topK)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("similarity search failed: %v", err),
		})
	}

	results := make([]models.SimilarResume, 0, len(hits))
	for _, hit := range hits {
		if hit.ResumeID == resumeID.String() {
			continue
		}
		results = append(results, models.SimilarResume{
			ResumeID: hit.ResumeID,
			Score:    hit.Score,
			Snippet:  hit.Snippet,
		})
	}

	return c.JSON(fiber.Map{
		"resume_id": resumeID.String(),
		"similar":   results,
	})
}
