package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
)

// IngestService walks a resume through its lifecycle:
// uploaded → parsing → parsed/failed, then parsed → embedded as a separate
// optional step. Re-parsing happens only on explicit request; a failed
// parse is never retried automatically.
type IngestService interface {
	ParseResume(ctx context.Context, resumeID uuid.UUID) (*models.Resume, error)
	EmbedResume(ctx context.Context, resumeID uuid.UUID) (*models.Resume, error)
}

type ingestService struct {
	resumeRepo    repositories.ResumeRepository
	candidateRepo repositories.CandidateRepository
	parser        ResumeParser
	embedder      EmbeddingService
	index         SimilarityIndex
	logger        *zap.Logger
}

func NewIngestService(
	resumeRepo repositories.ResumeRepository,
	candidateRepo repositories.CandidateRepository,
	parser ResumeParser,
	embedder EmbeddingService,
	index SimilarityIndex,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		resumeRepo:    resumeRepo,
		candidateRepo: candidateRepo,
		parser:        parser,
		embedder:      embedder,
		index:         index,
		logger:        logger,
	}
}

// ParseResume runs the field extractor over the stored file and persists
// the outcome. A failed parse is a normal outcome: the row is saved with
// status failed and the error message, and no error is returned for it.
func (s *ingestService) ParseResume(ctx context.Context, resumeID uuid.UUID) (*models.Resume, error) {
	resume, err := s.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}

	if err := s.resumeRepo.UpdateStatus(resume.ID, models.ResumeStatusParsing); err != nil {
		return nil, err
	}

	result := s.parser.Parse(ctx, resume.FilePath)
	if !result.Success {
		if err := s.resumeRepo.MarkFailed(resume.ID, result.Error); err != nil {
			return nil, err
		}
		resume.Status = models.ResumeStatusFailed
		resume.ParseError = &result.Error
		s.logger.Warn("resume parse failed",
			zap.String("resume_id", resume.ID.String()),
			zap.String("error", result.Error))
		return resume, nil
	}

	resume.Status = models.ResumeStatusParsed
	resume.ParseError = nil
	resume.Name = result.Name
	resume.Email = result.Email
	resume.Phone = result.Phone
	resume.Location = result.Location
	resume.Skills = result.Skills
	resume.Experience = result.Experience
	resume.Education = result.Education
	resume.RawText = result.RawText

	if err := s.resumeRepo.UpdateParsed(resume); err != nil {
		return nil, err
	}

	if err := s.ensureCandidate(resume, result); err != nil {
		return nil, err
	}

	s.logger.Info("resume parsed",
		zap.String("resume_id", resume.ID.String()),
		zap.Int("skills", len(result.Skills)))
	return resume, nil
}

// ensureCandidate creates the candidate row backing this resume on first
// successful parse, and refreshes it on re-parse.
func (s *ingestService) ensureCandidate(resume *models.Resume, result *ParseResult) error {
	name := result.Name
	if name == "" {
		name = "Unknown"
	}

	existing, err := s.candidateRepo.FindByResumeID(resume.ID)
	if err == nil {
		existing.Name = name
		existing.Email = result.Email
		existing.Phone = result.Phone
		existing.Location = result.Location
		existing.Skills = result.Skills
		existing.NormalizedSkills = NormalizeSkills(result.Skills)
		existing.Education = educationSummary(result.Education)
		return s.candidateRepo.Update(existing)
	}

	candidate := &models.Candidate{
		ID:               uuid.New(),
		ResumeID:         resume.ID,
		Name:             name,
		Email:            result.Email,
		Phone:            result.Phone,
		Location:         result.Location,
		Skills:           result.Skills,
		NormalizedSkills: NormalizeSkills(result.Skills),
		Education:        educationSummary(result.Education),
	}
	return s.candidateRepo.Create(candidate)
}

func educationSummary(entries []models.EducationEntry) string {
	var parts []string
	for _, entry := range entries {
		switch {
		case entry.Degree != "":
			parts = append(parts, strings.TrimSpace(entry.Degree+" "+entry.Institution))
		case entry.Institution != "":
			parts = append(parts, entry.Institution)
		}
	}
	return strings.Join(parts, "; ")
}

// EmbedResume generates and stores the resume's embedding, moving status to
// embedded, and refreshes the passage index.
func (s *ingestService) EmbedResume(ctx context.Context, resumeID uuid.UUID) (*models.Resume, error) {
	resume, err := s.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}

	if resume.Status != models.ResumeStatusParsed && resume.Status != models.ResumeStatusEmbedded {
		return nil, fmt.Errorf("resume %s is not parsed (status %s)", resumeID, resume.Status)
	}

	vector := s.embedder.EmbedText(ctx, ResumeEmbeddingText(resume), true)
	if err := s.resumeRepo.UpdateEmbedding(resume.ID, vector, s.embedder.ModelName()); err != nil {
		return nil, err
	}
	resume.Embedding = vector
	resume.EmbeddingModel = s.embedder.ModelName()
	resume.Status = models.ResumeStatusEmbedded

	if s.index != nil {
		if err := s.index.IndexResume(ctx, resume.ID, resume.RawText); err != nil {
			// The index is rebuildable; a failed refresh should not fail
			// the embed step.
			s.logger.Warn("failed to refresh similarity index",
				zap.String("resume_id", resume.ID.String()),
				zap.Error(err))
		}
	}

	return resume, nil
}
