package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hiresight/matching-engine/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type ResumeRepository interface {
	Create(resume *models.Resume) error
	FindByID(id uuid.UUID) (*models.Resume, error)
	UpdateStatus(id uuid.UUID, status models.ResumeStatus) error
	UpdateParsed(resume *models.Resume) error
	MarkFailed(id uuid.UUID, errorMsg string) error
	UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error
	FindScorable() ([]models.Resume, error)
	FindPendingEmbedding(limit int) ([]models.Resume, error)
	Delete(id uuid.UUID) error
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

func (r *resumeRepository) Create(resume *models.Resume) error {
	if err := r.db.Create(resume).Error; err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

func (r *resumeRepository) FindByID(id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.Where("id = ?", id).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}
	return &resume, nil
}

func (r *resumeRepository) UpdateStatus(id uuid.UUID, status models.ResumeStatus) error {
	result := r.db.Model(&models.Resume{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update resume status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateParsed persists the outcome of a parse run: extracted fields, raw
// text, status and error message in one update.
func (r *resumeRepository) UpdateParsed(resume *models.Resume) error {
	resume.UpdatedAt = time.Now()
	result := r.db.Model(&models.Resume{}).
		Where("id = ?", resume.ID).
		Select("status", "parse_error", "name", "email", "phone", "location",
			"skills", "experience", "education", "raw_text", "updated_at").
		Updates(resume)
	if result.Error != nil {
		return fmt.Errorf("failed to update parsed resume: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", resume.ID, ErrNotFound)
	}
	return nil
}

func (r *resumeRepository) MarkFailed(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.Resume{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.ResumeStatusFailed,
			"parse_error": errorMsg,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark resume failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *resumeRepository) UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error {
	updates := models.Resume{
		Embedding:      embedding,
		EmbeddingModel: modelName,
		Status:         models.ResumeStatusEmbedded,
		UpdatedAt:      time.Now(),
	}
	result := r.db.Model(&models.Resume{}).
		Where("id = ?", id).
		Select("embedding", "embedding_model", "status", "updated_at").
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update resume embedding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return nil
}

// FindScorable returns resumes that have been parsed successfully, with or
// without an embedding.
func (r *resumeRepository) FindScorable() ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.
		Where("status IN ?", []models.ResumeStatus{models.ResumeStatusParsed, models.ResumeStatusEmbedded}).
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find scorable resumes: %w", err)
	}
	return resumes, nil
}

func (r *resumeRepository) FindPendingEmbedding(limit int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.
		Where("status = ?", models.ResumeStatusParsed).
		Order("updated_at ASC").
		Limit(limit).
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find resumes pending embedding: %w", err)
	}
	return resumes, nil
}

// Delete removes the resume together with its candidate and match rows.
func (r *resumeRepository) Delete(id uuid.UUID) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", id).Delete(&models.MatchScore{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resume_id = ?", id).Delete(&models.Candidate{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Resume{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	return nil
}
