package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hiresight/matching-engine/internal/models"
)

type JobRepository interface {
	Create(job *models.JobRequirement) error
	FindByID(id uuid.UUID) (*models.JobRequirement, error)
	Update(job *models.JobRequirement) error
	UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.JobRequirement) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job requirement: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.JobRequirement, error) {
	var job models.JobRequirement
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) Update(job *models.JobRequirement) error {
	job.UpdatedAt = time.Now()
	if err := r.db.Save(job).Error; err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (r *jobRepository) UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error {
	updates := models.JobRequirement{
		Embedding:      embedding,
		EmbeddingModel: modelName,
		UpdatedAt:      time.Now(),
	}
	result := r.db.Model(&models.JobRequirement{}).
		Where("id = ?", id).
		Select("embedding", "embedding_model", "updated_at").
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update job embedding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}
