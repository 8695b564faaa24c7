package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hiresight/matching-engine/internal/models"
)

type MatchRepository interface {
	Create(score *models.MatchScore) error
	FindByJobOrdered(jobID uuid.UUID) ([]models.MatchScore, error)
	UpdateRank(id uuid.UUID, rank int, percentile float64) error
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

// Create always inserts a new row; score history is retained rather than
// superseded.
func (r *matchRepository) Create(score *models.MatchScore) error {
	if err := r.db.Create(score).Error; err != nil {
		return fmt.Errorf("failed to create match score: %w", err)
	}
	return nil
}

func (r *matchRepository) FindByJobOrdered(jobID uuid.UUID) ([]models.MatchScore, error) {
	var scores []models.MatchScore
	err := r.db.
		Where("job_id = ?", jobID).
		Order("overall_score DESC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find match scores: %w", err)
	}
	return scores, nil
}

func (r *matchRepository) UpdateRank(id uuid.UUID, rank int, percentile float64) error {
	result := r.db.Model(&models.MatchScore{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rank":       rank,
			"percentile": percentile,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update rank: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match score %s: %w", id, ErrNotFound)
	}
	return nil
}
