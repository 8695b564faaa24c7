package models

import (
	"time"

	"github.com/google/uuid"
)

type JobRequirement struct {
	ID                      uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title                   string    `gorm:"type:text;not null" json:"title"`
	Company                 string    `gorm:"type:text" json:"company"`
	Description             string    `gorm:"type:text" json:"description"`
	Requirements            string    `gorm:"type:text" json:"requirements"`
	RequiredSkills          []string  `gorm:"serializer:json;type:jsonb" json:"required_skills"`
	RequiredExperienceYears *int      `json:"required_experience_years,omitempty"`
	RequiredEducation       *string   `gorm:"type:text" json:"required_education,omitempty"`
	Embedding               []float32 `gorm:"serializer:json;type:jsonb" json:"-"`
	EmbeddingModel          string    `gorm:"type:text" json:"embedding_model,omitempty"`
	CreatedAt               time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt               time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (j *JobRequirement) TableName() string {
	return "job_requirements"
}

// HasEmbedding reports whether an embedding has been generated for this job.
func (j *JobRequirement) HasEmbedding() bool {
	return len(j.Embedding) > 0
}
