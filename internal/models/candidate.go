package models

import (
	"time"

	"github.com/google/uuid"
)

type Candidate struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResumeID          uuid.UUID `gorm:"type:uuid;not null;index" json:"resume_id"`
	Name              string    `gorm:"type:text;not null" json:"name"`
	Email             string    `gorm:"type:text" json:"email"`
	Phone             string    `gorm:"type:text" json:"phone"`
	Location          string    `gorm:"type:text" json:"location"`
	Skills            []string  `gorm:"serializer:json;type:jsonb" json:"skills"`
	NormalizedSkills  []string  `gorm:"serializer:json;type:jsonb" json:"normalized_skills"`
	YearsOfExperience *float64  `json:"years_of_experience,omitempty"`
	Education         string    `gorm:"type:text" json:"education"`
	CreatedAt         time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`

	// Relations
	Resume Resume `gorm:"foreignKey:ResumeID" json:"-"`
}

func (c *Candidate) TableName() string {
	return "candidates"
}

// EffectiveSkills prefers the normalized skill list, falling back to the raw one.
func (c *Candidate) EffectiveSkills() []string {
	if len(c.NormalizedSkills) > 0 {
		return c.NormalizedSkills
	}
	return c.Skills
}
