package models

import (
	"time"

	"github.com/google/uuid"
)

type ResumeStatus string

const (
	ResumeStatusUploaded ResumeStatus = "uploaded"
	ResumeStatusParsing  ResumeStatus = "parsing"
	ResumeStatusParsed   ResumeStatus = "parsed"
	ResumeStatusFailed   ResumeStatus = "failed"
	ResumeStatusEmbedded ResumeStatus = "embedded"
)

type ExperienceEntry struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationEntry struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
	GPA            string `json:"gpa,omitempty"`
	Description    string `json:"description,omitempty"`
}

type Resume struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string            `gorm:"type:text" json:"filename"`
	OriginalFileName string            `gorm:"type:text" json:"original_filename"`
	FilePath         string            `gorm:"type:text" json:"-"`
	FileSize         int64             `json:"file_size"`
	FileType         string            `gorm:"type:text" json:"file_type"`
	Status           ResumeStatus      `gorm:"not null;default:'uploaded'" json:"status"`
	ParseError       *string           `gorm:"type:text" json:"parse_error,omitempty"`
	Name             string            `gorm:"type:text" json:"name"`
	Email            string            `gorm:"type:text" json:"email"`
	Phone            string            `gorm:"type:text" json:"phone"`
	Location         string            `gorm:"type:text" json:"location"`
	Skills           []string          `gorm:"serializer:json;type:jsonb" json:"skills"`
	Experience       []ExperienceEntry `gorm:"serializer:json;type:jsonb" json:"experience"`
	Education        []EducationEntry  `gorm:"serializer:json;type:jsonb" json:"education"`
	RawText          string            `gorm:"type:text" json:"raw_text,omitempty"`
	Embedding        []float32         `gorm:"serializer:json;type:jsonb" json:"-"`
	EmbeddingModel   string            `gorm:"type:text" json:"embedding_model,omitempty"`
	CreatedAt        time.Time         `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (r *Resume) TableName() string {
	return "resumes"
}

// HasEmbedding reports whether an embedding has been generated for this resume.
func (r *Resume) HasEmbedding() bool {
	return len(r.Embedding) > 0
}
