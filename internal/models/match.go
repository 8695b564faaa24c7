package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchReasoning mirrors the four sub-scores with the raw inputs that produced
// them, so every persisted score carries an auditable trail next to the
// queryable scalar columns.
type MatchReasoning struct {
	SemanticSimilarity float64             `json:"semantic_similarity"`
	SkillMatch         SkillMatchReasoning `json:"skill_match"`
	Experience         ExperienceReasoning `json:"experience"`
	Education          EducationReasoning  `json:"education"`
}

type SkillMatchReasoning struct {
	Percentage float64  `json:"percentage"`
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
}

type ExperienceReasoning struct {
	CandidateYears *float64 `json:"candidate_years"`
	RequiredYears  *int     `json:"required_years"`
	Score          float64  `json:"score"`
}

type EducationReasoning struct {
	Candidate string  `json:"candidate"`
	Required  string  `json:"required"`
	Score     float64 `json:"score"`
}

type MatchScore struct {
	ID                       uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResumeID                 uuid.UUID      `gorm:"type:uuid;not null;index" json:"resume_id"`
	JobID                    uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_id"`
	CandidateID              uuid.UUID      `gorm:"type:uuid;not null" json:"candidate_id"`
	OverallScore             float64        `json:"overall_score"`
	SemanticSimilarityScore  float64        `json:"semantic_similarity_score"`
	SkillMatchScore          float64        `json:"skill_match_score"`
	ExperienceRelevanceScore float64        `json:"experience_relevance_score"`
	EducationFitScore        float64        `json:"education_fit_score"`
	MatchedSkills            []string       `gorm:"serializer:json;type:jsonb" json:"matched_skills"`
	MissingSkills            []string       `gorm:"serializer:json;type:jsonb" json:"missing_skills"`
	SkillMatchPercentage     float64        `json:"skill_match_percentage"`
	Explanation              string         `gorm:"type:text" json:"explanation"`
	Reasoning                MatchReasoning `gorm:"serializer:json;type:jsonb" json:"reasoning"`
	Rank                     int            `json:"rank"`
	Percentile               float64        `json:"percentile"`
	FlaggedForReview         bool           `gorm:"default:false" json:"flagged_for_review"`
	ScoredAt                 time.Time      `gorm:"type:timestamp;default:now()" json:"scored_at"`
}

func (m *MatchScore) TableName() string {
	return "match_scores"
}
