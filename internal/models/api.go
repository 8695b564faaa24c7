package models

type UploadResumeResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	ParseError   string `json:"parse_error,omitempty"`
}

type CreateJobRequest struct {
	Title                   string   `json:"title" validate:"required"`
	Company                 string   `json:"company"`
	Description             string   `json:"description" validate:"required"`
	Requirements            string   `json:"requirements"`
	RequiredSkills          []string `json:"required_skills"`
	RequiredExperienceYears *int     `json:"required_experience_years"`
	RequiredEducation       *string  `json:"required_education"`
}

type UpdateJobRequest struct {
	Title                   *string   `json:"title"`
	Company                 *string   `json:"company"`
	Description             *string   `json:"description"`
	Requirements            *string   `json:"requirements"`
	RequiredSkills          *[]string `json:"required_skills"`
	RequiredExperienceYears *int      `json:"required_experience_years"`
	RequiredEducation       *string   `json:"required_education"`
}

type ScoreMatchRequest struct {
	ResumeID string `json:"resume_id" validate:"required,uuid"`
	JobID    string `json:"job_id" validate:"required,uuid"`
}

type ScoreRunResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type RankedMatch struct {
	MatchScore
	CandidateName string `json:"candidate_name,omitempty"`
}

type SimilarResume struct {
	ResumeID string  `json:"resume_id"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet,omitempty"`
}
