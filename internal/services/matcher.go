package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
)

// ErrNoCandidate is returned when a resume has no backing candidate record.
// Scoring such a resume is fatal and is not retried.
var ErrNoCandidate = errors.New("resume has no candidate record")

// ScoreWeights holds the relative weight of each sub-score. The matcher
// always normalizes by the weight sum, so they need not sum to 1.
type ScoreWeights struct {
	Semantic   float64
	Skill      float64
	Experience float64
	Education  float64
}

// DefaultScoreWeights mirrors the product defaults: semantic similarity
// dominates, education contributes least.
var DefaultScoreWeights = ScoreWeights{
	Semantic:   0.40,
	Skill:      0.30,
	Experience: 0.20,
	Education:  0.10,
}

type degreeBucket struct {
	name string
	re   *regexp.Regexp
}

// Degree buckets in priority order. PhD is checked first so "PhD in CS,
// BSc in Math" resolves to the highest level mentioned. Dotted
// abbreviations are matched without a trailing word boundary because
// the closing period already ends the token.
var degreeBuckets = []degreeBucket{
	{name: "phd", re: regexp.MustCompile(`(?i)\b(?:phd|doctorate)\b`)},
	{name: "master", re: regexp.MustCompile(`(?i)(?:\b(?:masters|master|ms|ma|mba)\b|\b(?:m\.s\.|m\.a\.))`)},
	{name: "bachelor", re: regexp.MustCompile(`(?i)(?:\b(?:bachelor|bs|ba|b\.eng)\b|\b(?:b\.s\.|b\.a\.|b\.e\.))`)},
	{name: "associate", re: regexp.MustCompile(`(?i)(?:\b(?:associate)\b|\ba\.s\.)`)},
}

type MatcherService interface {
	SemanticSimilarity(ctx context.Context, job *models.JobRequirement, resume *models.Resume) float64
	ScoreCandidate(ctx context.Context, resumeID, jobID uuid.UUID) (*models.MatchScore, error)
	RankCandidates(ctx context.Context, jobID uuid.UUID, limit int) ([]models.MatchScore, error)
}

type matcherService struct {
	resumeRepo    repositories.ResumeRepository
	candidateRepo repositories.CandidateRepository
	jobRepo       repositories.JobRepository
	matchRepo     repositories.MatchRepository
	embedder      EmbeddingService
	weights       ScoreWeights
	logger        *zap.Logger
}

func NewMatcherService(
	resumeRepo repositories.ResumeRepository,
	candidateRepo repositories.CandidateRepository,
	jobRepo repositories.JobRepository,
	matchRepo repositories.MatchRepository,
	embedder EmbeddingService,
	weights ScoreWeights,
	logger *zap.Logger,
) MatcherService {
	return &matcherService{
		resumeRepo:    resumeRepo,
		candidateRepo: candidateRepo,
		jobRepo:       jobRepo,
		matchRepo:     matchRepo,
		embedder:      embedder,
		weights:       weights,
		logger:        logger,
	}
}

// NormalizeSkills lower-cases, trims and deduplicates a skill list,
// preserving first-seen order.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	normalized := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		normalized = append(normalized, skill)
	}
	return normalized
}

// SkillMatch intersects the candidate's skills with the job's required
// skills, case-insensitively. An empty requirement set is a 100% match with
// every candidate skill counted as matched.
func SkillMatch(candidateSkills, requiredSkills []string) (pct float64, matched, missing []string) {
	required := NormalizeSkills(requiredSkills)
	if len(required) == 0 {
		matched = make([]string, len(candidateSkills))
		copy(matched, candidateSkills)
		return 100.0, matched, []string{}
	}

	candidateSet := make(map[string]struct{})
	for _, skill := range NormalizeSkills(candidateSkills) {
		candidateSet[skill] = struct{}{}
	}

	matched = []string{}
	missing = []string{}
	for _, skill := range required {
		if _, ok := candidateSet[skill]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)

	pct = float64(len(matched)) / float64(len(required)) * 100
	return pct, matched, missing
}

// ExperienceRelevance scores candidate years against the requirement. No
// requirement means a perfect score; a requirement with unknown candidate
// years scores zero. That strict treatment of unknowns is deliberate.
func ExperienceRelevance(candidateYears *float64, requiredYears *int) float64 {
	if requiredYears == nil || *requiredYears == 0 {
		return 100.0
	}
	if candidateYears == nil {
		return 0.0
	}
	if *candidateYears >= float64(*requiredYears) {
		return 100.0
	}
	return *candidateYears / float64(*requiredYears) * 100
}

// EducationFit compares coarse degree buckets detected in both texts. It is
// not an ordinal comparison: any bucket mismatch takes the same flat
// penalty regardless of direction.
func EducationFit(candidateEducation, requiredEducation string) float64 {
	if strings.TrimSpace(candidateEducation) == "" || strings.TrimSpace(requiredEducation) == "" {
		return 50.0
	}

	candidateBucket := detectDegreeBucket(candidateEducation)
	requiredBucket := detectDegreeBucket(requiredEducation)

	switch {
	case candidateBucket == requiredBucket:
		return 100.0
	case candidateBucket == "":
		return 40.0
	default:
		return 60.0
	}
}

func detectDegreeBucket(text string) string {
	for _, bucket := range degreeBuckets {
		if bucket.re.MatchString(text) {
			return bucket.name
		}
	}
	return ""
}

// OverallScore is the weight-normalized average of the four sub-scores,
// clamped to [0,100].
func OverallScore(semantic, skill, experience, education float64, weights ScoreWeights) float64 {
	totalWeight := weights.Semantic + weights.Skill + weights.Experience + weights.Education
	if totalWeight == 0 {
		return 0
	}

	overall := (semantic*weights.Semantic +
		skill*weights.Skill +
		experience*weights.Experience +
		education*weights.Education) / totalWeight

	return clampScore(overall)
}

func clampScore(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

// BuildExplanation composes the human-readable score summary from fixed
// sentence fragments. Same inputs always produce the same string.
func BuildExplanation(matched, missing []string, experienceScore, educationScore float64) string {
	var parts []string

	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("Matches %d required skills: %s",
			len(matched), strings.Join(headOf(matched, 3), ", ")))
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("Missing %d skills: %s",
			len(missing), strings.Join(headOf(missing, 3), ", ")))
	}

	switch {
	case experienceScore == 100:
		parts = append(parts, "Meets or exceeds experience requirements")
	case experienceScore >= 75:
		parts = append(parts, "Good experience alignment")
	case experienceScore >= 50:
		parts = append(parts, "Moderate experience gap")
	default:
		parts = append(parts, "Significant experience gap")
	}

	switch {
	case educationScore == 100:
		parts = append(parts, "Education matches requirements")
	case educationScore >= 60:
		parts = append(parts, "Education is acceptable")
	default:
		parts = append(parts, "Education may not fully meet requirements")
	}

	return strings.Join(parts, ". ") + "."
}

func headOf(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// SemanticSimilarity embeds the job and resume texts (reusing stored
// vectors when present) and scales cosine similarity to [0,100].
func (m *matcherService) SemanticSimilarity(ctx context.Context, job *models.JobRequirement, resume *models.Resume) float64 {
	resumeVector := resume.Embedding
	if !resume.HasEmbedding() {
		resumeVector = m.embedder.EmbedText(ctx, ResumeEmbeddingText(resume), true)
	}

	jobVector := job.Embedding
	if !job.HasEmbedding() {
		jobVector = m.embedder.EmbedText(ctx, JobEmbeddingText(job), true)
	}

	return m.embedder.CosineSimilarity(jobVector, resumeVector) * 100
}

// ResumeEmbeddingText is the canonical text a resume is embedded from.
func ResumeEmbeddingText(resume *models.Resume) string {
	return fmt.Sprintf("%s %s %s", resume.Name, strings.Join(resume.Skills, " "), resume.RawText)
}

// JobEmbeddingText is the canonical text a job requirement is embedded from.
func JobEmbeddingText(job *models.JobRequirement) string {
	return fmt.Sprintf("%s %s %s", job.Title, job.Description, strings.Join(job.RequiredSkills, " "))
}

// ScoreCandidate computes all four sub-scores for one (resume, job) pair
// and inserts a new MatchScore row. Each call writes an independent row, so
// many resumes can be scored against one job concurrently.
func (m *matcherService) ScoreCandidate(ctx context.Context, resumeID, jobID uuid.UUID) (*models.MatchScore, error) {
	resume, err := m.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}

	job, err := m.jobRepo.FindByID(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	candidate, err := m.candidateRepo.FindByResumeID(resumeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: resume %s", ErrNoCandidate, resumeID)
		}
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	requiredEducation := ""
	if job.RequiredEducation != nil {
		requiredEducation = *job.RequiredEducation
	}

	semanticScore := m.SemanticSimilarity(ctx, job, resume)
	skillPct, matched, missing := SkillMatch(candidate.EffectiveSkills(), job.RequiredSkills)
	experienceScore := ExperienceRelevance(candidate.YearsOfExperience, job.RequiredExperienceYears)
	educationScore := EducationFit(candidate.Education, requiredEducation)

	overall := OverallScore(semanticScore, skillPct, experienceScore, educationScore, m.weights)

	score := &models.MatchScore{
		ID:                       uuid.New(),
		ResumeID:                 resume.ID,
		JobID:                    job.ID,
		CandidateID:              candidate.ID,
		OverallScore:             overall,
		SemanticSimilarityScore:  clampScore(semanticScore),
		SkillMatchScore:          clampScore(skillPct),
		ExperienceRelevanceScore: clampScore(experienceScore),
		EducationFitScore:        clampScore(educationScore),
		MatchedSkills:            matched,
		MissingSkills:            missing,
		SkillMatchPercentage:     clampScore(skillPct),
		Explanation:              BuildExplanation(matched, missing, experienceScore, educationScore),
		Reasoning: models.MatchReasoning{
			SemanticSimilarity: semanticScore,
			SkillMatch: models.SkillMatchReasoning{
				Percentage: skillPct,
				Matched:    matched,
				Missing:    missing,
			},
			Experience: models.ExperienceReasoning{
				CandidateYears: candidate.YearsOfExperience,
				RequiredYears:  job.RequiredExperienceYears,
				Score:          experienceScore,
			},
			Education: models.EducationReasoning{
				Candidate: candidate.Education,
				Required:  requiredEducation,
				Score:     educationScore,
			},
		},
		ScoredAt: time.Now(),
	}

	if err := m.matchRepo.Create(score); err != nil {
		return nil, fmt.Errorf("failed to persist match score: %w", err)
	}

	m.logger.Info("scored candidate",
		zap.String("resume_id", resume.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Float64("overall", overall))

	return score, nil
}

// RankCandidates orders all match scores for a job by overall score
// descending and assigns dense ranks 1..N with monotonically decreasing
// percentiles. Only the first limit rows get their rank written back; rows
// past the limit keep whatever rank they had.
func (m *matcherService) RankCandidates(ctx context.Context, jobID uuid.UUID, limit int) ([]models.MatchScore, error) {
	scores, err := m.matchRepo.FindByJobOrdered(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match scores: %w", err)
	}
	if len(scores) == 0 {
		return []models.MatchScore{}, nil
	}

	total := len(scores)
	if limit <= 0 || limit > total {
		limit = total
	}

	for i := 0; i < limit; i++ {
		rank := i + 1
		percentile := float64(total-rank) / float64(total) * 100

		scores[i].Rank = rank
		scores[i].Percentile = percentile

		if err := m.matchRepo.UpdateRank(scores[i].ID, rank, percentile); err != nil {
			return nil, fmt.Errorf("failed to persist rank %d: %w", rank, err)
		}
	}

	return scores[:limit], nil
}
