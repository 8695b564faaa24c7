package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
	"hiresight/matching-engine/internal/repositories"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestNormalizeSkills(t *testing.T) {
	testCases := []struct {
		name   string
		input  []string
		expect []string
	}{
		{
			name:   "lowercases and trims",
			input:  []string{"  Python ", "AWS"},
			expect: []string{"python", "aws"},
		},
		{
			name:   "deduplicates keeping first-seen order",
			input:  []string{"Go", "python", "GO", "Python"},
			expect: []string{"go", "python"},
		},
		{
			name:   "drops empty entries",
			input:  []string{"", "  ", "sql"},
			expect: []string{"sql"},
		},
		{
			name:   "empty input",
			input:  nil,
			expect: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, NormalizeSkills(tc.input))
		})
	}
}

func TestSkillMatch(t *testing.T) {
	t.Run("case-insensitive intersection", func(t *testing.T) {
		pct, matched, missing := SkillMatch(
			[]string{"Python", "AWS"},
			[]string{"python", "sql"},
		)
		assert.Equal(t, 50.0, pct)
		assert.Equal(t, []string{"python"}, matched)
		assert.Equal(t, []string{"sql"}, missing)
	})

	t.Run("empty requirements are a full match", func(t *testing.T) {
		pct, matched, missing := SkillMatch([]string{"go", "docker"}, nil)
		assert.Equal(t, 100.0, pct)
		assert.Equal(t, []string{"go", "docker"}, matched)
		assert.Empty(t, missing)
	})

	t.Run("no candidate skills", func(t *testing.T) {
		pct, matched, missing := SkillMatch(nil, []string{"go", "sql"})
		assert.Equal(t, 0.0, pct)
		assert.Empty(t, matched)
		assert.Equal(t, []string{"go", "sql"}, missing)
	})

	t.Run("matched and missing are sorted", func(t *testing.T) {
		_, matched, missing := SkillMatch(
			[]string{"redis", "go"},
			[]string{"redis", "go", "sql", "aws"},
		)
		assert.Equal(t, []string{"go", "redis"}, matched)
		assert.Equal(t, []string{"aws", "sql"}, missing)
	})

	t.Run("duplicate required skills count once", func(t *testing.T) {
		pct, matched, _ := SkillMatch(
			[]string{"go"},
			[]string{"Go", "go", "sql"},
		)
		assert.Equal(t, 50.0, pct)
		assert.Equal(t, []string{"go"}, matched)
	})
}

func TestExperienceRelevance(t *testing.T) {
	testCases := []struct {
		name           string
		candidateYears *float64
		requiredYears  *int
		expect         float64
	}{
		{"no requirement", floatPtr(1), nil, 100.0},
		{"zero requirement", nil, intPtr(0), 100.0},
		{"requirement but unknown candidate years", nil, intPtr(5), 0.0},
		{"meets requirement exactly", floatPtr(5), intPtr(5), 100.0},
		{"exceeds requirement", floatPtr(8), intPtr(5), 100.0},
		{"partial credit", floatPtr(2), intPtr(5), 40.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ExperienceRelevance(tc.candidateYears, tc.requiredYears))
		})
	}
}

func TestEducationFit(t *testing.T) {
	testCases := []struct {
		name      string
		candidate string
		required  string
		expect    float64
	}{
		{"candidate text missing", "", "Bachelor's degree required", 50.0},
		{"required text missing", "BSc Computer Science", "", 50.0},
		{"both missing", "", "  ", 50.0},
		{"same bucket", "Bachelor of Science in CS", "bachelor degree or equivalent", 100.0},
		{"same bucket different spelling", "M.S. in Statistics", "Masters preferred", 100.0},
		{"dotted abbreviation on both sides", "B.S. Computer Science", "B.A. or equivalent", 100.0},
		{"candidate bucket undetectable", "Some college coursework", "Master's degree", 40.0},
		{"bucket mismatch", "Bachelor of Arts", "PhD required", 60.0},
		{"mismatch is direction-agnostic", "PhD in Physics", "bachelor degree", 60.0},
		{"neither bucket detectable", "Trade certification", "Relevant certification", 100.0},
		{"highest mentioned degree wins", "PhD in CS, BS in Math", "doctorate", 100.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, EducationFit(tc.candidate, tc.required))
		})
	}
}

func TestDetectDegreeBucket(t *testing.T) {
	testCases := []struct {
		text   string
		expect string
	}{
		{"M.S. in Statistics", "master"},
		{"M.A. candidate", "master"},
		{"MBA from a state school", "master"},
		{"B.S. Computer Science", "bachelor"},
		{"B.A. in History", "bachelor"},
		{"B.E. Mechanical Engineering", "bachelor"},
		{"B.Eng with honours", "bachelor"},
		{"A.S. degree", "associate"},
		{"Doctorate in Chemistry", "phd"},
		{"High school diploma", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expect, detectDegreeBucket(tc.text))
		})
	}
}

func TestOverallScore(t *testing.T) {
	t.Run("default weights", func(t *testing.T) {
		got := OverallScore(80, 50, 100, 50, DefaultScoreWeights)
		assert.InDelta(t, 72.0, got, 1e-9)
	})

	t.Run("weights normalize by their sum", func(t *testing.T) {
		weights := ScoreWeights{Semantic: 2, Skill: 2, Experience: 2, Education: 2}
		got := OverallScore(60, 80, 100, 40, weights)
		assert.InDelta(t, 70.0, got, 1e-9)
	})

	t.Run("single non-zero weight", func(t *testing.T) {
		weights := ScoreWeights{Skill: 1}
		got := OverallScore(0, 85, 0, 0, weights)
		assert.InDelta(t, 85.0, got, 1e-9)
	})

	t.Run("zero weight sum scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, OverallScore(90, 90, 90, 90, ScoreWeights{}))
	})

	t.Run("clamped to range", func(t *testing.T) {
		got := OverallScore(150, 150, 150, 150, DefaultScoreWeights)
		assert.Equal(t, 100.0, got)
	})
}

func TestBuildExplanation(t *testing.T) {
	t.Run("full picture", func(t *testing.T) {
		got := BuildExplanation(
			[]string{"go", "python"},
			[]string{"sql"},
			100, 100,
		)
		assert.Equal(t,
			"Matches 2 required skills: go, python. "+
				"Missing 1 skills: sql. "+
				"Meets or exceeds experience requirements. "+
				"Education matches requirements.",
			got)
	})

	t.Run("skill lists truncate at three", func(t *testing.T) {
		got := BuildExplanation(
			[]string{"aws", "docker", "go", "python", "sql"},
			nil,
			40, 40,
		)
		assert.Equal(t,
			"Matches 5 required skills: aws, docker, go. "+
				"Significant experience gap. "+
				"Education may not fully meet requirements.",
			got)
	})

	t.Run("deterministic", func(t *testing.T) {
		first := BuildExplanation([]string{"go"}, []string{"sql"}, 75, 60)
		second := BuildExplanation([]string{"go"}, []string{"sql"}, 75, 60)
		assert.Equal(t, first, second)
		assert.Contains(t, first, "Good experience alignment")
		assert.Contains(t, first, "Education is acceptable")
	})

	t.Run("moderate experience gap band", func(t *testing.T) {
		got := BuildExplanation(nil, nil, 50, 50)
		assert.Equal(t,
			"Moderate experience gap. Education may not fully meet requirements.",
			got)
	})
}

func TestEmbeddingTexts(t *testing.T) {
	resume := &models.Resume{
		Name:    "Ada Lovelace",
		Skills:  []string{"python", "sql"},
		RawText: "Engine programmer",
	}
	assert.Equal(t, "Ada Lovelace python sql Engine programmer", ResumeEmbeddingText(resume))

	job := &models.JobRequirement{
		Title:          "Backend Engineer",
		Description:    "Build services",
		RequiredSkills: []string{"go", "postgresql"},
	}
	assert.Equal(t, "Backend Engineer Build services go postgresql", JobEmbeddingText(job))
}

// In-memory repositories for exercising the orchestration paths without a
// database.

type fakeResumeRepo struct {
	resumes map[uuid.UUID]*models.Resume
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{resumes: make(map[uuid.UUID]*models.Resume)}
}

func (f *fakeResumeRepo) Create(resume *models.Resume) error {
	f.resumes[resume.ID] = resume
	return nil
}

func (f *fakeResumeRepo) FindByID(id uuid.UUID) (*models.Resume, error) {
	resume, ok := f.resumes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return resume, nil
}

func (f *fakeResumeRepo) UpdateStatus(id uuid.UUID, status models.ResumeStatus) error {
	if resume, ok := f.resumes[id]; ok {
		resume.Status = status
	}
	return nil
}

func (f *fakeResumeRepo) UpdateParsed(resume *models.Resume) error {
	f.resumes[resume.ID] = resume
	return nil
}

func (f *fakeResumeRepo) MarkFailed(id uuid.UUID, errorMsg string) error {
	if resume, ok := f.resumes[id]; ok {
		resume.Status = models.ResumeStatusFailed
		resume.ParseError = &errorMsg
	}
	return nil
}

func (f *fakeResumeRepo) UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error {
	if resume, ok := f.resumes[id]; ok {
		resume.Embedding = embedding
		resume.EmbeddingModel = modelName
		resume.Status = models.ResumeStatusEmbedded
	}
	return nil
}

func (f *fakeResumeRepo) FindScorable() ([]models.Resume, error) {
	var out []models.Resume
	for _, resume := range f.resumes {
		if resume.Status == models.ResumeStatusParsed || resume.Status == models.ResumeStatusEmbedded {
			out = append(out, *resume)
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) FindPendingEmbedding(limit int) ([]models.Resume, error) {
	var out []models.Resume
	for _, resume := range f.resumes {
		if resume.Status == models.ResumeStatusParsed && len(resume.Embedding) == 0 {
			out = append(out, *resume)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) Delete(id uuid.UUID) error {
	delete(f.resumes, id)
	return nil
}

type fakeCandidateRepo struct {
	byResume map[uuid.UUID]*models.Candidate
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{byResume: make(map[uuid.UUID]*models.Candidate)}
}

func (f *fakeCandidateRepo) Create(candidate *models.Candidate) error {
	f.byResume[candidate.ResumeID] = candidate
	return nil
}

func (f *fakeCandidateRepo) FindByID(id uuid.UUID) (*models.Candidate, error) {
	for _, candidate := range f.byResume {
		if candidate.ID == id {
			return candidate, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCandidateRepo) FindByResumeID(resumeID uuid.UUID) (*models.Candidate, error) {
	candidate, ok := f.byResume[resumeID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return candidate, nil
}

func (f *fakeCandidateRepo) Update(candidate *models.Candidate) error {
	f.byResume[candidate.ResumeID] = candidate
	return nil
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]*models.JobRequirement
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*models.JobRequirement)}
}

func (f *fakeJobRepo) Create(job *models.JobRequirement) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) FindByID(id uuid.UUID) (*models.JobRequirement, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobRepo) Update(job *models.JobRequirement) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) UpdateEmbedding(id uuid.UUID, embedding []float32, modelName string) error {
	if job, ok := f.jobs[id]; ok {
		job.Embedding = embedding
		job.EmbeddingModel = modelName
	}
	return nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	scores []*models.MatchScore
	ranked map[uuid.UUID][2]float64
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{ranked: make(map[uuid.UUID][2]float64)}
}

func (f *fakeMatchRepo) Create(score *models.MatchScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
	return nil
}

func (f *fakeMatchRepo) FindByJobOrdered(jobID uuid.UUID) ([]models.MatchScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.MatchScore
	for _, score := range f.scores {
		if score.JobID == jobID {
			out = append(out, *score)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OverallScore > out[j].OverallScore
	})
	return out, nil
}

func (f *fakeMatchRepo) UpdateRank(id uuid.UUID, rank int, percentile float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranked[id] = [2]float64{float64(rank), percentile}
	return nil
}

func (f *fakeMatchRepo) scoreCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scores)
}

func newTestMatcher(
	resumeRepo repositories.ResumeRepository,
	candidateRepo repositories.CandidateRepository,
	jobRepo repositories.JobRepository,
	matchRepo repositories.MatchRepository,
	t *testing.T,
) MatcherService {
	embedder := NewEmbeddingService(
		&stubEmbeddingModel{dim: 3},
		mustDiskCache(t),
		0,
		zap.NewNop(),
	)
	return NewMatcherService(
		resumeRepo, candidateRepo, jobRepo, matchRepo,
		embedder, DefaultScoreWeights, zap.NewNop(),
	)
}

func TestScoreCandidate(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	candidateRepo := newFakeCandidateRepo()
	jobRepo := newFakeJobRepo()
	matchRepo := newFakeMatchRepo()

	resume := &models.Resume{
		ID:        uuid.New(),
		Name:      "Ada Lovelace",
		Status:    models.ResumeStatusEmbedded,
		Skills:    []string{"python", "aws"},
		Embedding: []float32{1, 0, 0},
	}
	require.NoError(t, resumeRepo.Create(resume))

	job := &models.JobRequirement{
		ID:                      uuid.New(),
		Title:                   "Backend Engineer",
		RequiredSkills:          []string{"python", "sql"},
		RequiredExperienceYears: intPtr(5),
		RequiredEducation:       strPtr("Bachelor's degree"),
		Embedding:               []float32{1, 0, 0},
	}
	require.NoError(t, jobRepo.Create(job))

	require.NoError(t, candidateRepo.Create(&models.Candidate{
		ID:                uuid.New(),
		ResumeID:          resume.ID,
		Name:              "Ada Lovelace",
		NormalizedSkills:  []string{"python", "aws"},
		YearsOfExperience: floatPtr(2),
		Education:         "Bachelor of Science in CS",
	}))

	matcher := newTestMatcher(resumeRepo, candidateRepo, jobRepo, matchRepo, t)

	score, err := matcher.ScoreCandidate(context.Background(), resume.ID, job.ID)
	require.NoError(t, err)

	// Identical embeddings make the semantic sub-score 100.
	assert.Equal(t, 100.0, score.SemanticSimilarityScore)
	assert.Equal(t, 50.0, score.SkillMatchScore)
	assert.Equal(t, 40.0, score.ExperienceRelevanceScore)
	assert.Equal(t, 100.0, score.EducationFitScore)
	assert.InDelta(t, 73.0, score.OverallScore, 1e-9)

	assert.Equal(t, []string{"python"}, score.MatchedSkills)
	assert.Equal(t, []string{"sql"}, score.MissingSkills)
	assert.NotEmpty(t, score.Explanation)
	assert.Equal(t, resume.ID, score.ResumeID)
	assert.Equal(t, job.ID, score.JobID)
	assert.False(t, score.FlaggedForReview)

	assert.Equal(t, floatPtr(2), score.Reasoning.Experience.CandidateYears)
	assert.Equal(t, intPtr(5), score.Reasoning.Experience.RequiredYears)

	require.Len(t, matchRepo.scores, 1)

	t.Run("rescoring inserts a new row", func(t *testing.T) {
		_, err := matcher.ScoreCandidate(context.Background(), resume.ID, job.ID)
		require.NoError(t, err)
		assert.Len(t, matchRepo.scores, 2)
	})
}

func TestScoreCandidateMissingCandidate(t *testing.T) {
	resumeRepo := newFakeResumeRepo()
	jobRepo := newFakeJobRepo()

	resume := &models.Resume{ID: uuid.New(), Status: models.ResumeStatusParsed}
	require.NoError(t, resumeRepo.Create(resume))
	job := &models.JobRequirement{ID: uuid.New(), Title: "Engineer"}
	require.NoError(t, jobRepo.Create(job))

	matcher := newTestMatcher(resumeRepo, newFakeCandidateRepo(), jobRepo, newFakeMatchRepo(), t)

	_, err := matcher.ScoreCandidate(context.Background(), resume.ID, job.ID)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestRankCandidates(t *testing.T) {
	jobID := uuid.New()
	matchRepo := newFakeMatchRepo()

	ids := make([]uuid.UUID, 4)
	for i, overall := range []float64{62.5, 88.0, 45.0, 71.0} {
		ids[i] = uuid.New()
		require.NoError(t, matchRepo.Create(&models.MatchScore{
			ID:           ids[i],
			JobID:        jobID,
			ResumeID:     uuid.New(),
			OverallScore: overall,
		}))
	}

	matcher := newTestMatcher(newFakeResumeRepo(), newFakeCandidateRepo(), newFakeJobRepo(), matchRepo, t)

	t.Run("orders by overall score with dense ranks", func(t *testing.T) {
		ranked, err := matcher.RankCandidates(context.Background(), jobID, 0)
		require.NoError(t, err)
		require.Len(t, ranked, 4)

		assert.Equal(t, []float64{88.0, 71.0, 62.5, 45.0}, []float64{
			ranked[0].OverallScore, ranked[1].OverallScore,
			ranked[2].OverallScore, ranked[3].OverallScore,
		})
		for i, score := range ranked {
			assert.Equal(t, i+1, score.Rank)
		}
		assert.Equal(t, 75.0, ranked[0].Percentile)
		assert.Equal(t, 50.0, ranked[1].Percentile)
		assert.Equal(t, 25.0, ranked[2].Percentile)
		assert.Equal(t, 0.0, ranked[3].Percentile)
	})

	t.Run("limit bounds both the result and the writes", func(t *testing.T) {
		matchRepo.ranked = make(map[uuid.UUID][2]float64)

		ranked, err := matcher.RankCandidates(context.Background(), jobID, 2)
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, 88.0, ranked[0].OverallScore)
		assert.Len(t, matchRepo.ranked, 2)
	})

	t.Run("limit beyond total returns everything", func(t *testing.T) {
		ranked, err := matcher.RankCandidates(context.Background(), jobID, 50)
		require.NoError(t, err)
		assert.Len(t, ranked, 4)
	})

	t.Run("empty job yields empty ranking", func(t *testing.T) {
		ranked, err := matcher.RankCandidates(context.Background(), uuid.New(), 0)
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})
}
