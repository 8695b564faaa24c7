package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"hiresight/matching-engine/internal/models"
)

const (
	// noTextSentinel replaces raw text when a document decoded cleanly but
	// contained nothing extractable (image-only PDFs, mostly).
	noTextSentinel = "No text extracted"

	maxStoredTextLen   = 5000
	maxExperienceCount = 5
	maxEducationCount  = 3
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^\w\s\-.,@#]`)

	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Ordered: parenthesized area code first, then plain groups.
	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\((\d{3})\)\s*(\d{3})[-.\s]?(\d{4})`),
		regexp.MustCompile(`(?:\+1\s?)?(\d{3})[-.\s]?(\d{3})[-.\s]?(\d{4})`),
	}

	experienceSectionRe = regexp.MustCompile(`(?is)(?:experience|work experience|professional experience)(.*?)(?:education|skills|projects|certifications|$)`)
	educationSectionRe  = regexp.MustCompile(`(?is)(?:education|academic|university|college|degree)(.*?)(?:experience|skills|projects|certifications|$)`)

	entrySplitRe = regexp.MustCompile(`\n{2,}`)
	dateRe       = regexp.MustCompile(`(?i)(\d{4}|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[.,\s\-]*(\d{4}|present|current|ongoing)?`)
	degreeRe     = regexp.MustCompile(`(?i)\b(bachelor|master|phd|associate|diploma|graduate|bs|ba|ms|ma|mba|md|jd|btec|hnd)\b`)
	yearRe       = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)
	gpaRe        = regexp.MustCompile(`(?i)(?:gpa|cumulative|overall)[:\s]*([\d.]+)`)

	locationRe = regexp.MustCompile(`(?i)\b(?:New York|Los Angeles|San Francisco|Chicago|Austin|Seattle|Boston|Denver|Atlanta|Miami|Portland)\b`)

	skillRes = compileSkillPatterns()
)

func compileSkillPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(skillVocabulary))
	for _, skill := range skillVocabulary {
		patterns[skill] = regexp.MustCompile(`\b` + regexp.QuoteMeta(skill) + `\b`)
	}
	return patterns
}

// ParseResult is the always-returned outcome of a parse run. Callers must
// check Success; a failed parse carries the error as data, never as a
// returned error.
type ParseResult struct {
	Success        bool
	Error          string
	Name           string
	Email          string
	Phone          string
	Location       string
	Skills         []string
	Experience     []models.ExperienceEntry
	Education      []models.EducationEntry
	RawText        string
	NormalizedText string
}

type ResumeParser interface {
	Parse(ctx context.Context, filePath string) *ParseResult
}

type resumeParser struct {
	extractor DocumentExtractor
	logger    *zap.Logger
}

func NewResumeParser(extractor DocumentExtractor, logger *zap.Logger) ResumeParser {
	return &resumeParser{
		extractor: extractor,
		logger:    logger,
	}
}

// Parse extracts text and structured fields from a resume file. It never
// panics past its own boundary: the surrounding application persists a
// failed resume row from the Error field instead.
func (p *resumeParser) Parse(ctx context.Context, filePath string) (result *ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("resume parse panicked", zap.Any("cause", r))
			result = failedParse(fmt.Sprintf("parse failed: %v", r))
		}
	}()

	rawText, err := p.extractor.ExtractText(ctx, filePath)
	if err != nil {
		p.logger.Warn("text extraction failed",
			zap.String("file", filePath),
			zap.Error(err))
		return failedParse(err.Error())
	}

	if strings.TrimSpace(rawText) == "" {
		p.logger.Warn("no text extracted", zap.String("file", filePath))
		rawText = noTextSentinel
	}

	result = &ParseResult{
		Success:        true,
		Name:           extractName(rawText),
		Email:          ExtractEmail(rawText),
		Phone:          ExtractPhone(rawText),
		Location:       extractLocation(rawText),
		Skills:         ExtractSkills(rawText),
		Experience:     ExtractExperience(rawText),
		Education:      ExtractEducation(rawText),
		RawText:        truncate(rawText, maxStoredTextLen),
		NormalizedText: truncate(NormalizeText(rawText), maxStoredTextLen),
	}
	return result
}

func failedParse(msg string) *ParseResult {
	return &ParseResult{
		Success:    false,
		Error:      msg,
		Skills:     []string{},
		Experience: []models.ExperienceEntry{},
		Education:  []models.EducationEntry{},
	}
}

// NormalizeText collapses whitespace runs and strips characters outside the
// permitted set. The raw text is kept separately for storage and
// explanations; this copy only feeds comparisons.
func NormalizeText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractEmail returns the first email-shaped substring, or "".
func ExtractEmail(text string) string {
	return emailRe.FindString(text)
}

// ExtractPhone tries the digit-group patterns in order and reassembles the
// first match as ddd-ddd-dddd.
func ExtractPhone(text string) string {
	for _, re := range phoneRes {
		if match := re.FindStringSubmatch(text); match != nil {
			return fmt.Sprintf("%s-%s-%s", match[1], match[2], match[3])
		}
	}
	return ""
}

// ExtractSkills matches the closed vocabulary case-insensitively on word
// boundaries and returns a sorted, deduplicated list.
func ExtractSkills(text string) []string {
	textLower := strings.ToLower(text)

	found := make(map[string]struct{})
	for skill, re := range skillRes {
		// Cheap containment check before the boundary-anchored match.
		if !strings.Contains(textLower, skill) {
			continue
		}
		if re.MatchString(textLower) {
			found[skill] = struct{}{}
		}
	}

	skills := make([]string, 0, len(found))
	for skill := range found {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}

// ExtractExperience locates the experience section (falling back to the
// whole text), splits entries on blank lines and applies a date heuristic.
// Best effort: partial or empty results are fine. Entries keep document
// order, capped at five.
func ExtractExperience(text string) []models.ExperienceEntry {
	section := text
	if match := experienceSectionRe.FindStringSubmatch(text); match != nil {
		section = match[1]
	}

	var entries []models.ExperienceEntry
	for _, block := range entrySplitRe.Split(section, -1) {
		if len(strings.TrimSpace(block)) < 20 {
			continue
		}

		lines := nonBlankLines(block)
		if len(lines) < 2 {
			continue
		}

		entry := models.ExperienceEntry{
			Company: truncate(lines[0], 80),
			Role:    truncate(lines[1], 80),
		}
		if dates := dateRe.FindStringSubmatch(block); dates != nil {
			entry.StartDate = dates[1]
			entry.EndDate = dates[2]
		}
		if len(lines) > 2 {
			entry.Description = truncate(strings.Join(lines[2:], " "), 200)
		}

		entries = append(entries, entry)
		if len(entries) == maxExperienceCount {
			break
		}
	}
	return entries
}

// ExtractEducation mirrors ExtractExperience for the education section,
// adding degree, graduation-year and GPA heuristics. Capped at three.
func ExtractEducation(text string) []models.EducationEntry {
	section := text
	if match := educationSectionRe.FindStringSubmatch(text); match != nil {
		section = match[1]
	}

	var entries []models.EducationEntry
	for _, block := range entrySplitRe.Split(section, -1) {
		if len(strings.TrimSpace(block)) < 15 {
			continue
		}

		lines := nonBlankLines(block)
		if len(lines) == 0 {
			continue
		}

		entry := models.EducationEntry{
			Institution: truncate(lines[0], 100),
		}
		for _, line := range lines {
			if match := degreeRe.FindStringSubmatch(line); match != nil {
				entry.Degree = match[1]
				break
			}
		}
		if years := yearRe.FindAllString(block, -1); len(years) > 0 {
			entry.GraduationDate = years[len(years)-1]
		}
		if match := gpaRe.FindStringSubmatch(block); match != nil {
			entry.GPA = match[1]
		}
		if len(lines) > 1 {
			entry.Description = truncate(strings.Join(lines[1:], " "), 150)
		}

		entries = append(entries, entry)
		if len(entries) == maxEducationCount {
			break
		}
	}
	return entries
}

func extractName(text string) string {
	if lines := nonBlankLines(text); len(lines) > 0 {
		return lines[0]
	}
	return "Unknown"
}

func extractLocation(text string) string {
	return locationRe.FindString(text)
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
