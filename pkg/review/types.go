package review

import (
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
)

// SectionName identifies one review section.
type SectionName string

const (
	SectionCodeQuality     SectionName = "code_quality"
	SectionSecurity        SectionName = "security"
	SectionPerformance     SectionName = "performance"
	SectionBestPractices   SectionName = "best_practices"
	SectionMaintainability SectionName = "maintainability"
	SectionTesting         SectionName = "testing"
	SectionDocumentation   SectionName = "documentation"
	SectionImprovements    SectionName = "improvements"
)

// String implements fmt.Stringer for toon serialization.
func (s SectionName) String() string { return string(s) }

// Sections lists the review sections in report order.
var Sections = []SectionName{
	SectionCodeQuality,
	SectionSecurity,
	SectionPerformance,
	SectionBestPractices,
	SectionMaintainability,
	SectionTesting,
	SectionDocumentation,
	SectionImprovements,
}

var sectionTitles = map[SectionName]string{
	SectionCodeQuality:     "Code Quality",
	SectionSecurity:        "Security",
	SectionPerformance:     "Performance",
	SectionBestPractices:   "Best Practices",
	SectionMaintainability: "Maintainability",
	SectionTesting:         "Testing",
	SectionDocumentation:   "Documentation",
	SectionImprovements:    "Improvements",
}

// Title returns the display title.
func (s SectionName) Title() string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// Section is one part of a review. Score runs from 0 to 10.
type Section struct {
	Name            SectionName `json:"name" toon:"name"`
	Title           string      `json:"title" toon:"title"`
	Score           float64     `json:"score" toon:"score"`
	Rated           bool        `json:"rated" toon:"rated"`
	Findings        []string    `json:"findings" toon:"findings"`
	Recommendations []string    `json:"recommendations" toon:"recommendations"`
}

func newSection(name SectionName) Section {
	return Section{
		Name:            name,
		Title:           name.Title(),
		Findings:        []string{},
		Recommendations: []string{},
	}
}

func (s *Section) recommend(r string) {
	if r == "" {
		return
	}
	for _, existing := range s.Recommendations {
		if existing == r {
			return
		}
	}
	s.Recommendations = append(s.Recommendations, r)
}

// Improvement is one prioritised change.
type Improvement struct {
	Line     uint32          `json:"line" toon:"line"`
	Severity models.Severity `json:"severity" toon:"severity"`
	Kind     string          `json:"kind" toon:"kind"`
	Message  string          `json:"message" toon:"message"`
}

// Summary condenses a review.
type Summary struct {
	Score      float64        `json:"score" toon:"score"` // 0..10
	Grade      models.Grade   `json:"grade" toon:"grade"`
	BySeverity map[string]int `json:"by_severity" toon:"by_severity"`
	Verdict    string         `json:"verdict" toon:"verdict"`
}

// Report is a complete review of one file.
type Report struct {
	File         string          `json:"file" toon:"file"`
	Language     parser.Language `json:"language" toon:"language"`
	Summary      Summary         `json:"summary" toon:"summary"`
	Sections     []Section       `json:"sections" toon:"sections"`
	Improvements []Improvement   `json:"improvements" toon:"improvements"`
}

// Section returns the named section, or nil.
func (r *Report) Section(name SectionName) *Section {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i]
		}
	}
	return nil
}
