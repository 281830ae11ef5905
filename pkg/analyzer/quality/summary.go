package quality

import (
	"math"
	"sort"

	"github.com/panbanda/codeforge/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Summarize aggregates per-file results. With no files every score is 100.
func Summarize(files []*models.FileAnalysis) models.Summary {
	s := models.NewSummary()
	s.TotalFiles = len(files)

	if len(files) == 0 {
		s.AvgMaintainability = 100
		s.SecurityScore = 100
		s.PerformanceScore = 100
		s.OverallScore = 100
		s.Grade = models.GradeFromScore(100)
		return s
	}

	cyclomatic := make([]float64, 0, len(files))
	maintainability := make([]float64, 0, len(files))
	security := make([]float64, 0, len(files))
	performance := make([]float64, 0, len(files))

	for _, f := range files {
		s.TotalLines += f.Metrics.TotalLines
		s.TotalFunctions += f.Metrics.Functions
		s.TotalIssues += f.FindingCount()
		s.ByLanguage[f.Language.String()]++
		s.SecurityFindings += len(f.Security.Issues)
		if f.SyntaxError != nil {
			s.SyntaxErrors++
		}
		if f.FlaggedLines != nil {
			s.FlaggedLines += f.FlaggedLines.GetCardinality()
		}

		for _, is := range f.Issues {
			s.IssuesByType[is.Type.String()]++
			s.BySeverity[is.Severity.String()]++
		}
		for _, fd := range f.Security.Issues {
			s.IssuesByType[fd.Category.String()]++
			s.BySeverity[fd.Severity.String()]++
		}
		for _, fd := range f.Performance.Issues {
			s.IssuesByType[fd.Category.String()]++
			s.BySeverity[fd.Severity.String()]++
		}

		if f.Metrics.Cyclomatic > s.MaxCyclomatic {
			s.MaxCyclomatic = f.Metrics.Cyclomatic
		}
		cyclomatic = append(cyclomatic, float64(f.Metrics.Cyclomatic))
		maintainability = append(maintainability, f.Metrics.Maintainability)
		security = append(security, f.Security.Score)
		performance = append(performance, f.Performance.Score)
	}

	sort.Float64s(cyclomatic)
	s.AvgCyclomatic = round2(stat.Mean(cyclomatic, nil))
	s.P90Cyclomatic = stat.Quantile(0.9, stat.Empirical, cyclomatic, nil)
	s.AvgMaintainability = round2(stat.Mean(maintainability, nil))
	s.SecurityScore = round2(stat.Mean(security, nil))
	s.PerformanceScore = round2(stat.Mean(performance, nil))
	s.OverallScore = round2((s.SecurityScore + s.PerformanceScore + s.AvgMaintainability) / 3)
	s.Grade = models.GradeFromScore(s.OverallScore)

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
