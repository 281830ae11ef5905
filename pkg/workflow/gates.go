package workflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/panbanda/codeforge/pkg/models"
)

// Action is the outcome of a gate.
type Action string

const (
	ActionPass  Action = "pass"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// String implements fmt.Stringer for toon serialization.
func (a Action) String() string { return string(a) }

func (a Action) weight() int {
	switch a {
	case ActionBlock:
		return 2
	case ActionWarn:
		return 1
	default:
		return 0
	}
}

// Gate names.
const (
	GateCoverage        = "coverage"
	GateComplexity      = "complexity"
	GateSecurity        = "security"
	GateMaintainability = "maintainability"
	GateOverall         = "overall_score"
	GateResponseTime    = "response_time"
)

// GateNames lists every gate in evaluation order.
var GateNames = []string{
	GateCoverage, GateComplexity, GateSecurity, GateMaintainability, GateOverall, GateResponseTime,
}

// ErrUnknownGate is returned when a gate filter names no known gate.
var ErrUnknownGate = errors.New("unknown gate")

// QualityGates are the thresholds a change must meet.
type QualityGates struct {
	CoverageMin           float64 `json:"coverage_min" toon:"coverage_min"`       // block below
	CoverageTarget        float64 `json:"coverage_target" toon:"coverage_target"` // warn below
	MaxCyclomatic         uint32  `json:"max_cyclomatic" toon:"max_cyclomatic"`
	MaxSecurityFindings   int     `json:"max_security_findings" toon:"max_security_findings"`
	MinMaintainability    float64 `json:"min_maintainability" toon:"min_maintainability"`
	MinOverallScore       float64 `json:"min_overall_score" toon:"min_overall_score"`
	MaxResponseTimeMillis int     `json:"max_response_time_ms" toon:"max_response_time_ms"`
}

// DefaultGates returns the default quality gates.
func DefaultGates() QualityGates {
	return QualityGates{
		CoverageMin:           80,
		CoverageTarget:        90,
		MaxCyclomatic:         10,
		MaxSecurityFindings:   0,
		MinMaintainability:    50,
		MinOverallScore:       70,
		MaxResponseTimeMillis: 1000,
	}
}

// GateStatus is the outcome of one gate.
type GateStatus struct {
	Name      string  `json:"name" toon:"name"`
	Status    Action  `json:"status" toon:"status"`
	Actual    float64 `json:"actual" toon:"actual"`
	Threshold float64 `json:"threshold" toon:"threshold"`
	Message   string  `json:"message" toon:"message"`
	Skipped   bool    `json:"skipped,omitempty" toon:"skipped,omitempty"`
}

// GateResult is the outcome of every gate. Status is the worst gate status.
type GateResult struct {
	Status Action       `json:"status" toon:"status"`
	Gates  []GateStatus `json:"gates" toon:"gates"`
}

// Blocked reports whether any gate blocks.
func (r *GateResult) Blocked() bool {
	return r.Status == ActionBlock
}

// Count returns the number of gates with the given status.
func (r *GateResult) Count(a Action) int {
	n := 0
	for _, g := range r.Gates {
		if g.Status == a && !g.Skipped {
			n++
		}
	}
	return n
}

// Filter keeps the named gates and recomputes the overall status. Every
// name must be one of GateNames.
func (r *GateResult) Filter(names ...string) (*GateResult, error) {
	if len(names) == 0 {
		return r, nil
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		if !slices.Contains(GateNames, n) {
			return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownGate, n, strings.Join(GateNames, ", "))
		}
		keep[n] = true
	}
	out := &GateResult{Status: ActionPass}
	for _, g := range r.Gates {
		if keep[g.Name] {
			out.add(g)
		}
	}
	return out, nil
}

func (r *GateResult) add(g GateStatus) {
	r.Gates = append(r.Gates, g)
	if g.Status.weight() > r.Status.weight() {
		r.Status = g.Status
	}
}

// Evaluate checks a summary against the gates. Coverage is optional since
// static analysis cannot measure it; a nil coverage skips that gate.
func Evaluate(g QualityGates, s models.Summary, coverage *float64) *GateResult {
	r := &GateResult{Status: ActionPass}

	if coverage == nil {
		r.add(GateStatus{
			Name:      GateCoverage,
			Status:    ActionPass,
			Threshold: g.CoverageMin,
			Message:   "no coverage data supplied",
			Skipped:   true,
		})
	} else {
		cov := *coverage
		st := GateStatus{Name: GateCoverage, Actual: cov, Threshold: g.CoverageMin}
		switch {
		case cov < g.CoverageMin:
			st.Status = ActionBlock
			st.Message = fmt.Sprintf("coverage %.1f%% is below the minimum %.1f%%", cov, g.CoverageMin)
		case cov < g.CoverageTarget:
			st.Status = ActionWarn
			st.Threshold = g.CoverageTarget
			st.Message = fmt.Sprintf("coverage %.1f%% is below the target %.1f%%", cov, g.CoverageTarget)
		default:
			st.Status = ActionPass
			st.Message = fmt.Sprintf("coverage %.1f%% meets the target", cov)
		}
		r.add(st)
	}

	st := GateStatus{Name: GateComplexity, Actual: float64(s.MaxCyclomatic), Threshold: float64(g.MaxCyclomatic), Status: ActionPass}
	if s.MaxCyclomatic > g.MaxCyclomatic {
		st.Status = ActionBlock
		st.Message = fmt.Sprintf("max cyclomatic complexity %d exceeds %d", s.MaxCyclomatic, g.MaxCyclomatic)
	} else {
		st.Message = fmt.Sprintf("max cyclomatic complexity %d", s.MaxCyclomatic)
	}
	r.add(st)

	st = GateStatus{Name: GateSecurity, Actual: float64(s.SecurityFindings), Threshold: float64(g.MaxSecurityFindings), Status: ActionPass}
	if s.SecurityFindings > g.MaxSecurityFindings {
		st.Status = ActionBlock
		st.Message = fmt.Sprintf("%d security findings, at most %d allowed", s.SecurityFindings, g.MaxSecurityFindings)
	} else {
		st.Message = fmt.Sprintf("%d security findings", s.SecurityFindings)
	}
	r.add(st)

	st = GateStatus{Name: GateMaintainability, Actual: s.AvgMaintainability, Threshold: g.MinMaintainability, Status: ActionPass}
	if s.TotalFiles > 0 && s.AvgMaintainability < g.MinMaintainability {
		st.Status = ActionWarn
		st.Message = fmt.Sprintf("average maintainability %.1f is below %.1f", s.AvgMaintainability, g.MinMaintainability)
	} else {
		st.Message = fmt.Sprintf("average maintainability %.1f", s.AvgMaintainability)
	}
	r.add(st)

	st = GateStatus{Name: GateOverall, Actual: s.OverallScore, Threshold: g.MinOverallScore, Status: ActionPass}
	if s.TotalFiles > 0 && s.OverallScore < g.MinOverallScore {
		st.Status = ActionWarn
		st.Message = fmt.Sprintf("overall score %.1f (grade %s) is below %.1f", s.OverallScore, s.Grade, g.MinOverallScore)
	} else {
		st.Message = fmt.Sprintf("overall score %.1f (grade %s)", s.OverallScore, s.Grade)
	}
	r.add(st)

	r.add(GateStatus{
		Name:      GateResponseTime,
		Status:    ActionPass,
		Threshold: float64(g.MaxResponseTimeMillis),
		Message:   "response time is not measured by static analysis",
		Skipped:   true,
	})

	return r
}
