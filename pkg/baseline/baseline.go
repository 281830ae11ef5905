// Package baseline records the findings of a known-good run so later runs
// report only what is new. Fingerprints ignore line numbers, so findings
// survive unrelated edits that shift code up or down.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/models"
)

// Version is the baseline file format version.
const Version = 1

// ErrVersion is returned when a baseline file has an unsupported version.
var ErrVersion = errors.New("unsupported baseline version")

// Item is one issue or heuristic finding in a file.
type Item struct {
	Path    string
	Kind    string // issue type or finding category
	Rule    string // heuristic rule ID, empty for issues
	Message string
	Text    string // whitespace-normalized source line, empty for issues
	Line    uint32
}

// Fingerprint identifies an item independent of its line number. The
// normalized line text is part of it, so a match that moves keeps its
// fingerprint while an edited line gets a new one.
func Fingerprint(it Item) string {
	d := xxhash.New()
	for _, s := range []string{it.Path, it.Kind, it.Rule, it.Message, it.Text} {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// Items lists the issues and heuristic findings of a file.
func Items(fa *models.FileAnalysis) []Item {
	path := normalize(fa.Path)
	items := make([]Item, 0, fa.FindingCount())
	for _, is := range fa.Issues {
		items = append(items, issueItem(path, is))
	}
	for _, f := range fa.Security.Issues {
		items = append(items, findingItem(path, f))
	}
	for _, f := range fa.Performance.Issues {
		items = append(items, findingItem(path, f))
	}
	return items
}

func issueItem(path string, is models.Issue) Item {
	return Item{Path: path, Kind: is.Type.String(), Message: is.Message, Line: is.Line}
}

func findingItem(path string, f models.Finding) Item {
	return Item{
		Path:    path,
		Kind:    f.Category.String(),
		Rule:    f.Rule,
		Message: f.Message,
		Text:    strings.Join(strings.Fields(f.Snippet), " "),
		Line:    f.Line,
	}
}

// Baseline counts fingerprints of accepted findings. A fingerprint may occur
// more than once when a file repeats the same finding.
type Baseline struct {
	Version      int            `json:"version"`
	Created      time.Time      `json:"created"`
	Fingerprints map[string]int `json:"fingerprints"`
}

// New builds a baseline from a project analysis.
func New(project *models.ProjectAnalysis) *Baseline {
	b := &Baseline{
		Version:      Version,
		Created:      time.Now().UTC(),
		Fingerprints: make(map[string]int),
	}
	for _, fa := range project.Files {
		for _, it := range Items(fa) {
			b.Fingerprints[Fingerprint(it)]++
		}
	}
	return b
}

// Len returns the number of accepted findings.
func (b *Baseline) Len() int {
	n := 0
	for _, c := range b.Fingerprints {
		n += c
	}
	return n
}

// Save writes a baseline of project to path.
func Save(path string, project *models.ProjectAnalysis) error {
	data, err := json.MarshalIndent(New(project), "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create baseline directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Load reads a baseline file.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, b.Version)
	}
	if b.Fingerprints == nil {
		b.Fingerprints = make(map[string]int)
	}
	return &b, nil
}

// Result is a project with baselined findings removed.
type Result struct {
	Project    *models.ProjectAnalysis
	Suppressed int
	// NewLines maps each file with new findings to the lines carrying them.
	NewLines map[string]*roaring.Bitmap
}

// Filter drops findings recorded in b. Scores are left as computed; issue
// counts and the summary reflect only the remaining findings.
func Filter(project *models.ProjectAnalysis, b *Baseline) *Result {
	remaining := make(map[string]int, len(b.Fingerprints))
	for fp, n := range b.Fingerprints {
		remaining[fp] = n
	}

	res := &Result{
		Project: &models.ProjectAnalysis{
			Files:  make([]*models.FileAnalysis, 0, len(project.Files)),
			Errors: project.Errors,
		},
		NewLines: make(map[string]*roaring.Bitmap),
	}

	for _, fa := range project.Files {
		known := func(it Item) bool {
			fp := Fingerprint(it)
			if remaining[fp] > 0 {
				remaining[fp]--
				res.Suppressed++
				return true
			}
			return false
		}

		cp := *fa
		path := normalize(fa.Path)

		cp.Issues = make([]models.Issue, 0, len(fa.Issues))
		for _, is := range fa.Issues {
			if !known(issueItem(path, is)) {
				cp.Issues = append(cp.Issues, is)
			}
		}
		cp.Security.Issues = keepFindings(fa.Security.Issues, path, known)
		cp.Performance.Issues = keepFindings(fa.Performance.Issues, path, known)
		cp.MarkFlagged()

		if !cp.FlaggedLines.IsEmpty() {
			res.NewLines[fa.Path] = cp.FlaggedLines
		}
		res.Project.Files = append(res.Project.Files, &cp)
	}

	res.Project.Summary = quality.Summarize(res.Project.Files)
	return res
}

func keepFindings(in []models.Finding, path string, known func(Item) bool) []models.Finding {
	out := make([]models.Finding, 0, len(in))
	for _, f := range in {
		if !known(findingItem(path, f)) {
			out = append(out, f)
		}
	}
	return out
}

// NewFiles returns the files with new findings, sorted.
func (r *Result) NewFiles() []string {
	files := make([]string, 0, len(r.NewLines))
	for f := range r.NewLines {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// normalize makes absolute paths relative to the working directory so
// baselines are portable between checkouts.
func normalize(path string) string {
	if filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
	}
	return filepath.ToSlash(path)
}
