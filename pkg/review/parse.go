package review

import (
	"regexp"
	"strconv"
	"strings"
)

// Parsed is a free-text review bucketed into sections.
type Parsed struct {
	Overview string    `json:"overview" toon:"overview"`
	Sections []Section `json:"sections" toon:"sections"`
}

// Section returns the named section, or nil when the text had none.
func (p *Parsed) Section(name SectionName) *Section {
	for i := range p.Sections {
		if p.Sections[i].Name == name {
			return &p.Sections[i]
		}
	}
	return nil
}

// Keywords are checked in order; the first match wins.
var sectionKeywords = []struct {
	name     SectionName
	keywords []string
}{
	{SectionSecurity, []string{"security", "vulnerab", "injection"}},
	{SectionPerformance, []string{"performance", "efficien", "optimi", "speed"}},
	{SectionTesting, []string{"test", "coverage"}},
	{SectionDocumentation, []string{"document", "docstring", "comment"}},
	{SectionBestPractices, []string{"best practice", "standard", "convention", "idiom", "style"}},
	{SectionMaintainability, []string{"maintainab", "complexity", "structure", "design"}},
	{SectionImprovements, []string{"improve", "refactor", "recommend", "suggestion", "next step"}},
	{SectionCodeQuality, []string{"quality", "readab", "critical", "bug", "issue", "problem"}},
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	boldHeading     = regexp.MustCompile(`^(?:\d+[.)]\s*)?\*\*([^*]+)\*\*:?\s*(.*)$`)
	listItem        = regexp.MustCompile(`^(?:[-*+\x{2022}]|\d+[.)])\s+`)
	scoreOutOfTen   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*/\s*10\b`)
	adviceLead      = regexp.MustCompile(`(?i)^(recommend|suggest|consider|should|use|avoid|replace|add|remove)\b`)
)

// classify maps heading text to a section.
func classify(heading string) (SectionName, bool) {
	h := strings.ToLower(heading)
	for _, sk := range sectionKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(h, kw) {
				return sk.name, true
			}
		}
	}
	return "", false
}

// heading extracts heading text and any trailing inline content.
func heading(line string) (string, string, bool) {
	if m := markdownHeading.FindStringSubmatch(line); m != nil {
		return m[1], "", true
	}
	if m := boldHeading.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// ParseSections buckets a free-text markdown review into the review
// sections by heading keywords. Text before the first recognised heading,
// and under headings that match no section, goes to the overview. A
// "N/10" score in a heading or its body rates the section.
func ParseSections(markdown string) *Parsed {
	byName := make(map[SectionName]*Section)
	var overview []string
	var current *Section

	add := func(text string) {
		if text == "" {
			return
		}
		if current == nil {
			overview = append(overview, text)
			return
		}
		if !current.Rated {
			if m := scoreOutOfTen.FindStringSubmatch(text); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 10 {
					current.Score, current.Rated = v, true
					if strings.TrimSpace(scoreOutOfTen.ReplaceAllString(text, "")) == "" ||
						strings.HasPrefix(strings.ToLower(text), "score") {
						return
					}
				}
			}
		}
		if adviceLead.MatchString(text) {
			current.recommend(text)
			return
		}
		current.Findings = append(current.Findings, text)
	}

	inCode := false
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if line == "" || inCode {
			continue
		}

		if text, rest, ok := heading(line); ok {
			if name, ok := classify(text); ok {
				if byName[name] == nil {
					s := newSection(name)
					byName[name] = &s
				}
				current = byName[name]
				add(scoreText(text))
			} else {
				current = nil
			}
			add(strings.TrimSpace(rest))
			continue
		}

		add(strings.TrimSpace(listItem.ReplaceAllString(line, "")))
	}

	p := &Parsed{Overview: strings.Join(overview, " "), Sections: []Section{}}
	for _, name := range Sections {
		if s := byName[name]; s != nil {
			p.Sections = append(p.Sections, *s)
		}
	}
	return p
}

// scoreText keeps only a "N/10" rating from a heading so it rates the
// section without becoming a finding.
func scoreText(heading string) string {
	if m := scoreOutOfTen.FindString(heading); m != "" {
		return m
	}
	return ""
}
