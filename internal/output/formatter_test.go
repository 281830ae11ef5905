package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	data := struct {
		Name  string `json:"name" toon:"name"`
		Score int    `json:"score" toon:"score"`
	}{"a.py", 90}

	out, err := Marshal(data, FormatJSON)
	if err != nil {
		t.Fatalf("Marshal(json) error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("JSON output does not decode: %v", err)
	}
	if decoded["name"] != "a.py" {
		t.Errorf("name = %v", decoded["name"])
	}

	out, err = Marshal(data, FormatTOON)
	if err != nil {
		t.Fatalf("Marshal(toon) error: %v", err)
	}
	if !strings.Contains(string(out), "name: a.py") || !strings.Contains(string(out), "score: 90") {
		t.Errorf("unexpected TOON output:\n%s", out)
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.txt")

	f, err := NewFormatter(FormatText, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.Colored() {
		t.Error("file output should not be colored")
	}
	if f.Format() != FormatText {
		t.Errorf("Format() = %q", f.Format())
	}
	f.Info("hello %s", "file")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(content) != "hello file\n" {
		t.Errorf("content = %q", content)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false); err == nil {
		t.Error("NewFormatter() should fail for an invalid path")
	}
}

func TestNewWriterFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatJSON, &buf, false)
	if f.Writer() != &buf {
		t.Error("Writer() should return the given writer")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() on a writer formatter: %v", err)
	}
}

func TestTableRenderText(t *testing.T) {
	table := NewTable(
		"Files",
		[]string{"File", "Score"},
		[][]string{{"a.py", "90"}, {"b.go", "75"}},
		[]string{"Average", "82.5"},
		nil,
	)

	var buf bytes.Buffer
	if err := table.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Files", "=====", "FILE", "SCORE", "a.py", "75", "82.5"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, buf.String())
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Issues", []string{"Line", "Message"}, [][]string{{"3", "a | b"}}, nil, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## Issues\n\n| Line | Message |\n| --- | --- |\n| 3 | a \\| b |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	table := NewTable("", []string{"A", "B"}, [][]string{{"1", "2"}, {"3"}}, nil, nil)
	rows, ok := table.RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData() type = %T", table.RenderData())
	}
	if len(rows) != 2 || rows[0]["B"] != "2" || rows[1]["A"] != "3" {
		t.Errorf("RenderData() = %v", rows)
	}
	if _, ok := rows[1]["B"]; ok {
		t.Error("short rows should not produce empty cells")
	}

	withData := NewTable("", nil, nil, nil, map[string]int{"n": 1})
	if _, ok := withData.RenderData().(map[string]int); !ok {
		t.Error("RenderData() should prefer Data")
	}
}

func TestSectionRender(t *testing.T) {
	s := &Section{
		Title:   "Security",
		Content: "Score 80/100",
		Bullets: []string{"eval on line 3"},
		Sections: []Section{
			{Title: "Recommendations", Bullets: []string{"Avoid eval"}},
		},
	}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Security\n========", "Score 80/100", "  - eval on line 3", "Recommendations\n---------------", "  - Avoid eval"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("RenderText() missing %q in:\n%s", want, text.String())
		}
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	for _, want := range []string{"## Security", "- eval on line 3", "### Recommendations", "- Avoid eval"} {
		if !strings.Contains(md.String(), want) {
			t.Errorf("RenderMarkdown() missing %q in:\n%s", want, md.String())
		}
	}

	if s.RenderData() != s {
		t.Error("RenderData() without Data should return the section")
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "Review",
		Sections: []Renderable{
			&Section{Title: "One", Content: "first"},
			NewTable("Two", []string{"K"}, [][]string{{"v"}}, nil, nil),
		},
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.HasPrefix(md.String(), "# Review\n\n## One") {
		t.Errorf("RenderMarkdown() =\n%s", md.String())
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() type = %T", r.RenderData())
	}
	if parts := data["sections"].([]any); len(parts) != 2 {
		t.Errorf("sections = %d, want 2", len(parts))
	}

	var text bytes.Buffer
	if err := r.RenderText(&text, true); err != nil {
		t.Fatalf("RenderText(colored) error: %v", err)
	}
	if !strings.Contains(text.String(), "Review") || !strings.Contains(text.String(), "first") {
		t.Errorf("RenderText() =\n%s", text.String())
	}
}

func TestFormatterOutput(t *testing.T) {
	section := &Section{Title: "T", Content: "C", Data: map[string]string{"key": "value"}}

	tests := []struct {
		format Format
		data   any
		want   string
	}{
		{FormatText, section, "C"},
		{FormatMarkdown, section, "## T"},
		{FormatJSON, section, `"key": "value"`},
		{FormatTOON, section, "key: value"},
		{FormatJSON, map[string]int{"count": 42}, `"count": 42`},
		{FormatMarkdown, map[string]int{"count": 42}, "```json"},
		{FormatTOON, map[string]int{"count": 42}, "count: 42"},
		{FormatText, map[string]int{"count": 42}, `"count": 42`},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			f := NewWriterFormatter(tt.format, &buf, false)
			if err := f.Output(tt.data); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Output() missing %q in:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestFormatterMessages(t *testing.T) {
	tests := []struct {
		name   string
		method func(*Formatter, string, ...any)
		want   string
	}{
		{"success", (*Formatter).Success, "done 3\n"},
		{"warning", (*Formatter).Warning, "WARNING: done 3\n"},
		{"error", (*Formatter).Error, "ERROR: done 3\n"},
		{"info", (*Formatter).Info, "done 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.method(NewWriterFormatter(FormatText, &buf, false), "done %d", 3)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSeverityColor(t *testing.T) {
	for _, sev := range []string{"critical", "high", "block", "medium", "warn", "low", "pass", "A", "F", "unknown", ""} {
		if !strings.Contains(SeverityColor(sev, "text"), "text") {
			t.Errorf("SeverityColor(%q) lost the text", sev)
		}
	}
}
