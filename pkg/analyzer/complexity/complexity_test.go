package complexity

import (
	"context"
	"testing"

	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
)

func parse(t *testing.T, lang parser.Language, code string) *parser.ParseResult {
	t.Helper()
	p := parser.New()
	t.Cleanup(p.Close)
	result, err := p.Parse(context.Background(), []byte(code), lang, "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return result
}

func TestMeasure_Go(t *testing.T) {
	code := `package main

func simple() int { return 42 }

func withIf(x int) int {
	if x > 0 && x < 10 {
		return x
	}
	return 0
}

func nested(x, y int) int {
	for i := 0; i < x; i++ {
		if y > 0 {
			if i%2 == 0 {
				return i
			}
		}
	}
	return 0
}
`
	result := parse(t, parser.LangGo, code)
	fr := Measure(result, parser.GetFunctions(result))

	if len(fr.Functions) != 3 {
		t.Fatalf("len(Functions) = %d, want 3", len(fr.Functions))
	}

	want := []struct {
		name       string
		cyclomatic uint32
		nesting    int
	}{
		{"simple", 1, 0},
		{"withIf", 3, 1},
		{"nested", 4, 3},
	}
	for i, w := range want {
		fn := fr.Functions[i]
		if fn.Name != w.name {
			t.Errorf("Functions[%d].Name = %q, want %q", i, fn.Name, w.name)
		}
		if fn.Metrics.Cyclomatic != w.cyclomatic {
			t.Errorf("%s.Cyclomatic = %d, want %d", w.name, fn.Metrics.Cyclomatic, w.cyclomatic)
		}
		if fn.Metrics.MaxNesting != w.nesting {
			t.Errorf("%s.MaxNesting = %d, want %d", w.name, fn.Metrics.MaxNesting, w.nesting)
		}
	}

	if fr.Metrics.Cyclomatic != 6 {
		t.Errorf("file Cyclomatic = %d, want 6", fr.Metrics.Cyclomatic)
	}
	if fr.MaxCyclomatic != 4 {
		t.Errorf("MaxCyclomatic = %d, want 4", fr.MaxCyclomatic)
	}
	if fr.Functions[2].Metrics.Cognitive <= fr.Functions[1].Metrics.Cognitive {
		t.Errorf("nested cognitive (%d) should exceed withIf cognitive (%d)",
			fr.Functions[2].Metrics.Cognitive, fr.Functions[1].Metrics.Cognitive)
	}
}

func TestCountDecisionPoints_PythonBooleanChains(t *testing.T) {
	code := `def check(a, b, c, d, e):
    if a and b and c and d and e:
        return 1
    elif a or b:
        return 2
    else:
        return 3
`
	result := parse(t, parser.LangPython, code)
	got := 1 + CountDecisionPoints(result.Tree.RootNode(), result.Source, result.Language)
	if got != 8 {
		t.Errorf("cyclomatic = %d, want 8", got)
	}

	conds := ComplexConditions(result.Tree.RootNode(), result.Source, 3)
	if len(conds) != 1 {
		t.Fatalf("len(ComplexConditions) = %d, want 1", len(conds))
	}
	if conds[0].Operands != 5 {
		t.Errorf("Operands = %d, want 5", conds[0].Operands)
	}
	if conds[0].Line != 2 {
		t.Errorf("Line = %d, want 2", conds[0].Line)
	}
}

func TestComplexConditions_MixedOperators(t *testing.T) {
	code := `function ok(a, b, c, d) {
  return (a && b) || (c && d);
}
`
	result := parse(t, parser.LangJavaScript, code)
	if conds := ComplexConditions(result.Tree.RootNode(), result.Source, 3); len(conds) != 0 {
		t.Errorf("mixed operator chains should not be merged, got %+v", conds)
	}
}

func TestMaxNesting_ElseIfChain(t *testing.T) {
	code := `function grade(s) {
  if (s > 90) { return 'A'; }
  else if (s > 80) { return 'B'; }
  else if (s > 70) { return 'C'; }
  return 'F';
}
`
	result := parse(t, parser.LangJavaScript, code)
	fns := parser.GetFunctions(result)
	if len(fns) != 1 {
		t.Fatalf("len(functions) = %d, want 1", len(fns))
	}
	m := MeasureFunction(fns[0], result)
	if m.Metrics.MaxNesting != 1 {
		t.Errorf("MaxNesting = %d, want 1", m.Metrics.MaxNesting)
	}
	if m.Metrics.Cyclomatic != 4 {
		t.Errorf("Cyclomatic = %d, want 4", m.Metrics.Cyclomatic)
	}
}

func TestMaintainabilityIndex(t *testing.T) {
	tests := []struct {
		cc    uint32
		lines int
		want  float64
	}{
		{1, 0, 98},
		{10, 100, 70},
		{3, 15, 92.5},
		{60, 0, 0},
	}
	for _, tt := range tests {
		if got := MaintainabilityIndex(tt.cc, tt.lines); got != tt.want {
			t.Errorf("MaintainabilityIndex(%d, %d) = %v, want %v", tt.cc, tt.lines, got, tt.want)
		}
	}
}

func TestThresholdsLevel(t *testing.T) {
	th := DefaultThresholds()
	tests := map[uint32]models.Level{
		1:  models.LevelLow,
		5:  models.LevelLow,
		6:  models.LevelMedium,
		10: models.LevelMedium,
		11: models.LevelHigh,
	}
	for cc, want := range tests {
		if got := th.Level(cc); got != want {
			t.Errorf("Level(%d) = %v, want %v", cc, got, want)
		}
	}
}

func TestTextualFallback(t *testing.T) {
	src := []byte("if x then\n# if this is a comment\nwhile y && z do\n")
	if got := TextualCyclomatic(src); got != 4 {
		t.Errorf("TextualCyclomatic = %d, want 4", got)
	}
	if got := TextualNesting([]byte("{(())}{}")); got != 3 {
		t.Errorf("TextualNesting = %d, want 3", got)
	}
}
