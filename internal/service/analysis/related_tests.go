package analysis

import (
	"os"
	"path/filepath"
	"strings"
)

// RelatedTestFile returns the first existing test file that follows the
// naming convention of sourcePath's language, or "" when there is none or
// sourcePath is itself a test. exists reports whether a path exists; nil
// checks the local filesystem.
func RelatedTestFile(sourcePath string, exists func(string) bool) string {
	if IsTestFile(sourcePath) {
		return ""
	}
	if exists == nil {
		exists = fileExists
	}

	for _, candidate := range testCandidates(sourcePath) {
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}

func testCandidates(sourcePath string) []string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	var patterns []string
	switch ext {
	case ".go":
		patterns = append(patterns, filepath.Join(dir, name+"_test.go"))

	case ".py":
		patterns = append(patterns,
			filepath.Join(dir, "test_"+name+".py"),
			filepath.Join(dir, name+"_test.py"),
			filepath.Join(dir, "tests", "test_"+name+".py"),
			filepath.Join("tests", "test_"+name+".py"),
		)

	case ".ts", ".tsx", ".js", ".jsx", ".mjs":
		patterns = append(patterns,
			filepath.Join(dir, name+".test"+ext),
			filepath.Join(dir, name+".spec"+ext),
			filepath.Join(dir, "__tests__", name+".test"+ext),
		)

	case ".java":
		patterns = append(patterns, filepath.Join(dir, name+"Test.java"))
		if strings.Contains(dir, "src/main/java") {
			testDir := strings.Replace(dir, "src/main/java", "src/test/java", 1)
			patterns = append(patterns, filepath.Join(testDir, name+"Test.java"))
		}

	case ".rs":
		patterns = append(patterns,
			filepath.Join(dir, name+"_test.rs"),
			filepath.Join("tests", name+".rs"),
			filepath.Join("tests", name+"_test.rs"),
		)

	case ".c", ".cc", ".cpp", ".cxx", ".h", ".hpp":
		patterns = append(patterns,
			filepath.Join(dir, name+"_test"+ext),
			filepath.Join(dir, "test_"+name+ext),
			filepath.Join("tests", name+"_test"+ext),
		)

	case ".cs":
		patterns = append(patterns,
			filepath.Join(dir, name+"Tests.cs"),
			filepath.Join(dir, name+"Test.cs"),
		)
	}
	return patterns
}

// IsTestFile reports whether path looks like a test file.
func IsTestFile(path string) bool {
	base := filepath.Base(path)
	dir := "/" + filepath.ToSlash(filepath.Dir(path)) + "/"

	for _, marker := range []string{"/__tests__/", "/tests/", "/test/"} {
		if strings.Contains(dir, marker) {
			return true
		}
	}

	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	switch ext {
	case ".go", ".rs":
		return strings.HasSuffix(name, "_test")
	case ".py":
		return strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test")
	case ".ts", ".tsx", ".js", ".jsx", ".mjs":
		return strings.HasSuffix(name, ".test") || strings.HasSuffix(name, ".spec")
	case ".java", ".cs":
		return strings.HasSuffix(name, "Test") || strings.HasSuffix(name, "Tests")
	case ".c", ".cc", ".cpp", ".cxx", ".h", ".hpp":
		return strings.HasSuffix(name, "_test") || strings.HasPrefix(name, "test_")
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// TestFileFor returns the conventional test file path for sourcePath, or ""
// when its language has no naming convention.
func TestFileFor(sourcePath string) string {
	if candidates := testCandidates(sourcePath); len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
