package analysis

import (
	"os"
	"path/filepath"
	"testing"
)

func existsIn(files ...string) func(string) bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return func(p string) bool { return set[p] }
}

func TestRelatedTestFile(t *testing.T) {
	tests := []struct {
		name       string
		sourcePath string
		files      []string
		wantTest   string
	}{
		{
			name:       "Go source with _test suffix",
			sourcePath: "pkg/cart/cart.go",
			files:      []string{"pkg/cart/cart.go", "pkg/cart/cart_test.go"},
			wantTest:   "pkg/cart/cart_test.go",
		},
		{
			name:       "Python source with test_ prefix",
			sourcePath: "src/utils/parser.py",
			files:      []string{"src/utils/test_parser.py"},
			wantTest:   "src/utils/test_parser.py",
		},
		{
			name:       "Python source with sibling tests directory",
			sourcePath: "app/loader.py",
			files:      []string{"app/tests/test_loader.py"},
			wantTest:   "app/tests/test_loader.py",
		},
		{
			name:       "TypeScript source with .spec pattern",
			sourcePath: "src/services/api.ts",
			files:      []string{"src/services/api.spec.ts"},
			wantTest:   "src/services/api.spec.ts",
		},
		{
			name:       "JavaScript source in __tests__ directory",
			sourcePath: "src/utils/format.js",
			files:      []string{"src/utils/__tests__/format.test.js"},
			wantTest:   "src/utils/__tests__/format.test.js",
		},
		{
			name:       "Java maven layout",
			sourcePath: "src/main/java/com/example/UserService.java",
			files:      []string{"src/test/java/com/example/UserServiceTest.java"},
			wantTest:   "src/test/java/com/example/UserServiceTest.java",
		},
		{
			name:       "Rust integration test",
			sourcePath: "src/parser.rs",
			files:      []string{"tests/parser.rs"},
			wantTest:   "tests/parser.rs",
		},
		{
			name:       "C# Tests suffix preferred",
			sourcePath: "Billing/Invoice.cs",
			files:      []string{"Billing/InvoiceTest.cs", "Billing/InvoiceTests.cs"},
			wantTest:   "Billing/InvoiceTests.cs",
		},
		{
			name:       "No test file exists",
			sourcePath: "pkg/utils/helper.go",
			files:      []string{"pkg/utils/other_test.go"},
		},
		{
			name:       "Test file itself",
			sourcePath: "pkg/cart/cart_test.go",
			files:      []string{"pkg/cart/cart_test_test.go"},
		},
		{
			name:       "Unsupported extension",
			sourcePath: "script.sh",
			files:      []string{"script_test.sh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelatedTestFile(tt.sourcePath, existsIn(tt.files...))
			if got != tt.wantTest {
				t.Errorf("RelatedTestFile(%q) = %q, want %q", tt.sourcePath, got, tt.wantTest)
			}
		})
	}
}

func TestRelatedTestFile_Filesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cart.go")
	test := filepath.Join(dir, "cart_test.go")
	if err := os.WriteFile(src, []byte("package cart\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := RelatedTestFile(src, nil); got != "" {
		t.Errorf("expected no test file, got %q", got)
	}

	if err := os.WriteFile(test, []byte("package cart\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := RelatedTestFile(src, nil); got != test {
		t.Errorf("RelatedTestFile() = %q, want %q", got, test)
	}
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path   string
		isTest bool
	}{
		{"foo_test.go", true},
		{"foo.go", false},
		{"test_foo.py", true},
		{"foo_test.py", true},
		{"foo.py", false},
		{"foo.test.ts", true},
		{"foo.spec.tsx", true},
		{"foo.ts", false},
		{"FooTest.java", true},
		{"FooTests.cs", true},
		{"Foo.java", false},
		{"vector_test.cpp", true},
		{"lexer_test.rs", true},
		{"__tests__/foo.js", true},
		{"tests/helpers.py", true},
		{"app/tests/conftest.py", true},
		{"src/test/java/Foo.java", true},
		{"latest.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := IsTestFile(tt.path)
			if got != tt.isTest {
				t.Errorf("IsTestFile(%q) = %v, want %v", tt.path, got, tt.isTest)
			}
		})
	}
}

func TestTestFileFor(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{filepath.Join("pkg", "cart.go"), filepath.Join("pkg", "cart_test.go")},
		{filepath.Join("app", "cart.py"), filepath.Join("app", "test_cart.py")},
		{filepath.Join("src", "cart.ts"), filepath.Join("src", "cart.test.ts")},
		{"Cart.cs", "CartTests.cs"},
		{"run.sh", ""},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := TestFileFor(tt.source); got != tt.want {
				t.Errorf("TestFileFor(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}
