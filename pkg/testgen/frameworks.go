package testgen

import (
	"errors"
	"fmt"
	"slices"

	"github.com/panbanda/codeforge/pkg/parser"
)

// Framework names a test framework.
type Framework string

const (
	Pytest   Framework = "pytest"
	Unittest Framework = "unittest"
	Nose     Framework = "nose"
	Jest     Framework = "jest"
	Mocha    Framework = "mocha"
	Jasmine  Framework = "jasmine"
	JUnit    Framework = "junit"
	TestNG   Framework = "testng"
	GTest    Framework = "gtest"
	Catch2   Framework = "catch2"
	NUnit    Framework = "nunit"
	XUnit    Framework = "xunit"
	MSTest   Framework = "mstest"
	GoTest   Framework = "testing"
	Testify  Framework = "testify"
	Ginkgo   Framework = "ginkgo"
	Cargo    Framework = "cargo"
)

// String implements fmt.Stringer for toon serialization.
func (f Framework) String() string { return string(f) }

var (
	// ErrUnsupportedLanguage is returned for languages without test templates.
	ErrUnsupportedLanguage = errors.New("test generation is not supported for this language")

	// ErrUnsupportedFramework is returned when a framework does not belong to the language.
	ErrUnsupportedFramework = errors.New("unsupported test framework")
)

// frameworks lists the supported frameworks per language; the first entry
// is the default.
var frameworks = map[parser.Language][]Framework{
	parser.LangPython:     {Pytest, Unittest, Nose},
	parser.LangJavaScript: {Jest, Mocha, Jasmine},
	parser.LangTypeScript: {Jest, Mocha, Jasmine},
	parser.LangTSX:        {Jest, Mocha, Jasmine},
	parser.LangJava:       {JUnit, TestNG},
	parser.LangCPP:        {GTest, Catch2},
	parser.LangCSharp:     {NUnit, XUnit, MSTest},
	parser.LangGo:         {GoTest, Testify, Ginkgo},
	parser.LangRust:       {Cargo},
}

// Frameworks returns the frameworks available for lang, default first.
func Frameworks(lang parser.Language) []Framework {
	return slices.Clone(frameworks[lang])
}

// Supported reports whether tests can be generated for lang.
func Supported(lang parser.Language) bool {
	_, ok := frameworks[lang]
	return ok
}

// DefaultFramework returns the default framework for lang, or "".
func DefaultFramework(lang parser.Language) Framework {
	if fws := frameworks[lang]; len(fws) > 0 {
		return fws[0]
	}
	return ""
}

// Resolve validates fw for lang. An empty fw selects the language default.
func Resolve(lang parser.Language, fw Framework) (Framework, error) {
	fws, ok := frameworks[lang]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	if fw == "" {
		return fws[0], nil
	}
	if !slices.Contains(fws, fw) {
		return "", fmt.Errorf("%w: %s for %s (want one of %v)", ErrUnsupportedFramework, fw, lang, fws)
	}
	return fw, nil
}
