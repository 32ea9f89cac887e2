package depgraph

import (
	"regexp"
	"strings"
)

// Specifier is a raw import string extracted from a source file, along with
// whether it is relative (begins with ".").
type Specifier struct {
	Value    string
	Relative bool
}

// Extractor pulls raw import specifiers out of one file's source text.
type Extractor func(source string) []Specifier

var (
	jsImportRe  = regexp.MustCompile(`import\s+(?:[\w*{}\s,]+\s+from\s+)?["']([^"']+)["']`)
	jsRequireRe = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)
	pyFromRe    = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\b`)
	pyImportRe  = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	javaImportRe = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)\s*;`)
	goQuotedRe  = regexp.MustCompile(`"([^"]+)"`)
)

// jsExtractor handles .ts/.tsx/.js/.jsx/.mjs/.cjs: import ... from "X" and
// require("X"); only specifiers beginning with "." are kept.
func jsExtractor(source string) []Specifier {
	var specs []Specifier
	for _, m := range jsImportRe.FindAllStringSubmatch(source, -1) {
		specs = append(specs, Specifier{Value: m[1], Relative: strings.HasPrefix(m[1], ".")})
	}
	for _, m := range jsRequireRe.FindAllStringSubmatch(source, -1) {
		specs = append(specs, Specifier{Value: m[1], Relative: strings.HasPrefix(m[1], ".")})
	}
	var relative []Specifier
	for _, s := range specs {
		if s.Relative {
			relative = append(relative, s)
		}
	}
	return relative
}

// pyExtractor handles .py: "from X import ..." and "import X"; translates
// "a.b.c" to "a/b/c".
func pyExtractor(source string) []Specifier {
	var specs []Specifier
	for _, m := range pyFromRe.FindAllStringSubmatch(source, -1) {
		specs = append(specs, Specifier{Value: strings.ReplaceAll(m[1], ".", "/")})
	}
	for _, m := range pyImportRe.FindAllStringSubmatch(source, -1) {
		specs = append(specs, Specifier{Value: strings.ReplaceAll(m[1], ".", "/")})
	}
	return specs
}

// javaExtractor handles .java/.kt: "import [static] a.b.C;"; translates
// dots to slashes.
func javaExtractor(source string) []Specifier {
	var specs []Specifier
	for _, m := range javaImportRe.FindAllStringSubmatch(source, -1) {
		specs = append(specs, Specifier{Value: strings.ReplaceAll(m[1], ".", "/")})
	}
	return specs
}

// goExtractor handles .go: any double-quoted string inside an
// `import ( ... )` block or following a bare `import `.
func goExtractor(source string) []Specifier {
	var specs []Specifier
	lines := strings.Split(source, "\n")
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import (") || trimmed == "import(":
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		case inBlock:
			if m := goQuotedRe.FindStringSubmatch(trimmed); m != nil {
				specs = append(specs, Specifier{Value: m[1]})
			}
		case strings.HasPrefix(trimmed, "import "):
			if m := goQuotedRe.FindStringSubmatch(trimmed); m != nil {
				specs = append(specs, Specifier{Value: m[1]})
			}
		}
	}
	return specs
}

// extractorFor returns the Extractor for a recognized extension, or nil.
func extractorFor(ext string) Extractor {
	switch ext {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return jsExtractor
	case ".py":
		return pyExtractor
	case ".java", ".kt":
		return javaExtractor
	case ".go":
		return goExtractor
	default:
		return nil
	}
}
