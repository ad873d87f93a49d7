package callgraph

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// definitionHeader matches any function signature that opens a body on the
// same line. Groups: type tokens, name, parameters. Class and namespace
// qualifiers are matched but not captured, so a method is reported by the
// name its callers use.
var definitionHeader = regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `*)` + scopeRe + `(~?[A-Za-z_]\w*)(` + paramsRe + `)` + trailersRe + `\s*\{`)

// definitionHeaderEOL is the same signature with the brace on the next line.
var definitionHeaderEOL = regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `*)` + scopeRe + `(~?[A-Za-z_]\w*)(` + paramsRe + `)` + trailersRe + `\s*$`)

// controlKeywords look like function definitions to the patterns above
// (`while (x) {`) but never name one.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "sizeof": true, "else": true, "do": true, "defined": true,
	"alignof": true, "decltype": true, "typeof": true, "__attribute__": true,
}

// EnclosingFunction scans lines backwards from the 1-based lineNo towards
// the top of the file and returns the name of the first function definition
// header it meets, or UnknownCaller. The scan does not track braces, so a
// call at file scope after a function body is attributed to that function.
func EnclosingFunction(lines []string, lineNo int) string {
	start := lineNo - 1
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	for i := start; i >= 0; i-- {
		if name, ok := headerName(lines, i); ok {
			return name
		}
	}
	return UnknownCaller
}

// headerName reports whether lines[i] opens a function definition.
func headerName(lines []string, i int) (string, bool) {
	line := lines[i]
	if name, ok := matchHeader(definitionHeader, line); ok {
		return name, true
	}
	if name, ok := matchHeader(definitionHeaderEOL, line); ok {
		if next, ok := nextNonBlank(lines, i+1); ok && strings.HasPrefix(next, "{") {
			return name, true
		}
	}
	return "", false
}

// matchHeader applies one of the definition header patterns and returns the
// function name, rejecting control statements and untyped calls whose
// arguments contain a nested call or lambda.
func matchHeader(re *regexp.Regexp, line string) (string, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil || isControl(m[2]) || untypedWithNestedParen(m[1], m[3]) {
		return "", false
	}
	return m[2], true
}

func nextNonBlank(lines []string, from int) (string, bool) {
	for j := from; j < len(lines); j++ {
		if s := strings.TrimSpace(lines[j]); s != "" {
			return s, true
		}
	}
	return "", false
}

func isControl(name string) bool {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return controlKeywords[name]
}

// ResolveEnclosing reads file (relative to root unless absolute) and returns
// the function enclosing lineNo. Any read failure yields UnknownCaller
// together with an ErrFileUnreadable-wrapped error for logging.
func ResolveEnclosing(root, file string, lineNo int) (string, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, file)
	}
	lines, err := readLines(path)
	if err != nil {
		return UnknownCaller, err
	}
	return EnclosingFunction(lines, lineNo), nil
}

// readLines reads path and splits it into lines. Invalid UTF-8 sequences are
// dropped rather than rejected; the patterns only care about ASCII structure.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	data = bytes.ToValidUTF8(data, nil)
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n"), nil
}

// callerFromContext picks the caller for an index hit. The index's scope
// name wins when it looks like an identifier; otherwise the line itself is
// tried as a definition header.
func callerFromContext(context, code string) string {
	if context != "" && context != "<global>" && identLike(context) {
		return context
	}
	if name, ok := matchHeader(definitionHeader, code); ok {
		return name
	}
	return UnknownCaller
}

func identLike(s string) bool {
	stripped := strings.NewReplacer("_", "", ".", "").Replace(s)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
