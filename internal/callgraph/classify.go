package callgraph

import (
	"regexp"
	"strings"
)

// Classification is the verdict of the line classifier for one source line
// and one function name. At most one of the three flags is set; a line with
// none set mentions the name without declaring, defining or calling it.
type Classification struct {
	IsDeclaration      bool `json:"is_declaration"`
	IsDefinitionHeader bool `json:"is_definition_header"`
	IsCall             bool `json:"is_call"`
}

// Kind maps the classification onto an occurrence kind. Lines that are
// neither declarations, definitions nor calls map to KindReference.
func (c Classification) Kind() Kind {
	switch {
	case c.IsDefinitionHeader:
		return KindDefinition
	case c.IsDeclaration:
		return KindDeclaration
	case c.IsCall:
		return KindCall
	default:
		return KindReference
	}
}

// Fragments shared by the declaration, definition and enclosing-function
// patterns. A type token is an identifier (possibly namespaced or templated)
// followed by whitespace or pointer/reference marks.
const (
	qualifiersRe = `(?:(?:extern|static|inline|virtual|constexpr)\s+)*`
	typeTokenRe  = `(?:[A-Za-z_]\w*(?:::[A-Za-z_]\w*)*(?:<[^;(){}]*>)?[\s*&]+)`
	scopeRe      = `(?:[A-Za-z_]\w*::)*`
	paramsRe     = `\s*\([^)]*\)`
	trailersRe   = `(?:\s*(?:const|noexcept|override|final))*`
)

// statementKeywords may not open a return-type token sequence; without this
// `return foo(x);` would read as a prototype returning type "return".
var statementKeywords = map[string]bool{
	"return": true, "else": true, "case": true, "goto": true, "do": true,
	"throw": true, "co_return": true, "co_await": true, "co_yield": true,
	"delete": true, "new": true, "sizeof": true, "not": true,
}

// Classify labels one line of C/C++ source relative to name. It is a pure
// function; see Matcher for the compiled form used in hot loops.
func Classify(line, name string) Classification {
	return NewMatcher(name).Classify(line)
}

// Matcher holds the patterns for one function name, compiled once.
type Matcher struct {
	name string

	declaration *regexp.Regexp // typed prototype ending in ';'
	openSig     *regexp.Regexp // typed signature whose parameter list continues on the next line
	funcPointer *regexp.Regexp
	typedef     *regexp.Regexp
	defBrace    *regexp.Regexp // signature followed by '{'; groups: type tokens, parameters
	defEOL      *regexp.Regexp // typed signature at end of line, brace on the next one
	call        *regexp.Regexp
}

// NewMatcher compiles the classification patterns for name.
func NewMatcher(name string) *Matcher {
	n := regexp.QuoteMeta(name)
	return &Matcher{
		name:        name,
		declaration: regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `+)` + scopeRe + n + paramsRe + trailersRe + `\s*;`),
		openSig:     regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `+)` + scopeRe + n + `\s*\([^)]*$`),
		funcPointer: regexp.MustCompile(`\(\s*\*\s*` + n + `\s*\)`),
		typedef:     regexp.MustCompile(`\btypedef\b.*\b` + n + `\b`),
		defBrace:    regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `*)` + scopeRe + n + `(` + paramsRe + `)` + trailersRe + `\s*\{`),
		defEOL:      regexp.MustCompile(`^\s*` + qualifiersRe + `(` + typeTokenRe + `+)` + scopeRe + n + paramsRe + trailersRe + `\s*$`),
		call:        regexp.MustCompile(`(?:^|[^\w])` + n + `\s*\(`),
	}
}

// Name returns the function name the matcher was built for.
func (m *Matcher) Name() string { return m.name }

// Classify labels line. Declaration and definition rules are checked first;
// a line they match is never a call even if it also contains "name(".
func (m *Matcher) Classify(line string) Classification {
	s := strings.TrimSpace(line)

	if s == "" || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*") || strings.HasPrefix(s, "*") {
		return Classification{}
	}

	if typed(m.declaration, s) || typed(m.openSig, s) ||
		m.funcPointer.MatchString(s) || m.typedef.MatchString(s) {
		return Classification{IsDeclaration: true}
	}

	if typedDefinition(m.defBrace, s) || typed(m.defEOL, s) {
		return Classification{IsDefinitionHeader: true}
	}

	if strings.HasPrefix(s, "#") {
		return Classification{}
	}

	if m.call.MatchString(s) {
		return Classification{IsCall: true}
	}
	return Classification{}
}

// typed reports whether re matches s with a leading type-token sequence
// that does not start with a statement keyword. re's first group captures
// the type tokens; an empty capture is accepted.
func typed(re *regexp.Regexp, s string) bool {
	sub := re.FindStringSubmatch(s)
	if sub == nil {
		return false
	}
	return !startsWithKeyword(sub[1])
}

// typedDefinition is typed for a pattern whose second group captures the
// parameter list. Without a return type the line is only a definition
// (constructor, qualified method) when the parameters hold no nested '(':
// `run(a, [&]() {` is a call taking a lambda.
func typedDefinition(re *regexp.Regexp, s string) bool {
	sub := re.FindStringSubmatch(s)
	if sub == nil || startsWithKeyword(sub[1]) {
		return false
	}
	return !untypedWithNestedParen(sub[1], sub[2])
}

func untypedWithNestedParen(types, params string) bool {
	if strings.TrimSpace(types) != "" {
		return false
	}
	open := strings.Index(params, "(")
	return open >= 0 && strings.Contains(params[open+1:], "(")
}

func startsWithKeyword(tokens string) bool {
	fields := strings.Fields(strings.NewReplacer("*", " ", "&", " ").Replace(tokens))
	if len(fields) == 0 {
		return false
	}
	return statementKeywords[fields[0]]
}
