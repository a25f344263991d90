package report

import (
	"iter"
	"regexp"
	"strings"
)

// Filter selects runs by spec name. Patterns are case-insensitive regular
// expressions; a pattern that does not compile is matched as a literal
// substring instead.
type Filter struct {
	pattern string
	re      *regexp.Regexp
}

// NewFilter returns nil for an empty pattern, meaning "no filtering".
func NewFilter(pattern string) *Filter {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}
	return &Filter{pattern: pattern, re: re}
}

// Match reports whether name contains a match. A nil filter matches all.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	return f.re.MatchString(name)
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.pattern
}

// SpecName returns the spec a run belongs to: spec.relative, then spec.name,
// a plain string spec, or "".
func SpecName(run map[string]any) string {
	switch spec := run["spec"].(type) {
	case map[string]any:
		if s, ok := firstString(spec, "relative", "name"); ok {
			return s
		}
	case string:
		return strings.TrimSpace(spec)
	}
	return ""
}

// Outcomes yields normalized outcomes from doc in document order:
//  1. each run in "runs" accepted by filter: its "tests", then its "suites" tree
//  2. the flat top-level "tests" list
//  3. each entry in "results": its "suites" tree
//
// Branches are not deduplicated against each other.
func Outcomes(doc any, filter *Filter) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		root, ok := asMap(doc)
		if !ok {
			return
		}
		emit := func(test map[string]any) bool { return yield(Normalize(test)) }

		if runs, ok := asList(root["runs"]); ok {
			for _, r := range runs {
				run, ok := asMap(r)
				if !ok || !filter.Match(SpecName(run)) {
					continue
				}
				if !emitTests(run["tests"], emit) {
					return
				}
				if !walkSuites(run["suites"], emit) {
					return
				}
			}
		}

		if !emitTests(root["tests"], emit) {
			return
		}

		if results, ok := asList(root["results"]); ok {
			for _, r := range results {
				result, ok := asMap(r)
				if !ok {
					continue
				}
				if !walkSuites(result["suites"], emit) {
					return
				}
			}
		}
	}
}

func emitTests(v any, emit func(map[string]any) bool) bool {
	tests, _ := asList(v)
	for _, t := range tests {
		if test, ok := asMap(t); ok {
			if !emit(test) {
				return false
			}
		}
	}
	return true
}

type nodeKind int

const (
	suiteNode nodeKind = iota
	testListNode
)

// node is one pending unit of the suites walk: a suite still to expand or a
// test list ready to emit.
type node struct {
	kind  nodeKind
	suite map[string]any
	tests any
}

// walkSuites visits a suites tree depth-first with an explicit stack. A suite
// emits its own tests before descending into its children, in order. The
// root may be a single suite object or a list of them.
func walkSuites(root any, emit func(map[string]any) bool) bool {
	var stack []node
	pushSuites := func(v any) {
		switch x := v.(type) {
		case []any:
			for i := len(x) - 1; i >= 0; i-- {
				if s, ok := asMap(x[i]); ok {
					stack = append(stack, node{kind: suiteNode, suite: s})
				}
			}
		case map[string]any:
			stack = append(stack, node{kind: suiteNode, suite: x})
		}
	}

	pushSuites(root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.kind {
		case testListNode:
			if !emitTests(n.tests, emit) {
				return false
			}
		case suiteNode:
			pushSuites(n.suite["suites"])
			if _, ok := asList(n.suite["tests"]); ok {
				stack = append(stack, node{kind: testListNode, tests: n.suite["tests"]})
			}
		}
	}
	return true
}
