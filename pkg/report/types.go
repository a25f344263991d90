// Package report normalizes Cypress-style results documents into a uniform
// sequence of test outcomes.
//
// Input documents are schema-variable: a run list (runs → tests and nested
// suites), a flat test list, mochawesome-style results, or only aggregate
// stats. The package reads them as generic JSON values and never assumes a
// field's presence or type.
package report

import "strings"

// Status is the closed scoring taxonomy.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// StateUnknown is the raw state given to tests whose state cannot be read.
const StateUnknown = "unknown"

// UntitledTest is the title of tests without title, name or id.
const UntitledTest = "Untitled test"

// TitleSeparator joins breadcrumb titles.
const TitleSeparator = " › "

var (
	passedStates  = map[string]bool{"passed": true, "pass": true, "success": true}
	failedStates  = map[string]bool{"failed": true, "fail": true, "broken": true, "errored": true, "error": true}
	pendingStates = map[string]bool{"pending": true, "skipped": true, "skip": true, "canceled": true, "cancelled": true}
)

// Classify maps a raw state to the taxonomy. Anything not recognised as
// passed or pending counts as failed so unknown states cannot inflate a score.
func Classify(state string) Status {
	s := strings.ToLower(strings.TrimSpace(state))
	switch {
	case passedStates[s]:
		return StatusPassed
	case pendingStates[s]:
		return StatusPending
	default:
		return StatusFailed
	}
}

// Known reports whether state belongs to one of the recognised state sets.
func Known(state string) bool {
	s := strings.ToLower(strings.TrimSpace(state))
	return passedStates[s] || failedStates[s] || pendingStates[s]
}

// Outcome is one normalized test result.
type Outcome struct {
	Title  string `json:"title"`
	State  string `json:"state"`  // raw state, lower-cased
	Status Status `json:"status"` // taxonomy bucket derived from State
	Error  string `json:"error,omitempty"`
}

// Summary aggregates outcomes. When the document has no per-test data the
// counters come from its stats blocks, Outcomes is empty and FromStats is set.
type Summary struct {
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Pending   int       `json:"pending"`
	Outcomes  []Outcome `json:"outcomes"`
	FromStats bool      `json:"from_stats,omitempty"`
}

// Executed is the number of tests that count toward the score.
func (s Summary) Executed() int { return s.Passed + s.Failed }

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Total++
	switch o.Status {
	case StatusPassed:
		s.Passed++
	case StatusPending:
		s.Pending++
	default:
		s.Failed++
	}
}
