// Package failure defines the grading error taxonomy. Every kind carries a
// learner-facing feedback message so the top level can always emit a valid
// zero-score record without inspecting lower-level errors.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a grading run could not produce a score.
type Kind string

const (
	InputMissing      Kind = "input-missing"
	InputMalformed    Kind = "input-malformed"
	InputUnrecognized Kind = "input-unrecognized"
	Decryption        Kind = "decryption-failure"
	NoTests           Kind = "no-tests"
	RubricUnmet       Kind = "rubric-unmet"
	Internal          Kind = "internal"
)

// GenericFeedback is shown for faults outside the taxonomy.
const GenericFeedback = "An unexpected error occurred while grading your submission. Please contact course staff."

// Error is a taxonomy-tagged grading error.
type Error struct {
	Kind     Kind
	Feedback string // shown to the learner
	Err      error  // diagnostic cause, logged only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Feedback)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a tagged error. feedback defaults to the kind's standard message.
func New(kind Kind, feedback string, err error) *Error {
	if feedback == "" {
		feedback = DefaultFeedback(kind)
	}
	return &Error{Kind: kind, Feedback: feedback, Err: err}
}

// Newf is New with a formatted diagnostic cause.
func Newf(kind Kind, feedback string, format string, args ...any) *Error {
	return New(kind, feedback, fmt.Errorf(format, args...))
}

// KindOf reports the taxonomy kind of err, or Internal when err is untagged.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// FeedbackOf returns the learner-facing message for err.
func FeedbackOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Feedback != "" {
		return fe.Feedback
	}
	return GenericFeedback
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// DefaultFeedback returns the standard learner message for a kind.
func DefaultFeedback(kind Kind) string {
	switch kind {
	case InputMissing:
		return "No Cypress results file was found in your submission. Run the Cypress tests and submit the generated results file."
	case InputMalformed:
		return "Your Cypress results file could not be read: it is not valid JSON text. Re-run the tests and submit the generated file without editing it."
	case InputUnrecognized:
		return "The submitted results file does not look like a Cypress test report. Make sure you submitted the file produced by the Cypress run."
	case Decryption:
		return "Your encrypted results file could not be decrypted. Please check that you submitted the correct results file for this assignment."
	case NoTests:
		return "No tests were found or executed. Please ensure your project has Cypress tests configured and that they ran."
	case RubricUnmet:
		return "Your test results do not meet the requirements for this assignment."
	default:
		return GenericFeedback
	}
}
