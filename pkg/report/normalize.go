package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	titleKeys      = []string{"title", "name", "id"}
	stateKeys      = []string{"state", "status"}
	errorKeys      = []string{"displayError", "err", "error", "message"}
	errorFieldKeys = []string{"message", "displayMessage", "stack", "stacktrace", "name"}
)

// Normalize converts one raw test object into an Outcome.
//
// State precedence: the test's own state/status (or boolean flags), then the
// attempts list walked from the last entry backward until an attempt carries
// a state, then the err-object rule for tests whose state is still unknown.
func Normalize(test map[string]any) Outcome {
	state := baseState(test)
	errMsg, _ := errorOf(test)

	if attempts, ok := asList(test["attempts"]); ok {
		for i := len(attempts) - 1; i >= 0; i-- {
			attempt, ok := asMap(attempts[i])
			if !ok {
				continue
			}
			// Every error seen on the way overwrites, including the one on the
			// attempt where the walk stops.
			if msg, ok := errorOf(attempt); ok {
				errMsg = msg
			}
			if s, ok := firstString(attempt, stateKeys...); ok {
				state = strings.ToLower(s)
				break
			}
		}
	}

	if state == StateUnknown {
		if errObj, ok := asMap(test["err"]); ok {
			if len(errObj) > 0 {
				state = string(StatusFailed)
				errMsg, _ = errorText(errObj)
			} else {
				state = string(StatusPassed)
			}
		}
	}

	return Outcome{
		Title:  titleOf(test),
		State:  state,
		Status: Classify(state),
		Error:  errMsg,
	}
}

func baseState(test map[string]any) string {
	if s, ok := firstString(test, stateKeys...); ok {
		return strings.ToLower(s)
	}
	switch {
	case isTrue(test["pass"]) || isTrue(test["passed"]):
		return string(StatusPassed)
	case truthy(test["fail"]) || truthy(test["failed"]):
		return string(StatusFailed)
	case truthy(test["pending"]):
		return string(StatusPending)
	}
	return StateUnknown
}

func titleOf(test map[string]any) string {
	for _, k := range titleKeys {
		v, ok := test[k]
		if !ok || v == nil {
			continue
		}
		if parts, ok := asList(v); ok {
			var segs []string
			for _, p := range parts {
				if s, ok := scalarString(p); ok && s != "" {
					segs = append(segs, s)
				}
			}
			if len(segs) > 0 {
				return strings.Join(segs, TitleSeparator)
			}
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			return s
		}
	}
	return UntitledTest
}

// errorOf returns the first error-bearing field that yields a message.
func errorOf(m map[string]any) (string, bool) {
	for _, k := range errorKeys {
		if msg, ok := errorText(m[k]); ok {
			return msg, true
		}
	}
	return "", false
}

// errorText renders an error value. Objects prefer their message-like
// fields and are serialized whole otherwise; empty values yield nothing.
func errorText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case map[string]any:
		if len(x) == 0 {
			return "", false
		}
		if s, ok := firstString(x, errorFieldKeys...); ok {
			return s, true
		}
		data, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(data), true
	case []any:
		if len(x) == 0 {
			return "", false
		}
		data, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(data), true
	case bool:
		// A bare flag carries no message.
		return "", false
	default:
		return strings.TrimSpace(fmt.Sprint(x)), true
	}
}
