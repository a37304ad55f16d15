// internal/rules/selftest.go
package rules

import (
	"github.com/pmezard/go-difflib/difflib"
	"github.com/solatis/antiseptic/internal/types"
)

// TestResult is the outcome of one embedded rule test.
type TestResult struct {
	RuleID   types.RuleID
	Case     int
	Input    string
	Expected string
	Got      string
	Passed   bool
	// Similarity is the difflib ratio between Got and Expected, 1.0 on a pass.
	Similarity float64
}

// RunTests runs every active rule's embedded tests against that rule alone,
// in application order. Rules without tests produce no results.
func RunTests(store *Store) []TestResult {
	var results []TestResult
	for _, rule := range store.rules {
		for i, tc := range rule.Tests {
			got, _ := rule.apply(tc.Input)
			results = append(results, TestResult{
				RuleID:     rule.ID,
				Case:       i,
				Input:      tc.Input,
				Expected:   tc.Expected,
				Got:        got,
				Passed:     got == tc.Expected,
				Similarity: similarity(got, tc.Expected),
			})
		}
	}
	return results
}

// Failed counts failing results.
func Failed(results []TestResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

// similarity compares two strings character by character.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return m.Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
