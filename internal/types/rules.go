// internal/types/rules.go
package types

/*
 * Domain types for rule records.
 *
 * Provides RuleRecord and TestCase, the typed form of one entry in a rule
 * source document. Records are decoded one at a time by internal/rules so a
 * single malformed record never fails the whole load.
 *
 * Key types:
 *   - RuleRecord: id, pattern, substitution, weight, repeat flag, tests
 *   - TestCase: one (input, expected) pair, serialized as a 2-element array
 *
 * Optional pointers: ID and Pattern are pointers so an absent field is
 * distinguishable from an empty one.
 */

import (
	"encoding/json"
	"fmt"
)

// TestCase is one (input, expected output) pair embedded in a rule.
type TestCase struct {
	Input    string
	Expected string
}

// UnmarshalJSON decodes the ["input", "expected"] wire form.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("test case must be a list of two strings: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("test case must have 2 elements, got %d", len(pair))
	}
	tc.Input, tc.Expected = pair[0], pair[1]
	return nil
}

// MarshalJSON encodes the ["input", "expected"] wire form.
func (tc TestCase) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{tc.Input, tc.Expected})
}

// RuleRecord is one rule as declared in a rule source.
type RuleRecord struct {
	ID           *string    `json:"id,omitempty"`
	Pattern      *string    `json:"rule,omitempty"`
	Substitution string     `json:"sub,omitempty"`
	Weight       int        `json:"weight,omitempty"`
	Repeat       bool       `json:"repeat,omitempty"`
	Tests        []TestCase `json:"tests,omitempty"`
}

// RuleID returns the record id, or "" when absent.
func (r RuleRecord) RuleID() RuleID {
	if r.ID == nil {
		return ""
	}
	return RuleID(*r.ID)
}
