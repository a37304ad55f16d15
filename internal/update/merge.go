package update

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/antiseptic/internal/ruleset"
	"github.com/solatis/antiseptic/internal/types"
)

/*
 * Merge workflow.
 *
 * The published rule set replaces the local one wholesale, except for custom
 * rules (ids starting with "_"), which the server never ships:
 *   1. Parse the existing source. Missing: no custom rules. Unparsable: no
 *      custom rules and an ErrCorruptExistingRuleSet warning.
 *   2. Collect custom records in existing order, byte for byte, so fields
 *      this version does not understand survive.
 *   3. Result = fresh rules, then custom rules. Version and every other
 *      top-level key come from the fresh document.
 *
 * No dedupe between the two halves: a fresh rule reusing a custom id is
 * reported as a duplicate at load time, where the fresh one wins.
 */

// MergeReport summarizes a merge.
type MergeReport struct {
	Fresh    int
	Custom   int
	Warnings []error
}

// Merge combines fresh with the custom rules of existing. name picks the
// existing source's format by extension; nil existing means no local rules.
func Merge(name string, existing []byte, fresh *ruleset.Document) (*ruleset.Document, MergeReport) {
	var report MergeReport

	custom, err := customRules(name, existing)
	if err != nil {
		report.Warnings = append(report.Warnings, err)
	}

	merged := ruleset.New(fresh.Version)
	for k, v := range fresh.Meta {
		merged.Meta[k] = v
	}
	merged.Rules = make([]json.RawMessage, 0, len(fresh.Rules)+len(custom))
	merged.Rules = append(merged.Rules, fresh.Rules...)
	merged.Rules = append(merged.Rules, custom...)

	report.Fresh = len(fresh.Rules)
	report.Custom = len(custom)
	return merged, report
}

// customRules extracts "_"-prefixed records from an existing source.
func customRules(name string, existing []byte) ([]json.RawMessage, error) {
	if existing == nil {
		return nil, nil
	}
	doc, err := ruleset.ParseBytes(name, existing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptExistingRuleSet, err)
	}

	var custom []json.RawMessage
	for _, raw := range doc.Rules {
		if id, ok := ruleset.RecordID(raw); ok && id.IsCustom() {
			custom = append(custom, raw)
		}
	}
	return custom, nil
}
