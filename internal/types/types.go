// Package types provides domain models shared across antiseptic components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the rule engine, update merger and journal can share
// them without import cycles. ID utilities in ids.go import uuid.
package types

import "strings"

// CustomPrefix marks user-authored rule ids. Custom rules survive update merges.
const CustomPrefix = "_"

// RuleID identifies a rule within one rule set.
// String alias keeps JSON string serialization.
type RuleID string

// IsCustom reports whether the id carries the user-authored marker.
func (id RuleID) IsCustom() bool {
	return strings.HasPrefix(string(id), CustomPrefix)
}

// EntryID represents a UUIDv7 journal entry identifier.
type EntryID string

// Operation names a filesystem change recorded in the journal.
type Operation string

const (
	// OpRename renames a directory in place.
	OpRename Operation = "rename"
	// OpWrap moves a file into a newly created directory.
	OpWrap Operation = "wrap"
)

// CleanResult is the outcome of cleaning one name.
// Applied lists rules that changed the text, in application order.
type CleanResult struct {
	Text    string
	Applied []RuleID
}

// Changed reports whether cleaning produced a different name.
func (r CleanResult) Changed(original string) bool {
	return r.Text != original
}
