// internal/rules/store.go
package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/solatis/antiseptic/internal/ruleset"
	"github.com/solatis/antiseptic/internal/types"
)

/*
 * Rule store: load, validate, deduplicate, filter, order.
 *
 * Load workflow, per record in source order:
 *   1. Missing id: drop, warn, id set untouched
 *   2. Disabled id: drop silently, reserve id
 *   3. Reserved id: drop, warn (first declaration stays active)
 *   4. Decode and compile: on failure drop, warn, reserve id
 *
 * Reserving disabled and rejected ids means a later record reusing the id is
 * still caught as a duplicate instead of slipping in.
 *
 * After the pass the active list is stable-sorted by weight so equal weights
 * keep declaration order. The Store is immutable afterwards; concurrent
 * Apply calls only read it.
 */

// WarningKind classifies rejected records.
type WarningKind int

const (
	WarnMissingID WarningKind = iota + 1
	WarnDuplicateID
	WarnBadPattern
	WarnBadRecord
)

func (k WarningKind) String() string {
	switch k {
	case WarnMissingID:
		return "missing id"
	case WarnDuplicateID:
		return "duplicate id"
	case WarnBadPattern:
		return "bad pattern"
	case WarnBadRecord:
		return "bad record"
	default:
		return "unknown"
	}
}

// Warning describes one rejected record. It unwraps to an error wrapping
// types.ErrMalformedRuleRecord.
type Warning struct {
	Index  int // position in the source rules list
	RuleID types.RuleID
	Kind   WarningKind
	Err    error
}

func (w Warning) Error() string {
	return w.Err.Error()
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Store is an immutable, ordered set of compiled rules.
type Store struct {
	rules   []*CompiledRule
	byID    map[types.RuleID]*CompiledRule
	version string
}

// Load parses a JSON rule source and builds a Store.
// Fails only when the source cannot be parsed or lacks a rules section;
// rejected records are reported as warnings.
func Load(source []byte, disabled []string, sink Sink) (*Store, []Warning, error) {
	doc, err := ruleset.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	return LoadDocument(doc, disabled, sink)
}

// LoadFile reads a rule source from disk (JSON, or YAML by extension).
func LoadFile(path string, disabled []string, sink Sink) (*Store, []Warning, error) {
	doc, err := ruleset.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	return LoadDocument(doc, disabled, sink)
}

// LoadDocument builds a Store from a parsed rule source.
func LoadDocument(doc *ruleset.Document, disabled []string, sink Sink) (*Store, []Warning, error) {
	if doc == nil || !doc.HasRules() {
		return nil, nil, types.ErrMissingRuleSection
	}
	sink = sinkOrDiscard(sink)

	off := make(map[types.RuleID]struct{}, len(disabled))
	for _, id := range disabled {
		off[types.RuleID(id)] = struct{}{}
	}

	var warnings []Warning
	reject := func(w Warning) {
		warnings = append(warnings, w)
		sink.Emit(Event{Kind: EventRejected, RuleID: w.RuleID, Err: w})
	}

	reserved := make(map[types.RuleID]struct{}, len(doc.Rules))
	active := make([]*CompiledRule, 0, len(doc.Rules))

	for i, raw := range doc.Rules {
		id, ok := ruleset.RecordID(raw)
		if !ok {
			reject(Warning{
				Index: i,
				Kind:  WarnMissingID,
				Err:   fmt.Errorf("%w: missing rule id at index %d: %s", types.ErrMalformedRuleRecord, i, compact(raw)),
			})
			continue
		}

		if _, ok := off[id]; ok {
			reserved[id] = struct{}{}
			continue
		}

		if _, ok := reserved[id]; ok {
			reject(Warning{
				Index:  i,
				RuleID: id,
				Kind:   WarnDuplicateID,
				Err:    fmt.Errorf("%w: duplicate rule with id %q", types.ErrMalformedRuleRecord, id),
			})
			continue
		}
		reserved[id] = struct{}{}

		var rec types.RuleRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			reject(Warning{
				Index:  i,
				RuleID: id,
				Kind:   WarnBadRecord,
				Err:    fmt.Errorf("%w: rule %q: %v", types.ErrMalformedRuleRecord, id, err),
			})
			continue
		}

		compiled, err := Compile(rec, i)
		if err != nil {
			reject(Warning{
				Index:  i,
				RuleID: id,
				Kind:   WarnBadPattern,
				Err:    fmt.Errorf("%w: %v", types.ErrMalformedRuleRecord, err),
			})
			continue
		}
		active = append(active, compiled)
	}

	// Stable sort: equal weights keep declaration order
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Weight < active[j].Weight
	})

	byID := make(map[types.RuleID]*CompiledRule, len(active))
	for _, r := range active {
		byID[r.ID] = r
	}

	sink.Emit(Event{Kind: EventLoaded, Count: len(active)})

	return &Store{rules: active, byID: byID, version: doc.Version}, warnings, nil
}

// Rules returns the active rules in application order.
// The returned slice is a copy; the rules themselves must not be modified.
func (s *Store) Rules() []*CompiledRule {
	out := make([]*CompiledRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of active rules.
func (s *Store) Len() int {
	return len(s.rules)
}

// Get returns the active rule with the given id.
func (s *Store) Get(id types.RuleID) (*CompiledRule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Version returns the version token declared by the source, or "".
func (s *Store) Version() string {
	return s.version
}

// compact shortens a raw record for warning messages.
func compact(raw json.RawMessage) string {
	const limit = 80
	s := string(raw)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
