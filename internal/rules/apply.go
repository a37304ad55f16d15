// internal/rules/apply.go
package rules

import (
	"github.com/solatis/antiseptic/internal/types"
)

/*
 * Rule application.
 *
 * Applies a Store to a string in one ordered pass. The only contract between
 * rules is the current text: each rule sees the output of the previous one.
 *
 * Application semantics:
 *   - Non-repeating rule: replace the first match only, once per Apply call.
 *     A later call on the result may match again; that is intentional, rules
 *     compose strictly left to right, once each.
 *   - Repeating rule: while the pattern matches, replace every match. Stops
 *     on no match, on a fixed point (a pass that leaves the text unchanged),
 *     after MaxRepeatPasses passes, or when the text outgrows its ceiling.
 *   - A rule counts as applied only if it changed the text.
 *
 * Apply is a pure function of the Store and the input; the Store is never
 * written, so concurrent calls are safe.
 */

// MaxRepeatPasses bounds the substitution passes of one repeating rule.
// Patterns whose substitution re-creates a match would otherwise loop forever.
const MaxRepeatPasses = 64

// Apply runs every active rule once over text, in order.
func Apply(store *Store, text string, sink Sink) types.CleanResult {
	sink = sinkOrDiscard(sink)
	result := types.CleanResult{Text: text}

	for _, rule := range store.rules {
		before := result.Text
		after, limited := rule.apply(before)
		if limited {
			sink.Emit(Event{Kind: EventRepeatLimit, RuleID: rule.ID, Before: before, After: after, Count: MaxRepeatPasses})
		}
		if after == before {
			continue
		}
		result.Text = after
		result.Applied = append(result.Applied, rule.ID)
		sink.Emit(Event{Kind: EventApplied, RuleID: rule.ID, Before: before, After: after})
	}

	return result
}

// apply runs the rule against text. limited reports that a repeating rule hit
// MaxRepeatPasses while its pattern still matched.
func (r *CompiledRule) apply(text string) (out string, limited bool) {
	if !r.Repeat {
		return r.replaceFirst(text), false
	}

	out = text
	ceiling := growthCeiling(text)
	for pass := 0; r.Pattern.MatchString(out); pass++ {
		if pass == MaxRepeatPasses {
			return out, true
		}
		next := r.Pattern.ReplaceAllString(out, r.Template)
		if next == out {
			break
		}
		if len(next) > ceiling {
			return out, true
		}
		out = next
	}
	return out, false
}

// growthCeiling caps the length a repeating rule may grow text to, so a
// substitution that re-creates its own match cannot double the text 64 times.
func growthCeiling(text string) int {
	return 16*len(text) + 1024
}

// replaceFirst substitutes the leftmost match only.
func (r *CompiledRule) replaceFirst(text string) string {
	loc := r.Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	dst := r.Pattern.ExpandString(nil, r.Template, text, loc)
	return text[:loc[0]] + string(dst) + text[loc[1]:]
}
