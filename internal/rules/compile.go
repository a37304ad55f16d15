// internal/rules/compile.go
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/solatis/antiseptic/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.RuleRecord to CompiledRule with a compiled pattern and a
 * substitution template in regexp.Expand syntax. All validation happens here
 * so Apply never sees an invalid rule.
 *
 * Substitution templates: rule sources are written with backslash group
 * references (\1, \g<1>, \g<name>). They are rewritten to ${1} / ${name}.
 * Go-style $1 / ${name} references pass through unchanged, so a literal
 * dollar sign must be written $$.
 *
 * Backslash references are checked against the pattern's groups at compile
 * time; a reference to a missing group rejects the rule rather than silently
 * expanding to "".
 */

// CompiledRule is a validated rule ready for application.
type CompiledRule struct {
	ID           types.RuleID
	Pattern      *regexp.Regexp
	Substitution string // as declared
	Template     string // regexp.Expand form of Substitution
	Weight       int
	Repeat       bool
	Tests        []types.TestCase
	Index        int // declaration position in the source
}

// Custom reports whether the rule is user-authored.
func (r *CompiledRule) Custom() bool {
	return r.ID.IsCustom()
}

// Compile validates and pre-processes a rule record.
// The record must carry an id; index is its declaration position.
func Compile(rec types.RuleRecord, index int) (*CompiledRule, error) {
	if rec.Pattern == nil {
		return nil, fmt.Errorf("rule %q has no pattern", rec.RuleID())
	}

	re, err := regexp.Compile(*rec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q failed to compile: %w", rec.RuleID(), err)
	}

	tmpl, err := translateTemplate(rec.Substitution, re)
	if err != nil {
		return nil, fmt.Errorf("rule %q has invalid substitution: %w", rec.RuleID(), err)
	}

	return &CompiledRule{
		ID:           rec.RuleID(),
		Pattern:      re,
		Substitution: rec.Substitution,
		Template:     tmpl,
		Weight:       rec.Weight,
		Repeat:       rec.Repeat,
		Tests:        rec.Tests,
		Index:        index,
	}, nil
}

// translateTemplate rewrites backslash escapes and group references into
// regexp.Expand syntax.
func translateTemplate(sub string, re *regexp.Regexp) (string, error) {
	if !strings.Contains(sub, `\`) {
		return sub, nil
	}

	var b strings.Builder
	for i := 0; i < len(sub); i++ {
		c := sub[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(sub) {
			return "", fmt.Errorf("trailing backslash")
		}
		i++
		c = sub[i]
		switch {
		case c == '\\':
			b.WriteByte('\\')
		case c == 'n':
			b.WriteByte('\n')
		case c == 't':
			b.WriteByte('\t')
		case c == 'r':
			b.WriteByte('\r')
		case c == 'a':
			b.WriteByte('\a')
		case c == 'b':
			b.WriteByte('\b')
		case c == 'f':
			b.WriteByte('\f')
		case c == 'v':
			b.WriteByte('\v')
		case c == '0':
			b.WriteByte(0)
		case c >= '1' && c <= '9':
			j := i + 1
			if j < len(sub) && sub[j] >= '0' && sub[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(sub[i:j])
			if n > re.NumSubexp() {
				return "", fmt.Errorf("invalid group reference %d", n)
			}
			fmt.Fprintf(&b, "${%d}", n)
			i = j - 1
		case c == 'g':
			if i+1 >= len(sub) || sub[i+1] != '<' {
				return "", fmt.Errorf(`missing "<" after \g`)
			}
			end := strings.IndexByte(sub[i+2:], '>')
			if end < 0 {
				return "", fmt.Errorf(`missing ">" in group reference`)
			}
			name := sub[i+2 : i+2+end]
			if err := checkGroup(name, re); err != nil {
				return "", err
			}
			b.WriteString("${" + name + "}")
			i += 2 + end
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			return "", fmt.Errorf(`bad escape \%c`, c)
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// checkGroup verifies a \g<...> reference names an existing group.
func checkGroup(name string, re *regexp.Regexp) error {
	if name == "" {
		return fmt.Errorf("empty group name")
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 || n > re.NumSubexp() {
			return fmt.Errorf("invalid group reference %d", n)
		}
		return nil
	}
	if re.SubexpIndex(name) < 0 {
		return fmt.Errorf("unknown group name %q", name)
	}
	return nil
}
