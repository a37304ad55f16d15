// internal/rules/diagnostics.go
package rules

import (
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/solatis/antiseptic/internal/types"
	"go.uber.org/zap"
)

/*
 * Diagnostics sink for load and apply.
 *
 * Load and Apply never write to a process-wide logger. They report structured
 * events to the Sink passed in by the caller: the CLI forwards them to zap,
 * tests collect them, library callers may pass nil to discard.
 *
 * Diff text is computed on demand from Before/After so Apply stays cheap when
 * nobody reads the trace.
 */

// EventKind classifies diagnostic events.
type EventKind int

const (
	EventLoaded EventKind = iota + 1
	EventRejected
	EventApplied
	EventRepeatLimit
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventRejected:
		return "rejected"
	case EventApplied:
		return "applied"
	case EventRepeatLimit:
		return "repeat-limit"
	default:
		return "unknown"
	}
}

// Event is one diagnostic record.
type Event struct {
	Kind   EventKind
	RuleID types.RuleID
	Before string
	After  string
	Count  int   // active rules for EventLoaded, passes for EventRepeatLimit
	Err    error // rejection reason for EventRejected
}

// Diff renders the before/after change of an applied rule.
func (e Event) Diff() string {
	return Diff(e.Before, e.After)
}

// Sink receives diagnostic events.
type Sink interface {
	Emit(Event)
}

// Discard drops every event.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(Event) {}

func sinkOrDiscard(s Sink) Sink {
	if s == nil {
		return Discard{}
	}
	return s
}

// Collector accumulates events in memory. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Kind returns collected events of the given kind, in emission order.
func (c *Collector) Kind(kind EventKind) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LogSink forwards events to a structured logger.
// Applied rules and load summaries log at debug; rejections and repeat limits at warn.
type LogSink struct {
	Logger *zap.SugaredLogger
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	l := s.Logger
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	switch e.Kind {
	case EventLoaded:
		l.Debugw("rules loaded", "active", e.Count)
	case EventRejected:
		l.Warnw("rule rejected", "rule_id", string(e.RuleID), "error", e.Err)
	case EventApplied:
		l.Debugw("applied rule", "rule_id", string(e.RuleID), "diff", e.Diff())
	case EventRepeatLimit:
		l.Warnw("repeat rule did not converge", "rule_id", string(e.RuleID), "passes", e.Count)
	}
}

// Diff returns a two-line diff of before and after ("- old", "+ new").
// Returns "" when they are equal.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	ud := difflib.UnifiedDiff{
		A:       []string{before + "\n"},
		B:       []string{after + "\n"},
		Context: 0,
	} // no FromFile/ToFile: difflib omits the ---/+++ headers
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "- " + before + "\n+ " + after + "\n"
	}

	var b strings.Builder
	for _, line := range difflib.SplitLines(text) {
		switch {
		case strings.HasPrefix(line, "@@"):
			continue
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "+"):
			b.WriteString(line[:1] + " " + strings.TrimRight(line[1:], "\n") + "\n")
		}
	}
	return b.String()
}
