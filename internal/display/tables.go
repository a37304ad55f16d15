package display

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexeyco/simpletable"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/solatis/antiseptic/internal/core/db"
	"github.com/solatis/antiseptic/internal/journal"
	"github.com/solatis/antiseptic/internal/rules"
)

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	if title != "" {
		tw.SetTitle(title)
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// RulesTable lists active rules in application order.
func RulesTable(active []*rules.CompiledRule) string {
	tw := newTable(fmt.Sprintf("%s active rules", humanize.Comma(int64(len(active)))))
	tw.AppendHeader(table.Row{"#", "Rule", "Weight", "Repeat", "Custom", "Tests", "Pattern", "Substitution"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, WidthMax: 48},
		{Number: 8, WidthMax: 24},
	})
	for i, r := range active {
		tw.AppendRow(table.Row{
			i + 1,
			string(r.ID),
			r.Weight,
			yesNo(r.Repeat),
			yesNo(r.Custom()),
			len(r.Tests),
			r.Pattern.String(),
			strconv.Quote(r.Substitution),
		})
	}
	return tw.Render()
}

// WarningsTable lists rejected rule records.
func WarningsTable(warnings []rules.Warning) string {
	tw := newTable(fmt.Sprintf("%s rejected records", humanize.Comma(int64(len(warnings)))))
	tw.AppendHeader(table.Row{"Index", "Rule", "Problem", "Detail"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})
	for _, w := range warnings {
		tw.AppendRow(table.Row{w.Index, string(w.RuleID), w.Kind.String(), w.Error()})
	}
	return tw.Render()
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// TestTable reports embedded rule test results. Passing rows show only the
// input; failing rows show what was produced and how close it came.
func TestTable(results []rules.TestResult) string {
	failed := rules.Failed(results)
	title := fmt.Sprintf("%s tests, %s failed", humanize.Comma(int64(len(results))), humanize.Comma(int64(failed)))

	tw := newTable(title)
	tw.AppendHeader(table.Row{"Rule", "Case", "Result", "Input", "Expected", "Got", "Similarity"})
	for _, r := range results {
		row := table.Row{string(r.RuleID), r.Case + 1, passFail(r.Passed), r.Input, "", "", ""}
		if !r.Passed {
			row[4] = r.Expected
			row[5] = r.Got
			row[6] = fmt.Sprintf("%.0f%%", r.Similarity*100)
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

// HistoryTable lists journal entries with their age relative to now.
func HistoryTable(entries []journal.Entry, now time.Time) string {
	tw := newTable("")
	tw.AppendHeader(table.Row{"ID", "When", "Operation", "From", "To", "Rules", "Undone"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 40},
		{Number: 5, WidthMax: 40},
	})
	for _, e := range entries {
		ids := e.Rules()
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = string(id)
		}
		undone := ""
		if e.Undone() {
			undone = humanize.RelTime(e.UndoneAt.Time, now, "ago", "from now")
		}
		tw.AppendRow(table.Row{
			shortID(string(e.ID)),
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
			string(e.Operation),
			e.Source,
			e.Target,
			strings.Join(names, ", "),
			undone,
		})
	}
	return tw.Render()
}

// shortID keeps enough of a UUIDv7 to be unique in practice and accepted by
// undo's prefix lookup.
func shortID(id string) string {
	if len(id) > 18 {
		return id[:18]
	}
	return id
}

// MigrationTable reports journal schema migrations.
func MigrationTable(statuses []db.MigrationStatus) string {
	t := simpletable.New()
	t.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Migration"},
			{Align: simpletable.AlignCenter, Text: "Status"},
			{Align: simpletable.AlignCenter, Text: "Applied"},
			{Align: simpletable.AlignCenter, Text: "Duration"},
		},
	}

	for _, s := range statuses {
		status, applied, duration := "pending", "", ""
		if s.Applied {
			status = "applied"
			duration = fmt.Sprintf("%d ms", s.ExecutionMs)
			if s.AppliedAt != nil {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
		}
		t.Body.Cells = append(t.Body.Cells, []*simpletable.Cell{
			{Text: s.ID},
			{Text: status},
			{Text: applied},
			{Align: simpletable.AlignRight, Text: duration},
		})
	}

	t.SetStyle(simpletable.StyleUnicode)
	return t.String()
}
