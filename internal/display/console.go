// Package display renders antiseptic's terminal output: colored diffs, the
// interactive prompt, tables and notices.
package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/solatis/antiseptic/internal/rules"
	"github.com/solatis/antiseptic/internal/types"
)

// Console writes to Out and reads answers from In. Color is enabled only when
// Out is a terminal.
type Console struct {
	Out   io.Writer
	In    *bufio.Reader
	Color bool
}

// NewConsole wraps in and out, detecting color support on out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{Out: out, In: bufio.NewReader(in), Color: color}
}

func (c *Console) paint(s, style string) string {
	if !c.Color {
		return s
	}
	return ansi.Color(s, style)
}

// Diff renders a before/after pair as removed and added lines.
func (c *Console) Diff(before, after string) string {
	var b strings.Builder
	for _, line := range strings.Split(rules.Diff(before, after), "\n") {
		switch {
		case strings.HasPrefix(line, "-"):
			b.WriteString(c.paint(line, "red"))
		case strings.HasPrefix(line, "+"):
			b.WriteString(c.paint(line, "green"))
		case line == "":
			continue
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Printf writes formatted text to Out.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Prompt asks question until one of choices (or an empty line, meaning def)
// is entered. Matching is case-insensitive. End of input is types.ErrQuit.
func (c *Console) Prompt(question string, choices []string, def string) (string, error) {
	shown := make([]string, len(choices))
	for i, choice := range choices {
		if choice == def {
			shown[i] = c.paint(strings.ToUpper(choice), "red+b")
			continue
		}
		shown[i] = choice
	}
	fmt.Fprintf(c.Out, "%s [%s]? ", question, strings.Join(shown, "/"))

	for {
		line, err := c.In.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if err != nil && answer == "" {
			fmt.Fprintln(c.Out)
			return "", types.ErrQuit
		}
		if answer == "" {
			return def, nil
		}
		for _, choice := range choices {
			if answer == strings.ToLower(choice) {
				return choice, nil
			}
		}
		fmt.Fprintf(c.Out, "Invalid choice. Pick from: %s\n", strings.Join(choices, ", "))
	}
}
