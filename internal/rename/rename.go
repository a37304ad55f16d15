// Package rename applies a cleaning strategy to directory and file names on
// disk: rename a directory in place, or wrap a file in a new directory.
package rename

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/solatis/antiseptic/internal/journal"
	"github.com/solatis/antiseptic/internal/types"
	"go.uber.org/zap"
)

/*
 * Rename workflow, per path:
 *   1. Clean the name (directory name, or file stem for wrap).
 *   2. Unchanged name: nothing to do. Strategy failure: skip with a warning.
 *   3. Show the change. Dry run stops here.
 *   4. Unless Auto, prompt [y/n/q]. "q" stops the whole run (types.ErrQuit).
 *   5. Refuse to overwrite an existing target, then move.
 *   6. Record the change in the journal when one is configured.
 */

// Cleaner turns a name into its cleaned form.
type Cleaner interface {
	Name() string
	Clean(name string) (types.CleanResult, error)
}

// Prompter asks the user to pick one of choices; def is taken on empty input.
type Prompter interface {
	Prompt(question string, choices []string, def string) (string, error)
}

// Recorder stores performed changes.
type Recorder interface {
	Record(ctx context.Context, op types.Operation, source, target string, applied []types.RuleID) (journal.Entry, error)
}

// Options control confirmation behavior.
type Options struct {
	DryRun bool
	Auto   bool
	// DefaultChoice is the answer taken on empty input: "y" or "n".
	DefaultChoice string
}

// Outcome is what happened to one path.
type Outcome int

const (
	Unchanged Outcome = iota
	Skipped
	Planned
	Done
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Skipped:
		return "skipped"
	case Planned:
		return "planned"
	case Done:
		return "done"
	default:
		return "failed"
	}
}

// Summary counts outcomes over a run.
type Summary struct {
	Counts map[Outcome]int
	// Quit is set when the user stopped the run early.
	Quit bool
}

func (s *Summary) add(o Outcome) {
	if s.Counts == nil {
		s.Counts = make(map[Outcome]int)
	}
	s.Counts[o]++
}

// Renamer drives the workflow. Prompter is required unless DryRun or Auto;
// Recorder may be nil.
type Renamer struct {
	Cleaner  Cleaner
	Prompter Prompter
	Recorder Recorder
	Out      io.Writer
	// Diff renders a name change for Out.
	Diff    func(before, after string) string
	Logger  *zap.SugaredLogger
	Options Options
}

var choices = []string{"y", "n", "q"}

// RenameDir cleans the last element of path and renames it in place. path
// must be a directory. Relative paths are made absolute before they are
// recorded.
func (r *Renamer) RenameDir(ctx context.Context, path string) (Outcome, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return Failed, err
	}
	if err := RequireDir(path); err != nil {
		return Failed, err
	}
	base, oldName := filepath.Split(path)

	result, err := r.Cleaner.Clean(oldName)
	if err != nil {
		return r.skip(path, err)
	}
	if !result.Changed(oldName) {
		r.logger().Debugw("nothing to be done", "path", path)
		return Unchanged, nil
	}
	newName := result.Text
	if err := validName(newName); err != nil {
		return r.skip(path, err)
	}

	r.logger().Infow("applied rules", "path", path, "rules", joinIDs(result.Applied))
	fmt.Fprint(r.Out, r.render(oldName, newName))

	ok, outcome, err := r.confirm("Apply")
	if !ok {
		return outcome, err
	}

	target := filepath.Join(base, newName)
	if err := ensureAbsent(target); err != nil {
		return Failed, err
	}

	r.logger().Debugw("renaming", "from", path, "to", target)
	if err := os.Rename(path, target); err != nil {
		return Failed, fmt.Errorf("failed to rename %s: %w", path, err)
	}
	r.logger().Infow("renamed successfully", "to", target)

	r.record(ctx, types.OpRename, path, target, result.Applied)
	return Done, nil
}

// WrapFile moves the file at path into a new sibling directory named after
// its cleaned stem (the name without its extension). path must be a regular
// file.
func (r *Renamer) WrapFile(ctx context.Context, path string) (Outcome, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return Failed, err
	}
	if err := RequireFile(path); err != nil {
		return Failed, err
	}
	base, fileName := filepath.Split(path)
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	result, err := r.Cleaner.Clean(stem)
	if err != nil {
		return r.skip(path, err)
	}
	dirName := result.Text
	if err := validName(dirName); err != nil {
		return r.skip(path, err)
	}

	r.logger().Infow("wrapping", "path", path, "rules", joinIDs(result.Applied))
	fmt.Fprintf(r.Out, "New directory name: %s\n", dirName)

	ok, outcome, err := r.confirm("Wrap")
	if !ok {
		return outcome, err
	}

	dir := filepath.Join(base, dirName)
	target := filepath.Join(dir, fileName)
	if err := ensureAbsent(dir); err != nil {
		return Failed, err
	}

	r.logger().Debugw("creating a new directory", "dir", dir)
	if err := os.Mkdir(dir, 0755); err != nil {
		return Failed, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	r.logger().Debugw("moving", "from", path, "to", target)
	if err := os.Rename(path, target); err != nil {
		os.Remove(dir)
		return Failed, fmt.Errorf("failed to move %s: %w", path, err)
	}
	r.logger().Infow("wrapped successfully", "to", target)

	r.record(ctx, types.OpWrap, path, target, result.Applied)
	return Done, nil
}

// Run applies fn to every path in order. Per-path errors are logged and
// counted; types.ErrQuit ends the run without an error.
func (r *Renamer) Run(ctx context.Context, paths []string, fn func(context.Context, string) (Outcome, error)) (Summary, error) {
	var summary Summary
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := fn(ctx, p)
		if errors.Is(err, types.ErrQuit) {
			summary.Quit = true
			return summary, nil
		}
		if err != nil {
			r.logger().Errorw("failed", "path", p, "error", err)
		}
		summary.add(outcome)
	}
	return summary, nil
}

// confirm handles dry run, auto mode and the prompt. ok reports whether to
// go ahead; otherwise outcome and err are the result for this path.
func (r *Renamer) confirm(question string) (ok bool, outcome Outcome, err error) {
	if r.Options.DryRun {
		fmt.Fprintln(r.Out)
		return false, Planned, nil
	}
	if r.Options.Auto {
		return true, Done, nil
	}

	def := r.Options.DefaultChoice
	if def != "y" {
		def = "n"
	}
	choice, err := r.Prompter.Prompt(question, choices, def)
	if err != nil {
		return false, Skipped, err
	}
	switch choice {
	case "q":
		return false, Skipped, types.ErrQuit
	case "y":
		return true, Done, nil
	default:
		return false, Skipped, nil
	}
}

func (r *Renamer) skip(path string, err error) (Outcome, error) {
	r.logger().Warnw("skipping", "path", path, "strategy", r.Cleaner.Name(), "error", err)
	return Skipped, nil
}

func (r *Renamer) record(ctx context.Context, op types.Operation, source, target string, applied []types.RuleID) {
	if r.Recorder == nil {
		return
	}
	entry, err := r.Recorder.Record(ctx, op, source, target, applied)
	if err != nil {
		r.logger().Warnw("failed to record change in journal", "error", err)
		return
	}
	r.logger().Debugw("recorded", "entry", entry.ID)
}

func (r *Renamer) render(before, after string) string {
	if r.Diff != nil {
		return r.Diff(before, after)
	}
	return "- " + before + "\n+ " + after + "\n"
}

func (r *Renamer) logger() *zap.SugaredLogger {
	if r.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return r.Logger
}

// validName rejects cleaned names that cannot be a single path element.
func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("cleaned name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("cleaned name %q is not a valid name", name)
	case strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, 0):
		return fmt.Errorf("cleaned name %q contains a path separator", name)
	}
	return nil
}

// RequireDir fails unless path is an existing directory.
func RequireDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// RequireFile fails unless path is an existing regular file.
func RequireFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a file", path)
	}
	return nil
}

func ensureAbsent(path string) error {
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func joinIDs(ids []types.RuleID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
