package cmd

import (
	"context"
	"fmt"

	"github.com/solatis/antiseptic/internal/rename"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename PATH",
	Short: "Clean a directory name, or every subdirectory with --dir",
	Args:  cobra.ExactArgs(1),
	RunE:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
	addRenameFlags(renameCmd, "treat PATH as a parent and rename each subdirectory")
}

// addRenameFlags registers the flags shared by rename and wrap.
func addRenameFlags(cmd *cobra.Command, dirUsage string) {
	cmd.Flags().BoolP("dir", "d", false, dirUsage)
	cmd.Flags().BoolP("yes", "y", false, "make yes the default answer")
	cmd.Flags().BoolP("dry-run", "n", false, "show changes without applying them")
	cmd.Flags().BoolP("auto", "a", false, "apply changes without asking")
	cmd.Flags().String("strategy", "", "cleaning strategy (regex, guess)")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "auto")
}

func runRename(cmd *cobra.Command, args []string) error {
	return runRenamer(cmd, args[0], rename.RequireDir, rename.ListDirs, func(r *rename.Renamer) func(context.Context, string) (rename.Outcome, error) {
		return r.RenameDir
	})
}

// runRenamer resolves the paths to process, builds a Renamer from flags and
// config, and reports a summary. Without --dir, PATH must pass check; with
// --dir it must be a directory.
func runRenamer(
	cmd *cobra.Command,
	path string,
	check func(string) error,
	list func(string) ([]string, error),
	op func(*rename.Renamer) func(context.Context, string) (rename.Outcome, error),
) error {
	ctx := cmd.Context()

	dirMode, _ := cmd.Flags().GetBool("dir")
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	auto, _ := cmd.Flags().GetBool("auto")

	if dirMode {
		check = rename.RequireDir
	}
	if err := check(path); err != nil {
		return err
	}

	strategy := cfg.Strategy
	if cmd.Flags().Changed("strategy") {
		strategy, _ = cmd.Flags().GetString("strategy")
	}
	cleaner, err := newCleaner(strategy)
	if err != nil {
		return err
	}

	paths := []string{path}
	if dirMode {
		paths, err = list(path)
		if err != nil {
			return err
		}
	}

	console := newConsole(cmd)
	r := &rename.Renamer{
		Cleaner:  cleaner,
		Prompter: console,
		Out:      console.Out,
		Diff:     console.Diff,
		Logger:   logger,
		Options:  rename.Options{DryRun: dryRun, Auto: auto},
	}
	if yes {
		r.Options.DefaultChoice = "y"
	}

	if !dryRun {
		j, err := openJournal(ctx)
		if err != nil {
			return err
		}
		if j != nil {
			defer j.Close()
			r.Recorder = j
		}
	}

	summary, err := r.Run(ctx, paths, op(r))
	if err != nil {
		return err
	}
	logger.Debugw("run finished",
		"done", summary.Counts[rename.Done],
		"planned", summary.Counts[rename.Planned],
		"skipped", summary.Counts[rename.Skipped],
		"unchanged", summary.Counts[rename.Unchanged],
		"failed", summary.Counts[rename.Failed],
		"quit", summary.Quit)

	if n := summary.Counts[rename.Failed]; n > 0 {
		return fmt.Errorf("%d of %d paths failed", n, len(paths))
	}
	return nil
}
