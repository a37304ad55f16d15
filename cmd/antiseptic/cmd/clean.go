package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean NAME...",
	Short: "Print cleaned names without touching the filesystem",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().String("strategy", "", "cleaning strategy (regex, guess)")
	cleanCmd.Flags().Bool("diff", false, "show each change as a diff")
}

func runClean(cmd *cobra.Command, args []string) error {
	strategy := cfg.Strategy
	if cmd.Flags().Changed("strategy") {
		strategy, _ = cmd.Flags().GetString("strategy")
	}
	cleaner, err := newCleaner(strategy)
	if err != nil {
		return err
	}
	showDiff, _ := cmd.Flags().GetBool("diff")

	console := newConsole(cmd)
	for _, name := range args {
		result, err := cleaner.Clean(name)
		if err != nil {
			logger.Warnw("cannot clean", "name", name, "strategy", cleaner.Name(), "error", err)
			fmt.Fprintln(console.Out, name)
			continue
		}
		if showDiff && result.Changed(name) {
			fmt.Fprint(console.Out, console.Diff(name, result.Text))
			continue
		}
		fmt.Fprintln(console.Out, result.Text)
	}
	return nil
}
