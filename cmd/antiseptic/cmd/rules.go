package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/solatis/antiseptic/internal/display"
	"github.com/solatis/antiseptic/internal/rules"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active rules and rejected records",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	// Warnings go to the table, not the log.
	store, warnings, err := rules.LoadFile(cfg.RulesFilename, cfg.DisabledRules, nil)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no rules at %s, run 'antiseptic update' first", cfg.RulesFilename)
	}
	if err != nil {
		return fmt.Errorf("failed to load rules from %s: %w", cfg.RulesFilename, err)
	}

	out := cmd.OutOrStdout()
	if v := store.Version(); v != "" {
		fmt.Fprintf(out, "Rules version %s from %s\n", v, cfg.RulesFilename)
	}
	fmt.Fprintln(out, display.RulesTable(store.Rules()))
	if len(warnings) > 0 {
		fmt.Fprintln(out, display.WarningsTable(warnings))
	}
	return nil
}
