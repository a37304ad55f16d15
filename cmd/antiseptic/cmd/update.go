package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the latest rules, keeping custom rules",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolP("force", "f", false, "update even when the local rules are current")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	res, err := newUpdater().Update(cmd.Context(), force)
	if err != nil {
		return fmt.Errorf("failed to update rules: %w", err)
	}

	console := newConsole(cmd)
	if !res.Updated {
		fmt.Fprint(console.Out, console.Notice("Up to date", "Rules version: "+res.Local))
		return nil
	}
	body := fmt.Sprintf("Version: %s\nRules: %d\nCustom rules kept: %d\nSaved to: %s",
		res.Remote, res.Report.Fresh, res.Report.Custom, cfg.RulesFilename)
	fmt.Fprint(console.Out, console.Notice("Rules updated", body))
	return nil
}
