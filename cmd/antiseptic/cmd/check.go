package cmd

import (
	"fmt"

	"github.com/solatis/antiseptic/internal/version"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether newer rules are available",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	res, err := newUpdater().Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	local := res.Local
	if local == "" {
		local = "none"
	}
	console := newConsole(cmd)
	if res.Status == version.Stale {
		fmt.Fprint(console.Out, console.Notice("Update available",
			fmt.Sprintf("Local rules: %s\nLatest rules: %s\nRun 'antiseptic update' to get them.", local, res.Remote)))
		return nil
	}
	fmt.Fprint(console.Out, console.Notice("Up to date", "Rules version: "+local))
	return nil
}
