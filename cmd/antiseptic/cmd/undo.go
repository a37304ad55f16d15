package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo ID",
	Short: "Reverse a recorded rename or wrap",
	Long:  `Reverse a recorded rename or wrap. ID is a journal entry id as shown by 'antiseptic history', or a unique prefix of one.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	j, err := requireJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	e, err := j.Undo(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to undo %s: %w", args[0], err)
	}
	logger.Infow("undone", "entry", e.ID, "operation", e.Operation)
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", e.Source)
	return nil
}
