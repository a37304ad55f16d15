package cmd

import (
	"fmt"
	"time"

	"github.com/solatis/antiseptic/internal/display"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent renames and wraps",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	j, err := requireJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), display.HistoryTable(entries, time.Now()))
	return nil
}
