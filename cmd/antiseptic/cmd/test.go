package cmd

import (
	"fmt"

	"github.com/solatis/antiseptic/internal/display"
	"github.com/solatis/antiseptic/internal/rules"
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the tests embedded in the active rules",
	Args:  cobra.NoArgs,
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().Bool("failed", false, "only show failing tests")
}

func runTest(cmd *cobra.Command, args []string) error {
	store, _, err := loadStore()
	if err != nil {
		return err
	}

	results := rules.RunTests(store)
	failed := rules.Failed(results)

	shown := results
	if only, _ := cmd.Flags().GetBool("failed"); only {
		shown = shown[:0:0]
		for _, r := range results {
			if !r.Passed {
				shown = append(shown, r)
			}
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), display.TestTable(shown))

	if failed > 0 {
		return fmt.Errorf("%d of %d rule tests failed", failed, len(results))
	}
	return nil
}
