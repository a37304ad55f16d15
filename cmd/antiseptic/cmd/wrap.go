package cmd

import (
	"context"

	"github.com/solatis/antiseptic/internal/rename"
	"github.com/spf13/cobra"
)

var wrapCmd = &cobra.Command{
	Use:   "wrap PATH",
	Short: "Move a file into a new directory named after its cleaned name",
	Args:  cobra.ExactArgs(1),
	RunE:  runWrap,
}

func init() {
	rootCmd.AddCommand(wrapCmd)
	addRenameFlags(wrapCmd, "treat PATH as a parent and wrap each file in it")
}

func runWrap(cmd *cobra.Command, args []string) error {
	return runRenamer(cmd, args[0], rename.RequireFile, rename.ListFiles, func(r *rename.Renamer) func(context.Context, string) (rename.Outcome, error) {
		return r.WrapFile
	})
}
