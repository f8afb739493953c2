package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lostAndFoundCmd = &cobra.Command{
	Use:   "lost-and-found <db>",
	Short: "Scan a database for surviving by-id roots and merge them into lost+found/<db>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}
		result, err := svc.MakeLostAndFound(args[0])
		if err != nil {
			return fmt.Errorf("lost-and-found %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d candidate roots, %d merged, %d failed\n",
			args[0], len(result.CandidateRoots), len(result.Merged), len(result.Failed))
		for _, f := range result.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "  root at offset %d failed: %v\n", f.Offset, f.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lostAndFoundCmd)
}
