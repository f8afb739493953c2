package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair <db>",
	Short: "Rebuild a stale trailing header from surviving B-tree nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}
		result, err := svc.Repair(args[0])
		if err != nil {
			return fmt.Errorf("repair %s: %w", args[0], err)
		}
		switch result.Status {
		case "no_header":
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no valid header found; try lost-and-found\n", args[0])
		case "ok":
			fmt.Fprintf(cmd.OutOrStdout(), "%s: header already up to date\n", args[0])
		case "repaired":
			fmt.Fprintf(cmd.OutOrStdout(), "%s: repaired, update_seq=%d, by_id_root=%d, by_seq_root=%d\n",
				args[0], result.UpdateSeq, result.ByIDRoot.Offset, result.BySeqRoot.Offset)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
