package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var findNodesCmd = &cobra.Command{
	Use:   "find-nodes <db>",
	Short: "List candidate by-id leaf offsets the signature scanner finds in a database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}
		offsets, err := svc.FindNodesQuickly(args[0])
		if err != nil {
			return fmt.Errorf("find-nodes %s: %w", args[0], err)
		}
		for _, off := range offsets {
			fmt.Fprintln(cmd.OutOrStdout(), off)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findNodesCmd)
}
