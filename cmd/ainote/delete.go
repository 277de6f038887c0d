package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteOwner string

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete one of your notes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		if err := s.svc.Delete(context.Background(), s.user, deleteOwner, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteOwner, "owner", "", "Owner of the note (default: you)")
	rootCmd.AddCommand(deleteCmd)
}
