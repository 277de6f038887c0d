package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	showJSON   bool
	showOwner  string
	showRender bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		n, err := s.svc.Get(context.Background(), s.user, showOwner, args[0])
		if err != nil {
			return err
		}
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), n)
		}
		return renderNote(cmd.OutOrStdout(), n, showRender)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVarP(&showRender, "render", "r", false, "Render the content as markdown")
	showCmd.Flags().StringVar(&showOwner, "owner", "", "Owner of the note (default: you)")
	rootCmd.AddCommand(showCmd)
}
