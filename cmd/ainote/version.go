package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ld/ainote"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ainote",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ainote version %s\n", strings.TrimSpace(ainote.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
