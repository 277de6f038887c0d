package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ld/ainote/pkg/core"
	"github.com/ld/ainote/pkg/view"
)

var (
	listJSON    bool
	listGroup   bool
	listKeyword string
	listExpand  []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notes and the notes shared with you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, func(user string, n core.Note) bool { return true })
	},
}

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "List only the notes other users shared with you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, func(user string, n core.Note) bool { return n.OwnerID != user })
	},
}

func runList(cmd *cobra.Command, keep func(user string, n core.Note) bool) error {
	s, err := openService()
	if err != nil {
		return err
	}
	defer s.svc.Close()

	notes, err := s.svc.MyAndShared(context.Background(), s.user)
	if err != nil {
		return err
	}
	kept := notes[:0]
	for _, n := range notes {
		if keep(s.user, n) {
			kept = append(kept, n)
		}
	}

	rows := view.Project(view.State{
		Notes:    kept,
		Keyword:  listKeyword,
		Grouped:  listGroup,
		Expanded: expandSet(listExpand),
	})
	if listJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	return renderRows(cmd.OutOrStdout(), s.user, rows)
}

// expandSet turns --expand values into the expanded map.
func expandSet(categories []string) map[string]bool {
	out := make(map[string]bool, len(categories))
	for _, c := range categories {
		out[c] = true
	}
	return out
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&listJSON, "json", false, "Output rows as JSON")
	cmd.Flags().BoolVarP(&listGroup, "group", "g", false, "Group notes by stack")
	cmd.Flags().StringVarP(&listKeyword, "keyword", "k", "", "Only notes whose title or content contains this text")
	cmd.Flags().StringSliceVarP(&listExpand, "expand", "e", nil, "Stacks to expand in grouped mode")
}

func init() {
	addListFlags(listCmd)
	addListFlags(sharedCmd)
	rootCmd.AddCommand(listCmd, sharedCmd)
}
