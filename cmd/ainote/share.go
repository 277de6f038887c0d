package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	shareOwner string
	shareWith  []string
	shareClear bool
	sharePick  bool
)

var shareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "Replace the collaborators of a note",
	Long: `Replace the collaborators of a note with the users given by --with.
Without --with (and without --clear) the current collaborators are printed.
With --pick your friends are listed, checked when the note is shared with them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()
		ctx := context.Background()

		if sharePick {
			return printShareOptions(ctx, cmd, s, args[0])
		}

		var uids []string
		if len(shareWith) == 0 && !shareClear {
			uids, err = s.svc.Collaborators(ctx, s.user, shareOwner, args[0])
		} else {
			uids, err = s.svc.SetCollaborators(ctx, s.user, shareOwner, args[0], shareWith)
		}
		if err != nil {
			return err
		}
		if len(uids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "not shared")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "shared with %s\n", strings.Join(uids, ", "))
		return nil
	},
}

func init() {
	shareCmd.Flags().StringVar(&shareOwner, "owner", "", "Owner of the note (default: you)")
	shareCmd.Flags().StringSliceVarP(&shareWith, "with", "w", nil, "User ids to share with")
	shareCmd.Flags().BoolVar(&shareClear, "clear", false, "Stop sharing the note")
	shareCmd.Flags().BoolVar(&sharePick, "pick", false, "List friends with their sharing state")
	shareCmd.MarkFlagsMutuallyExclusive("pick", "with", "clear")
	rootCmd.AddCommand(shareCmd)
}

func printShareOptions(ctx context.Context, cmd *cobra.Command, s *session, noteID string) error {
	sess, err := s.svc.OpenSession(ctx, s.user, shareOwner, noteID)
	if err != nil {
		return err
	}
	opts, err := sess.ShareOptions(ctx)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no friends to share with")
		return nil
	}
	for _, o := range opts {
		mark := "[ ]"
		if o.Checked {
			mark = "[x]"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", mark, o.Label(), o.UID)
	}
	return nil
}
