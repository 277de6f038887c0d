package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ld/ainote"
)

var friendName string

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List the people you can share notes with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		friends, err := s.svc.Friends(context.Background(), s.user)
		if err != nil {
			return err
		}
		if len(friends) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no friends")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, f := range friends {
			fmt.Fprintf(tw, "%s\t%s\n", f.Label(), ownerStyle.Render(f.UID))
		}
		return tw.Flush()
	},
}

var friendsAddCmd = &cobra.Command{
	Use:   "add <uid>",
	Short: "Add a friend or change their display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		f := ainote.Friend{UID: args[0], DisplayName: friendName}
		if err := s.svc.AddFriend(context.Background(), s.user, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", f.Label())
		return nil
	},
}

var friendsRemoveCmd = &cobra.Command{
	Use:     "remove <uid>",
	Aliases: []string{"rm"},
	Short:   "Remove a friend",
	Long:    `Remove a friend. Notes already shared with them stay shared.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		if err := s.svc.RemoveFriend(context.Background(), s.user, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

func init() {
	friendsAddCmd.Flags().StringVarP(&friendName, "name", "n", "", "Display name")
	friendsCmd.AddCommand(friendsAddCmd, friendsRemoveCmd)
	rootCmd.AddCommand(friendsCmd)
}
