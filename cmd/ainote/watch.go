package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ld/ainote/pkg/view"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print your notes again whenever they change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		snaps, err := s.svc.Subscribe(ctx, s.user)
		if err != nil {
			return err
		}

		p := view.NewProjector()
		p.SetKeyword(listKeyword)
		p.SetExpanded(listExpand)
		p.SetGrouped(listGroup)

		out := cmd.OutOrStdout()
		err = p.Follow(ctx, snaps,
			func(rows []view.Row) {
				fmt.Fprintln(out, "---")
				if err := renderRows(out, s.user, rows); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			},
			func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	addListFlags(watchCmd)
	_ = watchCmd.Flags().MarkHidden("json")
	rootCmd.AddCommand(watchCmd)
}
