package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ld/ainote/pkg/core"
)

var (
	askOwner  string
	askTask   string
	askCount  int
	askAge    string
	askSave   bool
	askRender bool
)

var askCmd = &cobra.Command{
	Use:   "ask <id>",
	Short: "Summarize a note, quiz yourself on it, or reorganize it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := core.ParseTaskKind(askTask)
		if err != nil {
			return err
		}

		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()
		ctx := context.Background()

		n, err := s.svc.Get(ctx, s.user, askOwner, args[0])
		if err != nil {
			return err
		}
		out, err := s.svc.Ask(ctx, s.user, n, core.AskRequest{
			Task:  task,
			Count: askCount,
			Age:   core.ParseAge(askAge),
		})
		if err != nil {
			return err
		}
		if askRender {
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(out))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}

		if askSave {
			id, err := s.svc.SaveAssistantResult(ctx, s.user, n, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved as %s\n", id)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askOwner, "owner", "", "Owner of the note (default: you)")
	askCmd.Flags().StringVar(&askTask, "task", "summary", "summary, quiz or integrate")
	askCmd.Flags().IntVarP(&askCount, "count", "n", core.DefaultQuizCount, "Number of quiz questions")
	askCmd.Flags().StringVar(&askAge, "age", "", "Reader age hint (3-120)")
	askCmd.Flags().BoolVar(&askSave, "save", false, "Store the answer as a new note")
	askCmd.Flags().BoolVarP(&askRender, "render", "r", false, "Render the answer as markdown")
	rootCmd.AddCommand(askCmd)
}
