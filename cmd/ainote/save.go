package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ld/ainote/pkg/core"
)

var (
	saveID      string
	saveOwner   string
	saveTitle   string
	saveContent string
	saveStack   string
	saveChapter int
	saveSection int
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create a note, or update one with --id",
	Long: `Create a note, or update the note given by --id. Only flags you pass
are changed on update. Use --content - to read the content from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openService()
		if err != nil {
			return err
		}
		defer s.svc.Close()
		ctx := context.Background()

		var sess *core.Session
		if saveID == "" {
			sess = s.svc.NewSession(s.user)
		} else if sess, err = s.svc.OpenSession(ctx, s.user, saveOwner, saveID); err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("title") {
			sess.Title = saveTitle
		}
		if flags.Changed("content") {
			content := saveContent
			if content == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(data)
			}
			sess.Content = content
		}
		if flags.Changed("stack") {
			sess.Stack = saveStack
		}
		if flags.Changed("chapter") {
			sess.Chapter = saveChapter
		}
		if flags.Changed("section") {
			sess.Section = saveSection
		}

		if err := sess.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sess.ID())
		return nil
	},
}

func init() {
	f := saveCmd.Flags()
	f.StringVar(&saveID, "id", "", "Note to update (default: create a new note)")
	f.StringVar(&saveOwner, "owner", "", "Owner of the note to update (default: you)")
	f.StringVarP(&saveTitle, "title", "t", "", "Title")
	f.StringVar(&saveContent, "content", "", "Content, or - for stdin")
	f.StringVarP(&saveStack, "stack", "s", "", "Stack (category)")
	f.IntVar(&saveChapter, "chapter", 0, "Chapter number")
	f.IntVar(&saveSection, "section", 0, "Section number")
	rootCmd.AddCommand(saveCmd)
}
