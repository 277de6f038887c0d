package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TaskKind selects what the assistant produces from a note.
type TaskKind string

const (
	TaskSummary   TaskKind = "summary"
	TaskQuiz      TaskKind = "quiz"
	TaskIntegrate TaskKind = "integrate"
)

// DefaultQuizCount is the number of questions asked for when none is given.
const DefaultQuizCount = 3

// UntitledLabel is shown in place of an empty title.
const UntitledLabel = "(untitled)"

// AssistantSuffix is appended to the source title of notes saved from an
// assistant result.
const AssistantSuffix = " (AI assistant)"

// AskRequest is the input of an assistant call.
type AskRequest struct {
	Task  TaskKind
	Text  string
	Count int
	// Age is an optional reader-age hint.
	Age *int
}

// Assistant is the AI collaborator. Implementations may fail.
type Assistant interface {
	Ask(ctx context.Context, req AskRequest) (string, error)
}

// ParseTaskKind maps a user-supplied task name to a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", TaskSummary:
		return TaskSummary, nil
	case TaskQuiz:
		return TaskQuiz, nil
	case TaskIntegrate:
		return TaskIntegrate, nil
	}
	return "", validationError("unknown task %q", s)
}

// ParseAge returns the age hint in s, or nil when s is empty, not a number,
// or outside 3..120.
func ParseAge(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 3 || v > 120 {
		return nil
	}
	return &v
}

// NoteText renders the note as the source text handed to the assistant.
func NoteText(n Note) string {
	return "[Title] " + n.Title + "\n[Content]\n" + n.Content
}

// Ask runs an assistant task over a note.
func (s *Service) Ask(ctx context.Context, caller string, n Note, req AskRequest) (string, error) {
	if caller == "" {
		return "", ErrNotAuthenticated
	}
	if s.assistant == nil {
		return "", fmt.Errorf("%w: no assistant configured", ErrUnsupported)
	}
	if req.Task == "" {
		req.Task = TaskSummary
	}
	if req.Count < 1 {
		req.Count = DefaultQuizCount
	}
	if req.Text == "" {
		req.Text = NoteText(n)
	}

	s.logger.Debug("asking assistant", "task", req.Task, "count", req.Count, "note", n.Key())
	out, err := s.assistant.Ask(ctx, req)
	if err != nil {
		return "", fmt.Errorf("assistant %s: %w", req.Task, err)
	}
	return out, nil
}

// SaveAssistantResult stores an assistant result as a new note of the caller,
// titled after the source note and filed in the same stack.
func (s *Service) SaveAssistantResult(ctx context.Context, caller string, source Note, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validationError("nothing to save, generate a result first")
	}
	title := source.Title
	if title == "" {
		title = UntitledLabel
	}
	return s.Add(ctx, caller, Note{
		Title:   title + AssistantSuffix,
		Content: text,
		Stack:   source.Stack,
	})
}
