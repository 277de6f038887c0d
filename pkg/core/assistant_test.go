package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ld/ainote/pkg/adapters/memory"
	"github.com/ld/ainote/pkg/core"
)

type fakeAssistant struct {
	got core.AskRequest
	out string
	err error
}

func (f *fakeAssistant) Ask(ctx context.Context, req core.AskRequest) (string, error) {
	f.got = req
	return f.out, f.err
}

func TestParseTaskKind(t *testing.T) {
	for in, want := range map[string]core.TaskKind{
		"":          core.TaskSummary,
		"Summary":   core.TaskSummary,
		" quiz ":    core.TaskQuiz,
		"integrate": core.TaskIntegrate,
	} {
		got, err := core.ParseTaskKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := core.ParseTaskKind("poem")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestParseAge(t *testing.T) {
	assert.Nil(t, core.ParseAge(""))
	assert.Nil(t, core.ParseAge("two"))
	assert.Nil(t, core.ParseAge("2"))
	assert.Nil(t, core.ParseAge("121"))
	require.NotNil(t, core.ParseAge(" 12 "))
	assert.Equal(t, 12, *core.ParseAge("12"))
}

func TestService_Ask(t *testing.T) {
	fa := &fakeAssistant{out: "summary text"}
	svc := core.NewService(memory.New(), core.WithAssistant(fa))

	out, err := svc.Ask(context.TODO(), "me", core.Note{Title: "T", Content: "C"}, core.AskRequest{Task: core.TaskQuiz})
	require.NoError(t, err)
	assert.Equal(t, "summary text", out)
	assert.Equal(t, core.DefaultQuizCount, fa.got.Count)
	assert.Equal(t, "[Title] T\n[Content]\nC", fa.got.Text)
}

func TestService_AskKeepsExplicitCount(t *testing.T) {
	fa := &fakeAssistant{out: "q"}
	svc := core.NewService(memory.New(), core.WithAssistant(fa))

	_, err := svc.Ask(context.TODO(), "me", core.Note{Title: "T"}, core.AskRequest{Task: core.TaskQuiz, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, fa.got.Count)

	_, err = svc.Ask(context.TODO(), "me", core.Note{Title: "T"}, core.AskRequest{Task: core.TaskQuiz, Count: -2})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultQuizCount, fa.got.Count)
}

func TestService_AskErrors(t *testing.T) {
	_, err := core.NewService(memory.New()).Ask(context.TODO(), "me", core.Note{}, core.AskRequest{})
	assert.ErrorIs(t, err, core.ErrUnsupported)

	boom := errors.New("quota exceeded")
	svc := core.NewService(memory.New(), core.WithAssistant(&fakeAssistant{err: boom}))
	_, err = svc.Ask(context.TODO(), "me", core.Note{}, core.AskRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestService_SaveAssistantResult(t *testing.T) {
	store := memory.New()
	svc := core.NewService(store)
	ctx := context.TODO()

	_, err := svc.SaveAssistantResult(ctx, "me", core.Note{Title: "T"}, "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, store.Calls())

	id, err := svc.SaveAssistantResult(ctx, "me", core.Note{Stack: "Bio"}, " generated ")
	require.NoError(t, err)

	n, err := svc.Get(ctx, "me", "", id)
	require.NoError(t, err)
	assert.Equal(t, "(untitled) (AI assistant)", n.Title)
	assert.Equal(t, "generated", n.Content)
	assert.Equal(t, "Bio", n.Stack)
}
