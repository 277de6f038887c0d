// Package genai implements core.Assistant on Google's Gemini API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/ld/ainote/pkg/core"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const systemPrompt = "You are a study assistant working on a student's note. " +
	"Answer in the language the note is written in. Use plain text without markdown headings."

// Config configures the assistant.
type Config struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

// generator is the slice of the Gemini client the assistant needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Assistant answers summary, quiz and integrate requests.
type Assistant struct {
	models generator
	model  string
	logger *slog.Logger
}

// New creates a Gemini-backed assistant.
func New(ctx context.Context, cfg Config) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GenAI API key is required", core.ErrValidation)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newAssistant(client.Models, cfg), nil
}

func newAssistant(models generator, cfg Config) *Assistant {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Assistant{models: models, model: cfg.Model, logger: cfg.Logger}
}

// Ask implements core.Assistant.
func (a *Assistant) Ask(ctx context.Context, req core.AskRequest) (string, error) {
	prompt := BuildPrompt(req)
	a.logger.Debug("asking assistant", "model", a.model, "task", req.Task, "prompt_len", len(prompt))

	resp, err := a.models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("generate content: empty response")
	}
	return text, nil
}

// BuildPrompt renders the instruction for a request.
func BuildPrompt(req core.AskRequest) string {
	var b strings.Builder
	switch req.Task {
	case core.TaskQuiz:
		count := req.Count
		if count < 1 {
			count = core.DefaultQuizCount
		}
		fmt.Fprintf(&b, "Write %d quiz questions that test understanding of the note below. ", count)
		b.WriteString("Number them, and list the answers after all questions.")
	case core.TaskIntegrate:
		b.WriteString("Reorganize the note below into a coherent study sheet: ")
		b.WriteString("merge duplicated points, order the ideas logically and fill obvious gaps.")
	default:
		b.WriteString("Summarize the note below. Keep the key terms and stay under 200 words.")
	}
	if req.Age != nil {
		fmt.Fprintf(&b, " The reader is %d years old; adjust vocabulary and depth to that age.", *req.Age)
	}
	b.WriteString("\n\n")
	b.WriteString(req.Text)
	return b.String()
}

var _ core.Assistant = (*Assistant)(nil)
