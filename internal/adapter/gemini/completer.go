package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

func (c *Client) Completer(model string, temperature float32) *Completer {
	return &Completer{client: c.client, model: model, temperature: temperature}
}

// Completer sends one system instruction and one user message per call.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
}

func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	slog.DebugContext(ctx, "generating content", "model", c.model, "prompt_length", len(user))

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("generate content: %w", ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
