// Package llm implements the four dialogue reasoning contracts on top of
// the OpenAI chat-completions API. The dialogue controller only ever sees
// the structured decisions; prompt content lives entirely in this package.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/knowledge"
	"github.com/medicall/agent/internal/reliability"
)

// Config carries explicit client settings; there are no ambient globals.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// Client answers all four reasoning contracts: disease inference,
// escalation assessment, location resolution, and first-aid guidance.
type Client struct {
	api         *openai.Client
	kb          *knowledge.Base
	model       string
	temperature float32
}

var (
	_ dialogue.ReasoningClient  = (*Client)(nil)
	_ dialogue.EscalationOracle = (*Client)(nil)
	_ dialogue.LocationResolver = (*Client)(nil)
	_ dialogue.FirstAidGuide    = (*Client)(nil)
)

func NewClient(cfg Config, kb *knowledge.Base) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		kb:          kb,
		model:       model,
		temperature: temperature,
	}
}

// complete runs one system+user chat completion and returns the trimmed
// assistant reply.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", reliability.AsContent(fmt.Errorf("completion returned no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// transcript renders a stage log as role-prefixed lines for prompting.
func transcript(log []dialogue.Message) string {
	lines := make([]string, 0, len(log))
	for _, m := range log {
		lines = append(lines, string(m.Role)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func lastAssistantText(log []dialogue.Message) string {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Role == dialogue.RoleAssistant {
			return log[i].Text
		}
	}
	return ""
}

func assistantTexts(log []dialogue.Message) []string {
	var out []string
	for _, m := range log {
		if m.Role == dialogue.RoleAssistant {
			out = append(out, m.Text)
		}
	}
	return out
}
