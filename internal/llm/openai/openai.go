// Package openai is a domain.Completer backed by any OpenAI-compatible server.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
)

// Mode selects the endpoint prompts are sent to.
type Mode string

const (
	// ModeCompletion sends the rendered ChatML text as a raw prompt to /completions.
	ModeCompletion Mode = "completion"
	// ModeChat sends the prompt as a single user message to /chat/completions.
	ModeChat Mode = "chat"
)

// endOfTurn stops raw completions at the end of the assistant turn.
const endOfTurn = "<|im_end|>"

// Config configures the completion client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the key. Local servers
	// usually accept an empty key.
	APIKeyEnv string
	Model     string
	Mode      Mode
	Timeout   time.Duration
}

// Completer sends prompts to the configured model.
type Completer struct {
	api   *goopenai.Client
	model string
	mode  Mode
}

// NewCompleter creates a completion client.
func NewCompleter(cfg Config) (*Completer, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeCompletion
	}
	if cfg.Mode != ModeCompletion && cfg.Mode != ModeChat {
		return nil, fmt.Errorf("%w: unknown completion mode %q", domain.ErrInvalidArgument, cfg.Mode)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: completion model is required", domain.ErrInvalidArgument)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Completer{api: goopenai.NewClientWithConfig(oc), model: cfg.Model, mode: cfg.Mode}, nil
}

// Complete returns the model's continuation of prompt, verbatim.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", fmt.Errorf("%w: max_tokens must be positive, got %d", domain.ErrInvalidArgument, maxTokens)
	}
	if c.mode == ModeChat {
		return c.chat(ctx, prompt, maxTokens)
	}
	resp, err := c.api.CreateCompletion(ctx, goopenai.CompletionRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
		Stop:      []string{endOfTurn},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: server returned no choices", domain.ErrCompletion)
	}
	return resp.Choices[0].Text, nil
}

func (c *Completer) chat(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: server returned no choices", domain.ErrCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ domain.Completer = (*Completer)(nil)
