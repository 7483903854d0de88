// Package ai sends grounded prompts to an OpenAI compatible chat endpoint.
package ai

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

var ErrEmptyReply = errors.New("empty reply")

// Sampling is the fixed generation config used for every answer.
// Chat completions have no top_k knob, so it is not carried here.
type Sampling struct {
	Temperature float64
	TopP        float64
	MaxTokens   int64
}

var DefaultSampling = Sampling{
	Temperature: 0.5,
	TopP:        0.99,
	MaxTokens:   2000,
}

type Client struct {
	api      openai.Client
	model    string
	sampling Sampling
	timeout  time.Duration
}

func NewClient(api openai.Client, model string, sampling Sampling, timeout time.Duration) *Client {
	return &Client{
		api:      api,
		model:    model,
		sampling: sampling,
		timeout:  timeout,
	}
}

// Answer returns the raw text reply for prompt.
func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:               openai.ChatModel(c.model),
		Temperature:         openai.Float(c.sampling.Temperature),
		TopP:                openai.Float(c.sampling.TopP),
		MaxCompletionTokens: openai.Int(c.sampling.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", ErrEmptyReply)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content: %w", ErrEmptyReply)
	}

	log.Debug("Answered", "model", c.model, "chars", len(content))
	return content, nil
}
