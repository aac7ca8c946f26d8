package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrServiceUnavailable marks a failed or empty recommendation call.
var ErrServiceUnavailable = errors.New("external service unavailable")

// Client wraps the OpenAI API client
type Client struct {
	client *openai.Client
	logger zerolog.Logger
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
		logger: log.With().Str("component", "openai_client").Logger(),
	}
}

// Complete sends the trading prompt and returns the raw model output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Int("prompt_len", len(prompt)).Msg("Sending prompt to OpenAI")

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       openai.GPT4,
			Temperature: 0.3,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)

	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		return "", fmt.Errorf("%w: empty choices", ErrServiceUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}
