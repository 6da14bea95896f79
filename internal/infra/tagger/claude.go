package tagger

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"newssense/internal/resilience/retry"
)

// NewClaude returns a tagger backed by the Anthropic Messages API.
func NewClaude(cfg Config) *Remote {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retry は自前
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = "claude-haiku-4-5"
	}

	return newRemote(ProviderClaude, cfg.Timeout, func(ctx context.Context, p string) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 8,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(p)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("claude api error: %w", claudeStatus(err))
		}
		if len(message.Content) == 0 {
			return "", errors.New("claude api returned empty response")
		}
		textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
		if !ok {
			return "", errors.New("claude api returned unexpected response type")
		}
		return textBlock.Text, nil
	})
}

func claudeStatus(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return errors.Join(err, &retry.HTTPError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()})
	}
	return err
}
