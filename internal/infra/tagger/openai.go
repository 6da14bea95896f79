package tagger

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"newssense/internal/resilience/retry"
)

// NewOpenAI returns a tagger backed by the OpenAI chat completions API.
func NewOpenAI(cfg Config) *Remote {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return newRemote(ProviderOpenAI, cfg.Timeout, func(ctx context.Context, p string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     model,
			MaxTokens: 4,
			Messages: []openai.ChatCompletionMessage{{
				Role:    openai.ChatMessageRoleUser,
				Content: p,
			}},
		})
		if err != nil {
			return "", fmt.Errorf("openai api error: %w", openAIStatus(err))
		}
		// Validate response structure (safety check to prevent panic on array access)
		if len(resp.Choices) == 0 {
			return "", errors.New("openai api returned empty response")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// openAIStatus exposes the HTTP status so retry can classify it.
func openAIStatus(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return errors.Join(err, &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return errors.Join(err, &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()})
	}
	return err
}
