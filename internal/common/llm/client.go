// Package llm wraps the chat completion service used for intent extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"pharmacy-agent/internal/common/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var (
	ErrCompletionFailed = errors.New("LLM_COMPLETION_FAILED")
	ErrEmptyCompletion  = errors.New("LLM_EMPTY_COMPLETION")
	ErrTimeout          = errors.New("LLM_TIMEOUT")
)

// Completer turns a system instruction and user text into model output.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is a Completer backed by the OpenAI or Azure OpenAI chat API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient builds a client for cfg.Provider. Requests are never retried.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.GetDuration(cfg.Timeout)),
	}

	switch cfg.Provider {
	case "azure":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: azure endpoint is required", ErrCompletionFailed)
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case "openai", "":
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrCompletionFailed, cfg.Provider)
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Complete runs a single deterministic completion and asks for a JSON object.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	out, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("%w: after %s: %v", ErrTimeout, time.Since(start).Round(time.Millisecond), err)
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
