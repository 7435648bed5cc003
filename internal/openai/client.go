// Package openai adapts the completion service behind a narrow interface.
// It owns the timeout and retry policy for every outbound call.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loomworks/careerlens/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the completion model used when none is configured
	DefaultModel = openai.GPT3Dot5Turbo
	// DefaultTemperature matches the sampling temperature of the analysis prompts
	DefaultTemperature float32 = 0.7
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the retry budget for transient failures
	DefaultMaxRetries = 2
	// DefaultRetryDelay is the base delay between retries
	DefaultRetryDelay = 2 * time.Second
)

// ErrNoAPIKey is returned when the OpenAI API key is not set
var ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

// CompletionAPI defines the interface for chat completion calls
type CompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options control a single completion call.
type Options struct {
	Model       string
	Temperature float32
}

// Client wraps the OpenAI API client with timeout and bounded retries.
// Retries happen only on transient unavailability; a malformed response or
// a rate limit surfaces immediately.
type Client struct {
	api        CompletionAPI
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// Config holds explicit client configuration.
type Config struct {
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new completion client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new completion client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// NewClientFromEnv creates a new completion client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Complete sends a single-message prompt and returns the generated text.
// The adapter validates only that a non-empty message body came back; it
// never inspects the semantic content.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, req)
		cancel()

		if err == nil {
			content := ""
			if len(resp.Choices) > 0 {
				content = strings.TrimSpace(resp.Choices[0].Message.Content)
			}
			if content == "" {
				return "", domain.ErrMalformedResponse
			}
			return content, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		classified, retryable := classify(err)
		if !retryable {
			return "", classified
		}
		lastErr = classified
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// classify maps a transport error onto the domain taxonomy and reports
// whether the call may be retried.
func classify(err error) (error, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err), false
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err), true
		default:
			return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "completion request rejected", err), false
		}
	}

	// Per-call timeouts and network failures are transient.
	return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err), true
}
