// Package llm wraps an OpenAI-compatible chat API behind a small gateway
// with a stable failure taxonomy. Callers branch on the sentinel errors
// with errors.Is and never see transport details.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nlavrov/studium/internal/llm/prompts"
)

// Sentinel errors classifying every way a generation can fail.
var (
	// ErrMissingCredential means no API key is configured. No network
	// call is attempted.
	ErrMissingCredential = errors.New("llm: missing API credential")
	// ErrInvalidCredential means the backend rejected the API key.
	ErrInvalidCredential = errors.New("llm: invalid API credential")
	// ErrRateLimited means quota is exhausted or requests are throttled.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrUnavailable means the backend is temporarily down or overloaded.
	ErrUnavailable = errors.New("llm: service unavailable")
	// ErrNoContent means the call succeeded but produced no usable text.
	ErrNoContent = errors.New("llm: no content produced")
	// ErrNoModel means no candidate model answered the probe.
	ErrNoModel = errors.New("llm: no usable model")
)

const (
	// DefaultMaxTokens caps ordinary generations.
	DefaultMaxTokens = 1200
	// LongFormMaxTokens caps study guide and diagnostic generations.
	LongFormMaxTokens = 1400

	probePrompt = "Say OK"
)

// DefaultCandidates is the model probe order when none is configured.
var DefaultCandidates = []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}

// Client is an AI gateway over an OpenAI-compatible endpoint. It probes
// a candidate model list on first use and caches the first model that
// answers; an unclassified failure invalidates the cache so the next
// call re-probes.
type Client struct {
	api        *openai.Client
	apiKey     string
	candidates []string

	mu     sync.Mutex
	active string
}

// New creates a gateway client. An empty baseURL uses the default OpenAI
// endpoint; an empty candidates list falls back to DefaultCandidates.
func New(baseURL, apiKey string, candidates []string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		apiKey:     apiKey,
		candidates: candidates,
	}
}

// Generate produces a completion for prompt at the given temperature.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return c.generate(ctx, prompt, temperature, DefaultMaxTokens)
}

// GenerateLong is Generate with the higher output cap for long-form
// artifacts such as study guides and diagnostics.
func (c *Client) GenerateLong(ctx context.Context, prompt string, temperature float32) (string, error) {
	return c.generate(ctx, prompt, temperature, LongFormMaxTokens)
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	modelName, err := c.activeModel(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, errUnknown) {
			// An unexplained failure may mean the cached model
			// disappeared; force a re-probe next time.
			c.invalidate()
		}
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoContent
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}

// activeModel returns the cached model, probing the candidate list on
// first use.
func (c *Client) activeModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != "" {
		return c.active, nil
	}

	var lastErr error
	for _, candidate := range c.candidates {
		_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: candidate,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: probePrompt},
			},
			MaxTokens: 5,
		})
		if err == nil {
			slog.Info("selected model", "model", candidate)
			c.active = candidate
			return candidate, nil
		}
		lastErr = classify(err)
		slog.Debug("model probe failed", "model", candidate, "error", err)

		// Credential problems fail every candidate identically;
		// stop probing.
		if errors.Is(lastErr, ErrInvalidCredential) || errors.Is(lastErr, ErrRateLimited) {
			return "", lastErr
		}
	}
	if lastErr == nil {
		lastErr = ErrNoModel
	}
	return "", fmt.Errorf("%w: %w", ErrNoModel, lastErr)
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
}

// errUnknown marks failures outside the taxonomy.
var errUnknown = errors.New("llm: unexpected failure")

// classify maps a transport error onto the gateway taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401:
			return fmt.Errorf("%w: %v", ErrInvalidCredential, apiErr.Message)
		case apiErr.HTTPStatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, apiErr.Message)
		case apiErr.HTTPStatusCode == 502, apiErr.HTTPStatusCode == 503:
			return fmt.Errorf("%w: %v", ErrUnavailable, apiErr.Message)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") || strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded") || strings.Contains(msg, "503"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", errUnknown, err)
}

// Remediation returns user-facing guidance for a gateway error.
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "No API key configured. Set STUDIUM_LLM_KEY and restart."
	case errors.Is(err, ErrInvalidCredential):
		return "The API key was rejected. Check the key and its permissions."
	case errors.Is(err, ErrRateLimited):
		return "Rate limit or quota reached. Wait a minute and try again."
	case errors.Is(err, ErrUnavailable):
		return "The model service is temporarily unavailable. Try again shortly."
	case errors.Is(err, ErrNoContent):
		return "The model returned an empty response. Try again."
	default:
		return "Generation failed unexpectedly. Try again."
	}
}
