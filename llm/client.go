package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMinute = 30
	defaultMaxRetries        = 3
	defaultRetryBaseDelay    = 2 * time.Second
	defaultRequestTimeout    = 2 * time.Minute
)

// Request is a single chat completion ask.
type Request struct {
	System      string
	User        string
	JSONMode    bool // ask the endpoint for a json_object response
	MaxTokens   int
	Temperature float32
}

// Completer is the seam the analysis stages depend on. Client implements it
// against a real endpoint; tests implement it in memory.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey            string
	BaseURL           string // optional OpenAI-compatible endpoint override
	Model             string
	RequestsPerMinute float64
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestTimeout    time.Duration
}

// Client wraps an OpenAI-compatible chat API behind a shared rate limiter
// and bounded retries with exponential backoff on transient failures. All
// model calls in a run go through one Client, so the limiter paces the
// whole pipeline.
type Client struct {
	api        *openai.Client
	model      string
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		timeout:    timeout,
	}
}

// Complete issues one chat request and returns the raw response text.
// Transient failures (rate limits, 5xx, network timeouts) are retried with
// exponential backoff up to the configured attempt budget; anything else
// fails immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			log.Printf("WARN (LLM): Retrying in %v (attempt %d/%d) after: %v", delay, attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter interrupted: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, chatReq)
		cancel()
		if err != nil {
			lastErr = err
			if IsTransient(err) && ctx.Err() == nil {
				continue
			}
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("chat completion response has no choices")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("chat completion failed after %d retries: %w", c.maxRetries, lastErr)
}

// IsTransient classifies an API error as worth retrying: rate limits,
// server-side failures, and network timeouts.
func IsTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}

// CleanFences strips a Markdown code fence wrapped around a model reply.
func CleanFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the outermost {...} block in s, for replies
// that wrap JSON in prose. Returns "" when there is none.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
