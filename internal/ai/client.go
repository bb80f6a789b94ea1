package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message is one entry of a chat conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options override client defaults for a single call. Nil fields fall back
// to the values the client was constructed with.
type Options struct {
	Temperature *float64
	Timeout     time.Duration
}

// Reply is the decoded result of a ChatJSON call. When the model's answer
// is not parseable JSON the reply is tagged Malformed and carries the
// original text; this is a soft failure the judge handles explicitly,
// never an error path.
type Reply struct {
	Fields    map[string]any
	Raw       string
	Malformed bool
}

// InferenceError is returned after every retry attempt has failed so the
// caller can distinguish an exhausted endpoint from a single bad call.
type InferenceError struct {
	Attempts int
	Wrapped  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed after %d attempts: %v", e.Attempts, e.Wrapped)
}

func (e *InferenceError) Unwrap() error {
	return e.Wrapped
}

// Config holds the client defaults resolved from configuration at startup.
type Config struct {
	BaseURL     string // OpenAI-compatible endpoint, e.g. "http://localhost:11434/v1"
	APIKey      string // empty for local endpoints
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client calls an OpenAI-compatible chat completion endpoint with retry
// and linear backoff. One client is created per run and reused across
// all exam attempts.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger

	// wait suspends between retry attempts; swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client with the given defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout: 0, // per-call timeouts come from the request context
		},
		logger: logger,
		wait:   waitTimer,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Chat sends the messages and returns the model's text reply. On failure it
// retries up to the configured attempt count, waiting (attempt+1)*2 seconds
// between attempts: 2s, 4s, 6s, and so on. The backoff is a context-aware
// timer, so cancellation interrupts a pending wait immediately.
func (c *Client) Chat(ctx context.Context, messages []Message, opts *Options) (string, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		text, err := c.complete(ctx, messages, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		delay := time.Duration(attempt+1) * 2 * time.Second
		c.logger.Warn("inference call failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := c.wait(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", &InferenceError{Attempts: c.cfg.MaxRetries, Wrapped: lastErr}
}

// ChatJSON sends the messages and decodes the reply as JSON, tolerating a
// surrounding markdown code fence. A reply that still fails to parse is
// returned as a Malformed Reply carrying the original text.
func (c *Client) ChatJSON(ctx context.Context, messages []Message, opts *Options) (Reply, error) {
	text, err := c.Chat(ctx, messages, opts)
	if err != nil {
		return Reply{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &fields); err != nil {
		return Reply{Raw: text, Malformed: true}, nil
	}
	return Reply{Fields: fields, Raw: text}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete performs a single request against the endpoint.
func (c *Client) complete(ctx context.Context, messages []Message, opts *Options) (string, error) {
	temperature := c.cfg.Temperature
	timeout := c.cfg.Timeout
	if opts != nil {
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("inference endpoint returned no choices")
	}
	content := out.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("inference endpoint returned empty content")
	}
	return content, nil
}

// StripCodeFences removes at most one leading ```json or ``` marker and one
// trailing ``` marker. Stripping fenceless text is a no-op.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func waitTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
