package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultKeepAlive keeps the model loaded between turns (seconds).
	DefaultKeepAlive = 3600

	defaultTemperature = 0.7
	defaultMaxTokens   = 800
	defaultTopP        = 0.9
	defaultTopK        = 40

	defaultTimeout = 120 * time.Second
)

// ErrEmptyResponse is returned when the server answers 2xx with no body.
var ErrEmptyResponse = errors.New("empty response body")

// Config configures the Ollama client.
type Config struct {
	// BaseURL of the inference server. Defaults to http://localhost:11434.
	BaseURL string
	// Model is the model identifier sent with every request.
	Model string
	// KeepAlive is the keep-warm hint in seconds. Defaults to one hour.
	KeepAlive int
	// Timeout for batch requests. Streaming requests are bounded only by
	// the caller's context. Defaults to 120s.
	Timeout time.Duration
	// CooldownWindow overrides the post-failure wait (default 60s).
	CooldownWindow time.Duration
}

// Client talks to a local Ollama-compatible server. A single attempt is
// made per call; after any failure the cooldown gate delays the next call.
// Callers are expected to serialize turns — the client does not arbitrate
// concurrent generations against the same model.
type Client struct {
	cfg          Config
	client       *http.Client
	streamClient *http.Client
	gate         *cooldownGate
	logger       *slog.Logger
}

// New creates a Client. If logger is nil, the default slog logger is used.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		gate:         newCooldownGate(cfg.CooldownWindow),
		logger:       logger,
	}
}

// Send performs a blocking generation and returns the full response text.
func (c *Client) Send(ctx context.Context, text string, convCtx *ConversationContext, systemPrompt string) (string, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return "", err
	}

	req := c.buildRequest(text, convCtx, systemPrompt, false)
	resp, err := c.post(ctx, c.client, req)
	if err != nil {
		c.gate.Failure()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.gate.Failure()
		return "", fmt.Errorf("generate: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.gate.Failure()
		return "", fmt.Errorf("generate: read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		c.gate.Failure()
		return "", fmt.Errorf("generate: %w", ErrEmptyResponse)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		c.gate.Failure()
		return "", fmt.Errorf("generate: decode response: %w", err)
	}

	c.gate.Success()
	return gen.Response, nil
}

// SendStreaming performs a streaming generation. The returned channel
// yields chunks in server order and is closed after a chunk with Done=true
// or Err=true. An error is returned instead of a channel when the request
// cannot be dispatched or the server rejects it.
func (c *Client) SendStreaming(ctx context.Context, text string, convCtx *ConversationContext, systemPrompt string) (<-chan StreamingChunk, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	req := c.buildRequest(text, convCtx, systemPrompt, true)
	resp, err := c.post(ctx, c.streamClient, req)
	if err != nil {
		c.gate.Failure()
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		c.gate.Failure()
		return nil, fmt.Errorf("generate: unexpected status %s", resp.Status)
	}
	c.gate.Success()

	out := make(chan StreamingChunk)
	go c.consumeStream(ctx, resp.Body, out)
	return out, nil
}

// consumeStream reads newline-delimited JSON objects from body and forwards
// them as chunks. Malformed lines are skipped, not fatal.
func (c *Client) consumeStream(ctx context.Context, body io.ReadCloser, out chan<- StreamingChunk) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var gen generateResponse
		if err := json.Unmarshal([]byte(line), &gen); err != nil {
			c.logger.Warn("stream: skip malformed line", "err", err)
			continue
		}

		chunk := StreamingChunk{
			Content:   gen.Response,
			Done:      gen.Done,
			Model:     gen.Model,
			CreatedAt: gen.CreatedAt,
			Timestamp: time.Now(),
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}
		if gen.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.gate.Failure()
		chunk := StreamingChunk{
			Done:      true,
			Err:       true,
			ErrMsg:    fmt.Sprintf("stream interrupted: %v", err),
			Timestamp: time.Now(),
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
		}
		return
	}

	// The server closed the stream without a done marker. Treat it as a
	// completed stream; the orchestrator flushes whatever it buffered.
	select {
	case out <- StreamingChunk{Done: true, Timestamp: time.Now()}:
	case <-ctx.Done():
	}
}

// Unload asks the server to release the model from memory immediately by
// sending a zero-duration keep-alive with an empty prompt.
func (c *Client) Unload(ctx context.Context) error {
	req := generateRequest{
		Model:     c.cfg.Model,
		Prompt:    "",
		Stream:    false,
		KeepAlive: 0,
	}
	resp, err := c.post(ctx, c.client, req)
	if err != nil {
		return fmt.Errorf("unload model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unload model: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Client) buildRequest(text string, convCtx *ConversationContext, systemPrompt string, stream bool) generateRequest {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return generateRequest{
		Model:  c.cfg.Model,
		Prompt: text,
		System: BuildEnhancedSystemPrompt(systemPrompt, convCtx),
		Stream: stream,
		Options: &generateOptions{
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			TopP:        defaultTopP,
			TopK:        defaultTopK,
		},
		KeepAlive: c.cfg.KeepAlive,
	}
}

func (c *Client) post(ctx context.Context, client *http.Client, req generateRequest) (*http.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("generate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("generate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate: http request: %w", err)
	}
	return resp, nil
}
