package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
)

// AnthropicClient implements the Client interface for Claude
type AnthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// Option configures an AnthropicClient.
type Option func(*AnthropicClient)

// WithEndpoint points the client at a different messages URL, e.g. a
// proxy that injects the key itself.
func WithEndpoint(url string) Option {
	return func(c *AnthropicClient) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AnthropicClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewAnthropicClient creates a new Anthropic API client.
// An empty apiKey is allowed when the endpoint is a key-injecting proxy.
func NewAnthropicClient(apiKey, model string, opts ...Option) *AnthropicClient {
	if model == "" {
		model = defaultModel
	}
	c := &AnthropicClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicAPIURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name sent with completions.
func (c *AnthropicClient) Model() string {
	return c.model
}

// anthropicRequest is the API request structure
type anthropicRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []anthropicMsg `json:"messages"`
}

// anthropicMsg.Content is a plain string for text-only messages and a
// block list when images are attached.
type anthropicMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// anthropicResponse is the API response structure
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model        string `json:"model"`
	StopReason   string `json:"stop_reason"`
	StopSequence string `json:"stop_sequence"`
	Usage        struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func toAnthropicMsg(m Message) anthropicMsg {
	if len(m.Images) == 0 {
		return anthropicMsg{Role: m.Role, Content: m.Content}
	}
	blocks := make([]anthropicBlock, 0, len(m.Images)+1)
	for _, img := range m.Images {
		mediaType := img.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		blocks = append(blocks, anthropicBlock{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	if m.Content != "" {
		blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Content})
	}
	return anthropicMsg{Role: m.Role, Content: blocks}
}

// Forward posts body to the messages endpoint as-is and returns the
// upstream reply. Non-2xx statuses come back as *APIError.
func (c *AnthropicClient) Forward(ctx context.Context, body []byte) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: respBody}
		var parsed anthropicError
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		}
		return nil, apiErr
	}

	return &RawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Complete sends a prompt to Claude and returns the response
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error) {
	start := time.Now()

	maxTokens := defaultMaxTokens
	if opts != nil && opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	anthropicMsgs := make([]anthropicMsg, len(messages))
	for i, m := range messages {
		anthropicMsgs[i] = toAnthropicMsg(m)
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  anthropicMsgs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.Forward(ctx, jsonBody)
	if err != nil {
		return nil, err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(raw.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var content string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Response{
		Content:      content,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		Duration:     time.Since(start),
		Model:        apiResp.Model,
		StopReason:   apiResp.StopReason,
	}, nil
}

// CompleteWithRetry attempts completion with retries on failure.
// Client errors other than 429 are returned immediately.
func (c *AnthropicClient) CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := c.Complete(ctx, systemPrompt, messages, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
			return nil, err
		}

		if i == maxRetries-1 {
			break
		}

		// Exponential backoff
		backoff := time.Duration(1<<uint(i)) * time.Second
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
