package llm

import (
	"context"
	"fmt"
	"time"
)

// Client is the interface for LLM providers
type Client interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error)
	CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error)
}

// Message represents a conversation message
type Message struct {
	Role    string
	Content string
	Images  []Image // sent ahead of Content
}

// Image is an inline image attached to a message.
type Image struct {
	MediaType string // "image/png", "image/jpeg"
	Data      []byte
}

// RequestOptions configures an LLM request
type RequestOptions struct {
	MaxTokens int
}

// Response from an LLM completion
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Model        string
	StopReason   string // "end_turn", "max_tokens", "stop_sequence"
}

// WasTruncated returns true if the response hit the token limit
func (r *Response) WasTruncated() bool {
	return r.StopReason == "max_tokens"
}

// RawResponse is an upstream reply passed through untouched.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// APIError is returned for any non-2xx upstream status.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Type != "" || e.Message != "" {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, string(e.Body))
}
