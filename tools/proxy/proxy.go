// Package proxy forwards browser requests to the Anthropic Messages API,
// adding the API key on the server so it never reaches the caller.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"stroke-quiz/tools/llm"
	"stroke-quiz/tools/logger"
)

// MaxBodyBytes bounds the request body read from the caller.
const MaxBodyBytes = 32 << 20

const errorMessage = "Error calling Anthropic API"

// Forwarder sends an opaque request body upstream.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) (*llm.RawResponse, error)
}

// Handler is the POST-only pass-through endpoint.
type Handler struct {
	upstream Forwarder
	log      *logger.Logger
}

// New creates a proxy handler.
func New(upstream Forwarder, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		upstream: upstream,
		log:      log.WithPrefix("proxy"),
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, "Method %s Not Allowed", r.Method)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.fail(w, fmt.Errorf("read request body: %w", err))
		return
	}

	resp, err := h.upstream.Forward(r.Context(), body)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Error("%s: %v", errorMessage, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(errorBody{Error: errorMessage, Details: err.Error()})
}
