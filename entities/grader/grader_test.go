package grader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"stroke-quiz/tools/llm"
	"stroke-quiz/tools/logger"
)

// scriptedClient replays canned replies and records what it was sent.
type scriptedClient struct {
	replies []string
	err     error
	calls   [][]llm.Message
}

func (c *scriptedClient) Complete(ctx context.Context, system string, messages []llm.Message, opts *llm.RequestOptions) (*llm.Response, error) {
	return c.CompleteWithRetry(ctx, system, messages, 1, opts)
}

func (c *scriptedClient) CompleteWithRetry(_ context.Context, _ string, messages []llm.Message, _ int, _ *llm.RequestOptions) (*llm.Response, error) {
	c.calls = append(c.calls, append([]llm.Message(nil), messages...))
	if c.err != nil {
		return nil, c.err
	}
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return &llm.Response{Content: reply, StopReason: "end_turn"}, nil
}

var snapshot = llm.Image{MediaType: "image/png", Data: []byte("png")}

func TestGradeCorrect(t *testing.T) {
	client := &scriptedClient{replies: []string{"<verdict>Correct</verdict>\n<reason>Well balanced.</reason>"}}
	g := New(client, logger.Discard())

	v, _, err := g.Grade(context.Background(), "明", snapshot)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !v.Correct || v.Reason != "Well balanced." {
		t.Errorf("verdict = %+v", v)
	}

	sent := client.calls[0][0]
	if len(sent.Images) != 1 || string(sent.Images[0].Data) != "png" {
		t.Errorf("snapshot not attached: %+v", sent.Images)
	}
	if !strings.Contains(sent.Content, "明") {
		t.Errorf("prompt does not name the character: %q", sent.Content)
	}
}

func TestGradeRetriesMalformedReply(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Looks fine to me!",
		"<verdict>incorrect</verdict><reason>Missing the right half.</reason>",
	}}
	g := New(client, logger.Discard())

	v, _, err := g.Grade(context.Background(), "明", snapshot)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if v.Correct {
		t.Error("expected incorrect verdict")
	}
	if len(client.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(client.calls))
	}
	retry := client.calls[1]
	if len(retry) != 3 || retry[1].Role != "assistant" || retry[2].Role != "user" {
		t.Errorf("retry conversation malformed: %+v", retry)
	}
}

func TestGradeGivesUpAfterRetries(t *testing.T) {
	client := &scriptedClient{replies: []string{"<verdict>maybe</verdict>"}}
	g := New(client, logger.Discard())

	if _, _, err := g.Grade(context.Background(), "x", snapshot); err == nil {
		t.Fatal("expected parse failure")
	}
	if len(client.calls) != maxRetries+1 {
		t.Errorf("got %d calls, want %d", len(client.calls), maxRetries+1)
	}
}

func TestGradeClientError(t *testing.T) {
	boom := errors.New("boom")
	g := New(&scriptedClient{err: boom}, logger.Discard())

	if _, _, err := g.Grade(context.Background(), "x", snapshot); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in      string
		correct bool
		wantErr bool
	}{
		{"<verdict>correct</verdict>", true, false},
		{"<VERDICT> incorrect </VERDICT>", false, false},
		{"no tags", false, true},
		{"<verdict>unsure</verdict>", false, true},
	}
	for _, tt := range tests {
		v, err := parseVerdict(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.in, err)
			continue
		}
		if err == nil && v.Correct != tt.correct {
			t.Errorf("%q: Correct = %v", tt.in, v.Correct)
		}
	}
}
