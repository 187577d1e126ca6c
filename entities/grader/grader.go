package grader

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"stroke-quiz/tools/llm"
	"stroke-quiz/tools/logger"
)

const (
	maxRetries       = 2
	defaultMaxTokens = 512
)

// Verdict is the grader's judgement of one drawing
type Verdict struct {
	Correct bool
	Reason  string
}

// Grader asks an LLM whether a canvas snapshot shows the expected character
type Grader struct {
	client llm.Client
	log    *logger.Logger
}

// New creates a new Grader
func New(client llm.Client, log *logger.Logger) *Grader {
	if log == nil {
		log = logger.Default()
	}
	return &Grader{
		client: client,
		log:    log.WithPrefix("grader"),
	}
}

// Grade sends the snapshot and the expected character and parses the verdict.
// Malformed replies are retried with corrective feedback.
func (g *Grader) Grade(ctx context.Context, character string, snapshot llm.Image) (*Verdict, *llm.Response, error) {
	done := g.log.Step(fmt.Sprintf("Grading %s", character))
	defer done()

	messages := []llm.Message{{
		Role:    "user",
		Content: g.buildUserPrompt(character),
		Images:  []llm.Image{snapshot},
	}}
	opts := &llm.RequestOptions{MaxTokens: defaultMaxTokens}

	var lastResp *llm.Response

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := g.client.CompleteWithRetry(ctx, g.buildSystemPrompt(), messages, 2, opts)
		if err != nil {
			return nil, lastResp, fmt.Errorf("LLM request failed: %w", err)
		}
		lastResp = resp
		g.log.Tokens(resp.InputTokens, resp.OutputTokens)

		verdict, err := parseVerdict(resp.Content)
		if err == nil {
			return verdict, resp, nil
		}
		if attempt == maxRetries {
			return nil, resp, fmt.Errorf("parse failed after %d attempts: %w", maxRetries+1, err)
		}

		g.log.Warn("Parse error (attempt %d/%d): %v", attempt+1, maxRetries+1, err)
		messages = appendRetry(messages, resp.Content,
			fmt.Sprintf("Parse error: %v\n\nReply again with exactly one <verdict> tag (correct or incorrect) and one <reason> tag.", err))
	}

	return nil, lastResp, fmt.Errorf("no verdict")
}

func (g *Grader) buildSystemPrompt() string {
	return `You are a strict but fair handwriting teacher checking a student's answer in a character-writing quiz.

The image is the student's canvas. Light grey or black printed glyph parts may be visible: these are hints drawn by the quiz, not by the student. The student's own strokes are thin black freehand lines.

Decide whether the student's strokes, together with any printed hint parts, form the expected character. Ignore stroke order, minor proportion errors and shaky lines. Mark it incorrect when strokes are missing, extra, or a different character is written.

FORMAT:
<verdict>correct</verdict> or <verdict>incorrect</verdict>
<reason>One short sentence for the student.</reason>`
}

func (g *Grader) buildUserPrompt(character string) string {
	return fmt.Sprintf("The expected character is: %s\n\nIs the drawing correct?", character)
}

func appendRetry(messages []llm.Message, assistantContent, userFeedback string) []llm.Message {
	return append(messages,
		llm.Message{Role: "assistant", Content: assistantContent},
		llm.Message{Role: "user", Content: userFeedback},
	)
}

func parseVerdict(content string) (*Verdict, error) {
	raw := strings.ToLower(extractTag(content, "verdict"))
	if raw == "" {
		return nil, fmt.Errorf("no <verdict> found")
	}

	v := &Verdict{Reason: extractTag(content, "reason")}
	switch raw {
	case "correct":
		v.Correct = true
	case "incorrect":
		v.Correct = false
	default:
		return nil, fmt.Errorf("unknown verdict %q", raw)
	}
	return v, nil
}

func extractTag(content, tag string) string {
	re := regexp.MustCompile(fmt.Sprintf(`(?si)<%s>(.*?)</%s>`, tag, tag))
	if m := re.FindStringSubmatch(content); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
