package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"stroke-quiz/entities/canvas"
	"stroke-quiz/entities/grader"
	"stroke-quiz/tools/exporter"
	"stroke-quiz/tools/llm"
	"stroke-quiz/tools/logger"
)

// ErrNoGrader is returned by Check when no LLM grader is configured.
var ErrNoGrader = errors.New("no grader configured")

// QuizDeps are the collaborators shared by quiz sessions. Grader and
// Exporter are optional.
type QuizDeps struct {
	Face     text.Face
	Grader   *grader.Grader
	Exporter *exporter.Exporter
	Rand     *rand.Rand
	Log      *logger.Logger
}

// Quiz walks a deck one character at a time, revealing fewer components
// on each stage.
type Quiz struct {
	id       string
	deck     []Character
	canvas   *canvas.Canvas
	grader   *grader.Grader
	exporter *exporter.Exporter
	log      *logger.Logger

	mu     sync.Mutex
	index  int
	stage  int
	checks int
}

// NewQuiz creates a quiz on the first deck entry at stage 0.
func NewQuiz(id string, deck []Character, deps QuizDeps) (*Quiz, error) {
	if len(deck) == 0 {
		return nil, fmt.Errorf("deck is empty")
	}
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	log = log.WithPrefix(id)

	q := &Quiz{
		id:       id,
		deck:     deck,
		canvas:   canvas.New(canvas.Options{Rand: deps.Rand}, log),
		grader:   deps.Grader,
		exporter: deps.Exporter,
		log:      log,
	}
	q.sync()
	if deps.Face != nil {
		q.canvas.SetFace(deps.Face)
	}
	return q, nil
}

// ID returns the session id.
func (q *Quiz) ID() string { return q.id }

// Canvas returns the drawing surface.
func (q *Quiz) Canvas() *canvas.Canvas { return q.canvas }

// Current returns the deck entry being asked.
func (q *Quiz) Current() Character {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deck[q.index]
}

// Stage returns the current stage.
func (q *Quiz) Stage() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stage
}

// Advance moves to the next stage. Past the last stage the quiz moves on
// to the next character.
func (q *Quiz) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.advance()
}

func (q *Quiz) advance() {
	q.stage++
	if q.stage > len(q.deck[q.index].Components) {
		q.index = (q.index + 1) % len(q.deck)
		q.stage = 0
	}
	q.sync()
}

// Next skips to the next character at stage 0.
func (q *Quiz) Next() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.index = (q.index + 1) % len(q.deck)
	q.stage = 0
	q.sync()
}

// Redraw clears the user's strokes.
func (q *Quiz) Redraw() {
	q.canvas.ClearAndRedraw()
}

// sync pushes the current entry and stage to the canvas. Caller holds mu.
func (q *Quiz) sync() {
	c := q.deck[q.index]
	q.canvas.Update(canvas.Props{Stage: q.stage, Character: c.Character, Components: c.Components})
	q.log.Stage(c.Character, q.stage, len(q.canvas.Visible()))
}

// PointerDown, PointerMove, PointerUp and PointerLeave forward to the
// canvas so a Quiz can be driven by the terminal view directly.
func (q *Quiz) PointerDown(p gg.Point) { q.canvas.PointerDown(p) }
func (q *Quiz) PointerMove(p gg.Point) { q.canvas.PointerMove(p) }
func (q *Quiz) PointerUp()             { q.canvas.PointerUp() }
func (q *Quiz) PointerLeave()          { q.canvas.PointerLeave() }

// Snapshot writes the current surface to the exporter, under a directory
// named after the session.
func (q *Quiz) Snapshot(name string) (*exporter.Result, error) {
	return q.export(q.canvas.Surface(), name, exporter.DefaultOptions())
}

func (q *Quiz) export(img image.Image, name string, opts exporter.Options) (*exporter.Result, error) {
	if q.exporter == nil {
		return nil, fmt.Errorf("no exporter configured")
	}
	opts.SubDir = sanitize(q.id)
	res, err := q.exporter.ExportWithOptions(img, name, opts)
	if err != nil {
		return nil, err
	}
	q.log.Export(res.Path, res.Bytes)
	return res, nil
}

// Check grades the current drawing. A correct verdict advances the quiz.
// If the user moved on while the grader was running, the verdict is
// returned but the quiz is left alone.
func (q *Quiz) Check(ctx context.Context) (*CheckResult, error) {
	if q.grader == nil {
		return nil, ErrNoGrader
	}

	q.mu.Lock()
	index, stage := q.index, q.stage
	char := q.deck[index]
	q.checks++
	name := fmt.Sprintf("%s_stage%d_%03d", sanitize(char.Character), stage, q.checks)
	q.mu.Unlock()

	// one copy of the surface is both graded and saved
	opts := exporter.DefaultOptions()
	img := exporter.Flatten(q.canvas.Surface(), opts.Flatten)
	opts.Flatten = nil
	var buf bytes.Buffer
	if err := exporter.Encode(&buf, img, opts); err != nil {
		return nil, err
	}

	result := &CheckResult{}
	if q.exporter != nil {
		if res, err := q.export(img, name, opts); err != nil {
			q.log.Warn("Snapshot failed: %v", err)
		} else {
			result.Snapshot = res.Path
		}
	}

	verdict, _, err := q.grader.Grade(ctx, char.Character, llm.Image{
		MediaType: opts.Format.MediaType(),
		Data:      buf.Bytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("grading %s failed: %w", char.Character, err)
	}
	result.Correct = verdict.Correct
	result.Reason = verdict.Reason

	if verdict.Correct {
		q.log.Info("✓ %s accepted: %s", char.Character, truncate(verdict.Reason, 80))
	} else {
		q.log.Info("✗ %s rejected: %s", char.Character, truncate(verdict.Reason, 80))
	}

	q.mu.Lock()
	if verdict.Correct && q.index == index && q.stage == stage {
		q.advance()
	}
	q.mu.Unlock()

	result.State = q.State()
	return result, nil
}

// State returns a snapshot of the session.
func (q *Quiz) State() QuizState {
	q.mu.Lock()
	c := q.deck[q.index]
	stage := q.stage
	q.mu.Unlock()

	return QuizState{
		ID:         q.id,
		Character:  c.Character,
		Meaning:    c.Meaning,
		Stage:      stage,
		Components: len(c.Components),
		Visible:    len(q.canvas.Visible()),
		Ready:      q.canvas.Ready(),
		Drawing:    q.canvas.Drawing(),
	}
}

// sanitize creates a safe filename from a string
func sanitize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	n := 0
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' {
			b.WriteRune(c)
			n++
		}
		if n == 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// truncate shortens a string with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
