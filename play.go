package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"stroke-quiz/tools/logger"
	"stroke-quiz/tools/sound"
	"stroke-quiz/tools/terminal"
)

// Feedback plays the answer sounds.
type Feedback interface {
	Chime()
	Buzz()
}

// Player runs a quiz in the terminal. The mouse draws on the canvas.
type Player struct {
	screen tcell.Screen
	view   *terminal.View
	quiz   *Quiz
	sound  Feedback
	log    *logger.Logger
	status string
}

// NewPlayer binds a quiz to an initialised screen. snd may be nil.
func NewPlayer(screen tcell.Screen, q *Quiz, snd Feedback, log *logger.Logger) *Player {
	if log == nil {
		log = logger.Default()
	}
	if snd == nil {
		snd = sound.New()
	}
	screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	v := terminal.New(screen)
	v.Layout(q.Canvas().Width(), q.Canvas().Height())
	return &Player{
		screen: screen,
		view:   v,
		quiz:   q,
		sound:  snd,
		log:    log.WithPrefix("play"),
	}
}

// Run processes events until the user quits or ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		p.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	p.render()
	for {
		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			p.screen.Clear()
			p.view.Layout(p.quiz.Canvas().Width(), p.quiz.Canvas().Height())
			p.screen.Sync()
		case *tcell.EventMouse:
			p.view.HandleMouse(ev, p.quiz)
		case *tcell.EventKey:
			if p.handleKey(ctx, ev) {
				return nil
			}
		}
		p.render()
	}
}

// handleKey reports whether the user asked to quit.
func (p *Player) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyEnter:
		p.check(ctx)
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case ' ':
		p.quiz.Advance()
		p.sound.Chime()
		p.status = ""
	case 'n':
		p.quiz.Next()
		p.status = ""
	case 'r':
		p.quiz.Redraw()
		p.status = ""
	}
	return false
}

func (p *Player) check(ctx context.Context) {
	p.view.Status("checking...")
	p.screen.Show()

	res, err := p.quiz.Check(ctx)
	switch {
	case errors.Is(err, ErrNoGrader):
		p.status = "no grader configured: press space to reveal less"
	case err != nil:
		p.log.Error("Check failed: %v", err)
		p.status = "check failed: " + truncate(err.Error(), 60)
	case res.Correct:
		p.sound.Chime()
		p.status = "✓ " + truncate(res.Reason, 70)
	default:
		p.sound.Buzz()
		p.status = "✗ " + truncate(res.Reason, 70)
	}
}

func (p *Player) render() {
	s := p.quiz.State()
	p.view.Draw(p.quiz.Canvas().Surface())

	line := fmt.Sprintf("%s  stage %d/%d", s.Meaning, s.Stage, s.Components)
	if !s.Ready {
		line += "  (loading font)"
	}
	if p.status != "" {
		line += "  " + p.status
	}
	p.view.Status(line)
	p.screen.Show()
}
