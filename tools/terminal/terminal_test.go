package terminal

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"
)

func newSimView(t *testing.T, w, h int) (*View, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(w, h)

	v := New(s)
	v.Layout(300, 300)
	return v, s
}

type recorder struct{ events []string }

func (r *recorder) PointerDown(p gg.Point) { r.events = append(r.events, fmt.Sprintf("down %.0f,%.0f", p.X, p.Y)) }
func (r *recorder) PointerMove(p gg.Point) { r.events = append(r.events, fmt.Sprintf("move %.0f,%.0f", p.X, p.Y)) }
func (r *recorder) PointerUp()             { r.events = append(r.events, "up") }
func (r *recorder) PointerLeave()          { r.events = append(r.events, "leave") }

func TestLayoutKeepsAspect(t *testing.T) {
	v, _ := newSimView(t, 80, 31)

	b := v.Bounds()
	if b.Dy() != 30 || b.Dx() != 60 {
		t.Errorf("canvas area = %v, want 60×30 cells", b)
	}
	if b.Min.X != 10 {
		t.Errorf("canvas not centred: %v", b)
	}
}

func TestToCanvas(t *testing.T) {
	v, _ := newSimView(t, 80, 31)
	b := v.Bounds()

	p, ok := v.ToCanvas(b.Min.X, b.Min.Y)
	if !ok {
		t.Fatal("top-left cell reported outside")
	}
	if p.X != 2.5 || p.Y != 5 {
		t.Errorf("top-left maps to %v, want (2.5, 5)", p)
	}
	if _, ok := v.ToCanvas(b.Max.X, b.Min.Y); ok {
		t.Error("cell right of the canvas reported inside")
	}
}

func TestDrawUsesHalfBlocks(t *testing.T) {
	v, s := newSimView(t, 20, 11)
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 150; y++ {
		for x := 0; x < 300; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 0xff})
		}
	}
	v.Draw(img)
	s.Show()

	cells, w, _ := s.GetContents()
	b := v.Bounds()
	top := cells[b.Min.Y*w+b.Min.X]
	if len(top.Runes) == 0 || top.Runes[0] != halfBlock {
		t.Fatalf("cell rune = %q", top.Runes)
	}
	fg, bg, _ := top.Style.Decompose()
	if fg != tcell.NewRGBColor(0, 0, 0) || bg != tcell.NewRGBColor(0, 0, 0) {
		t.Errorf("inked cell colors fg=%v bg=%v", fg, bg)
	}
	last := cells[(b.Max.Y-1)*w+b.Min.X]
	if fg, _, _ := last.Style.Decompose(); fg != tcell.NewRGBColor(0xff, 0xff, 0xff) {
		t.Errorf("transparent area not flattened to white: %v", fg)
	}
}

func TestStatusLine(t *testing.T) {
	v, s := newSimView(t, 20, 11)
	v.Status("stage 2")
	s.Show()

	cells, w, h := s.GetContents()
	var got []rune
	for x := 0; x < 7; x++ {
		got = append(got, cells[(h-1)*w+x].Runes...)
	}
	if string(got) != "stage 2" {
		t.Errorf("status = %q", string(got))
	}
}

func TestHandleMouse(t *testing.T) {
	v, _ := newSimView(t, 80, 31)
	b := v.Bounds()
	in := func(dx int) (int, int) { return b.Min.X + dx, b.Min.Y }
	press := func(x, y int) *tcell.EventMouse { return tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone) }
	release := func(x, y int) *tcell.EventMouse { return tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone) }

	r := &recorder{}
	v.HandleMouse(release(in(0)), r)     // hover: nothing
	v.HandleMouse(press(in(0)), r)       // down
	v.HandleMouse(press(in(2)), r)       // move
	v.HandleMouse(press(b.Max.X, 0), r)  // leave
	v.HandleMouse(press(in(4)), r)       // still held, back inside: no resume
	v.HandleMouse(release(in(4)), r)     // release after leave: no up
	v.HandleMouse(press(in(6)), r)       // new stroke
	v.HandleMouse(release(in(6)), r)     // up

	want := []string{"down 2,5", "move 12,5", "leave", "down 32,5", "up"}
	if !slices.Equal(r.events, want) {
		t.Errorf("events = %v, want %v", r.events, want)
	}
}

func TestPressOutsideDoesNotDraw(t *testing.T) {
	v, _ := newSimView(t, 80, 31)
	b := v.Bounds()

	r := &recorder{}
	v.HandleMouse(tcell.NewEventMouse(0, 0, tcell.Button1, tcell.ModNone), r)
	v.HandleMouse(tcell.NewEventMouse(b.Min.X, b.Min.Y, tcell.Button1, tcell.ModNone), r)
	v.HandleMouse(tcell.NewEventMouse(b.Min.X, b.Min.Y, tcell.ButtonNone, tcell.ModNone), r)

	if len(r.events) != 0 {
		t.Errorf("press outside produced %v", r.events)
	}
}
