// Package terminal shows the canvas in a terminal and turns mouse input
// into canvas pointer events.
package terminal

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"stroke-quiz/tools/exporter"
)

// Each cell shows two vertically stacked pixels: the upper half block
// takes the foreground color, the rest of the cell the background.
const halfBlock = '▀'

// Pointer receives translated mouse input.
type Pointer interface {
	PointerDown(p gg.Point)
	PointerMove(p gg.Point)
	PointerUp()
	PointerLeave()
}

// View lays the canvas out on a tcell screen, leaving the last row for a
// status line.
type View struct {
	screen tcell.Screen

	left, top  int // cell origin of the canvas area
	cols, rows int
	canvasW    int
	canvasH    int

	held    bool // primary button is down
	drawing bool // the press started inside the canvas and has not left it
}

// New creates a view on screen. Call Layout before drawing.
func New(screen tcell.Screen) *View {
	return &View{screen: screen}
}

// Layout fits a canvasW×canvasH surface into the screen, centred, keeping
// its aspect ratio.
func (v *View) Layout(canvasW, canvasH int) {
	v.canvasW, v.canvasH = canvasW, canvasH

	w, h := v.screen.Size()
	availRows := max(h-1, 1)
	// half blocks make cell pixels square: one cell is 1×2 pixels
	cols := w
	rows := cols * canvasH / canvasW / 2
	if rows > availRows {
		rows = availRows
		cols = rows * 2 * canvasW / canvasH
	}
	v.cols, v.rows = max(cols, 1), max(rows, 1)
	v.left = (w - v.cols) / 2
	v.top = (availRows - v.rows) / 2
}

// Bounds returns the canvas area in cells.
func (v *View) Bounds() image.Rectangle {
	return image.Rect(v.left, v.top, v.left+v.cols, v.top+v.rows)
}

// Draw paints img, flattened over white, into the canvas area.
func (v *View) Draw(img image.Image) {
	small := exporter.Scale(exporter.Flatten(img, color.White), v.cols, v.rows*2)
	for y := 0; y < v.rows; y++ {
		for x := 0; x < v.cols; x++ {
			top := small.RGBAAt(x, 2*y)
			bottom := small.RGBAAt(x, 2*y+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			v.screen.SetContent(v.left+x, v.top+y, halfBlock, nil, style)
		}
	}
}

// Status writes msg on the bottom row, clearing the rest of it.
func (v *View) Status(msg string) {
	w, h := v.screen.Size()
	y := h - 1
	x := 0
	for _, r := range msg {
		if x >= w {
			break
		}
		v.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
		x++
	}
	for ; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

// ToCanvas maps a cell to the canvas pixel under its centre.
func (v *View) ToCanvas(x, y int) (gg.Point, bool) {
	if !(image.Point{X: x, Y: y}).In(v.Bounds()) {
		return gg.Point{}, false
	}
	px := (float64(x-v.left) + 0.5) * float64(v.canvasW) / float64(v.cols)
	py := (float64(y-v.top) + 0.5) * float64(v.canvasH) / float64(v.rows)
	return gg.Pt(px, py), true
}

// HandleMouse feeds one mouse event to p. A stroke starts only on a press
// inside the canvas; leaving the canvas ends it, and it does not resume
// until the button is pressed again.
func (v *View) HandleMouse(ev *tcell.EventMouse, p Pointer) {
	x, y := ev.Position()
	pt, inside := v.ToCanvas(x, y)
	pressed := ev.Buttons()&tcell.Button1 != 0

	switch {
	case !pressed:
		if v.drawing {
			p.PointerUp()
		}
		v.held, v.drawing = false, false
	case !v.held:
		v.held = true
		if inside {
			v.drawing = true
			p.PointerDown(pt)
		}
	case v.drawing && inside:
		p.PointerMove(pt)
	case v.drawing:
		v.drawing = false
		p.PointerLeave()
	}
}
