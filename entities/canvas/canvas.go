// Package canvas implements the quiz drawing surface: a fixed-size raster
// that shows a staged reveal of a character's glyph components and takes
// free-hand pointer strokes on top.
//
// Strokes are painted straight into the raster and are not kept as
// vectors; any redraw discards them.
package canvas

import (
	"image"
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/text/unicode/norm"

	"stroke-quiz/tools/logger"
)

const (
	DefaultSize      = 300
	DefaultLineWidth = 2
)

var (
	// MutedColor fills every component at stage 0.
	MutedColor = gg.Hex("#E0E0E0")
	// InkColor fills staged components and pointer strokes.
	InkColor = gg.Hex("#000000")
)

// Options configures a Canvas. Zero fields take the defaults.
type Options struct {
	Width, Height int
	Anchor        gg.Point // centre of every glyph; defaults to the surface centre
	LineWidth     float64
	Muted, Ink    *gg.RGBA
	Rand          *rand.Rand
}

// Props are the externally supplied inputs of a render.
type Props struct {
	Stage      int
	Character  string
	Components []string
}

// Canvas is safe for concurrent use.
type Canvas struct {
	mu  sync.Mutex
	dc  *gg.Context
	log *logger.Logger
	rng *rand.Rand

	anchor    gg.Point
	lineWidth float64
	muted     gg.RGBA
	ink       gg.RGBA

	// nil until SetFace; no glyph render happens before that
	face text.Face

	stage      int
	character  string
	components []string
	order      []int
	started    bool // Update has been called at least once

	drawing bool
	last    gg.Point
}

// New creates a NotReady canvas. Call SetFace once the glyph font is
// available.
func New(opts Options, log *logger.Logger) *Canvas {
	if log == nil {
		log = logger.Default()
	}
	if opts.Width <= 0 {
		opts.Width = DefaultSize
	}
	if opts.Height <= 0 {
		opts.Height = DefaultSize
	}
	if opts.Anchor == (gg.Point{}) {
		opts.Anchor = gg.Pt(float64(opts.Width)/2, float64(opts.Height)/2)
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultLineWidth
	}
	muted, ink := MutedColor, InkColor
	if opts.Muted != nil {
		muted = *opts.Muted
	}
	if opts.Ink != nil {
		ink = *opts.Ink
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Canvas{
		dc:        gg.NewContext(opts.Width, opts.Height),
		log:       log.WithPrefix("canvas"),
		rng:       rng,
		anchor:    opts.Anchor,
		lineWidth: opts.LineWidth,
		muted:     muted,
		ink:       ink,
	}
}

// Width returns the surface width in pixels.
func (c *Canvas) Width() int { return c.dc.Width() }

// Height returns the surface height in pixels.
func (c *Canvas) Height() int { return c.dc.Height() }

// Ready reports whether a face has been attached.
func (c *Canvas) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.face != nil
}

// SetFace attaches the glyph face and renders the current props.
func (c *Canvas) SetFace(face text.Face) {
	if face == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.face == nil
	c.face = face
	c.dc.SetFont(face)
	if first {
		c.log.Debug("font ready, size %gpt", face.Size())
	}
	c.clearAndRedraw()
}

// SetComponents stores a normalised copy of components and draws a new
// reveal order. It does not redraw.
func (c *Canvas) SetComponents(components []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setComponents(normalize(components))
}

func (c *Canvas) setComponents(components []string) {
	c.components = components
	c.order = newRevealOrder(len(components), c.rng)
}

// Update applies new props. The reveal order is regenerated only when the
// component list changed. Returns true when the surface was redrawn.
func (c *Canvas) Update(p Props) bool {
	components := normalize(p.Components)

	c.mu.Lock()
	defer c.mu.Unlock()

	componentsChanged := !c.started || !slices.Equal(components, c.components)
	if componentsChanged {
		c.setComponents(components)
	}
	changed := componentsChanged || p.Stage != c.stage || p.Character != c.character
	c.stage = p.Stage
	c.character = p.Character
	c.started = true

	if !changed || c.face == nil {
		return false
	}
	return c.clearAndRedraw()
}

// ClearAndRedraw wipes the surface, including any pointer strokes, and
// renders the current stage. Returns false while the canvas is NotReady.
func (c *Canvas) ClearAndRedraw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearAndRedraw()
}

func (c *Canvas) clearAndRedraw() bool {
	c.dc.Clear()
	if c.face == nil {
		return false
	}

	visible := visibleIndices(c.stage, c.order)
	if c.stage == 0 {
		c.dc.SetFillBrush(gg.Solid(c.muted))
	} else {
		c.dc.SetFillBrush(gg.Solid(c.ink))
	}
	for _, i := range visible {
		c.dc.DrawStringAnchored(c.components[i], c.anchor.X, c.anchor.Y, 0.5, 0.5)
	}
	return true
}

// Visible returns the component indices drawn for the current stage, in
// draw order.
func (c *Canvas) Visible() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return visibleIndices(c.stage, c.order)
}

// RevealOrder returns a copy of the current permutation.
func (c *Canvas) RevealOrder() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Props returns the props last applied.
func (c *Canvas) Props() Props {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Props{Stage: c.stage, Character: c.character, Components: slices.Clone(c.components)}
}

// PointerDown starts a stroke at p.
func (c *Canvas) PointerDown(p gg.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawing = true
	c.last = p
}

// PointerMove paints a segment from the previous position to p while a
// stroke is active.
func (c *Canvas) PointerMove(p gg.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drawing {
		return
	}

	c.dc.SetStrokeBrush(gg.Solid(c.ink))
	c.dc.SetLineWidth(c.lineWidth)
	c.dc.SetLineCap(gg.LineCapRound)
	c.dc.SetLineJoin(gg.LineJoinRound)
	c.dc.MoveTo(c.last.X, c.last.Y)
	c.dc.LineTo(p.X, p.Y)
	if err := c.dc.Stroke(); err != nil {
		c.log.Debug("stroke: %v", err)
	}
	c.last = p
}

// PointerUp ends the active stroke.
func (c *Canvas) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawing = false
}

// PointerLeave ends the active stroke when the pointer exits the surface.
func (c *Canvas) PointerLeave() {
	c.PointerUp()
}

// Drawing reports whether a stroke is active.
func (c *Canvas) Drawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

// Surface returns a copy of the raster.
func (c *Canvas) Surface() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	// gg copies its pixmap into a fresh RGBA
	return c.dc.Image().(*image.RGBA)
}

// EncodePNG writes the raster as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.EncodePNG(w)
}

func normalize(components []string) []string {
	if len(components) == 0 {
		return nil
	}
	out := make([]string, len(components))
	for i, s := range components {
		out[i] = norm.NFC.String(s)
	}
	return out
}
