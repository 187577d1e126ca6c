// Package fonts loads the glyph font used by the canvas, falling back to
// an installed CJK font or Go Regular when the configured file is missing
// or unreadable.
package fonts

import (
	"fmt"
	"os"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"stroke-quiz/tools/logger"
)

// DefaultSize is the glyph size in points used by the canvas.
const DefaultSize = 120

// Font is a loaded font source plus a face at the requested size.
type Font struct {
	source   *text.FontSource
	face     text.Face
	path     string // empty for the embedded Go Regular
	fallback bool
}

// SystemFonts lists common CJK-capable font files tried, in order, when the
// configured font cannot be used. Go Regular comes last and has no CJK glyphs.
var SystemFonts = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/opentype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\msgothic.ttc`,
}

// Load parses the font at path and returns a face of the given size.
// An empty path, unreadable file or parse failure is not an error: the
// result uses the first usable entry of SystemFonts, or Go Regular, and
// Fallback reports true.
func Load(path string, size float64, log *logger.Logger) (*Font, error) {
	return LoadWithFallbacks(path, size, SystemFonts, log)
}

// LoadWithFallbacks is Load with an explicit list of fallback files.
func LoadWithFallbacks(path string, size float64, fallbacks []string, log *logger.Logger) (*Font, error) {
	if log == nil {
		log = logger.Default()
	}
	log = log.WithPrefix("fonts")
	if size <= 0 {
		size = DefaultSize
	}

	if path != "" {
		source, err := text.NewFontSourceFromFile(path)
		if err == nil {
			log.Debug("loaded %s (%s) at %gpt", path, source.Name(), size)
			return &Font{source: source, face: source.Face(size), path: path}, nil
		}
		log.Warn("font %s unavailable, using fallback: %v", path, err)
	}

	for _, candidate := range fallbacks {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		source, err := text.NewFontSourceFromFile(candidate)
		if err != nil {
			log.Debug("skipping %s: %v", candidate, err)
			continue
		}
		log.Info("using system font %s (%s)", candidate, source.Name())
		return &Font{source: source, face: source.Face(size), path: candidate, fallback: true}, nil
	}

	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback font: %w", err)
	}
	return &Font{source: source, face: source.Face(size), fallback: true}, nil
}

// Face returns the sized face.
func (f *Font) Face() text.Face {
	return f.face
}

// Fallback reports whether the fallback font is in use.
func (f *Font) Fallback() bool {
	return f.fallback
}

// Path returns the file the font was loaded from, or "" for the embedded
// Go Regular.
func (f *Font) Path() string {
	return f.path
}

// Name returns the font family name.
func (f *Font) Name() string {
	return f.source.Name()
}

// Covers reports whether every rune of s has a glyph in the face.
func (f *Font) Covers(s string) bool {
	for _, r := range s {
		if !f.face.HasGlyph(r) {
			return false
		}
	}
	return true
}

// Close releases the font source.
func (f *Font) Close() error {
	return f.source.Close()
}
