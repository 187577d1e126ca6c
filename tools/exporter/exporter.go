package exporter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// Format selects the snapshot encoding
type Format int

const (
	PNG Format = iota
	JPEG
)

func (f Format) ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return ".png"
}

// MediaType returns the MIME type of the encoding.
func (f Format) MediaType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Options holds optional export settings
type Options struct {
	Format  Format
	Quality int         // JPEG quality, 1-100
	Flatten color.Color // composite over this background first; nil keeps alpha
	SubDir  string      // subdirectory within outputDir for this export
}

// DefaultOptions returns PNG output flattened over white, which is what
// the grader sends upstream.
func DefaultOptions() Options {
	return Options{
		Format:  PNG,
		Quality: 90,
		Flatten: color.White,
	}
}

// Result holds export output
type Result struct {
	Path  string
	Bytes int
}

// Exporter writes canvas snapshots under a base directory
type Exporter struct {
	outputDir string // absolute base output directory
}

// New creates an exporter rooted at outputDir, creating it if needed.
func New(outputDir string) (*Exporter, error) {
	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(absOutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Exporter{outputDir: absOutputDir}, nil
}

// Export writes img with default options
func (e *Exporter) Export(img image.Image, name string) (*Result, error) {
	return e.ExportWithOptions(img, name, DefaultOptions())
}

// getWorkDir returns outputDir or outputDir/SubDir, creating it.
func (e *Exporter) getWorkDir(opts Options) (string, error) {
	workDir := e.outputDir
	if opts.SubDir != "" {
		workDir = filepath.Join(e.outputDir, opts.SubDir)
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	return workDir, nil
}

// ExportWithOptions encodes img and writes it to <workDir>/<name><ext>
func (e *Exporter) ExportWithOptions(img image.Image, name string, opts Options) (*Result, error) {
	if name == "" {
		return nil, fmt.Errorf("export name is required")
	}

	workDir, err := e.getWorkDir(opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, opts); err != nil {
		return nil, err
	}

	path := filepath.Join(workDir, name+opts.Format.ext())
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return &Result{Path: path, Bytes: buf.Len()}, nil
}

// Encode writes img to w in the requested format
func Encode(w io.Writer, img image.Image, opts Options) error {
	if opts.Flatten != nil {
		img = Flatten(img, opts.Flatten)
	}

	switch opts.Format {
	case JPEG:
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	}
	return nil
}

// Flatten composites img over an opaque background.
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// Scale resizes img to w×h with bilinear filtering.
func Scale(img image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}

// OutputDir returns the exporter's base output directory
func (e *Exporter) OutputDir() string {
	return e.outputDir
}
