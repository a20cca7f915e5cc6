// Package typeset turns abstract widget content (colored text and icon
// segments) into measured, positioned runs ready for painting. It is the
// only package that touches font data: glyph metrics come from an embedded
// OpenType face so layout works identically on every machine, with no
// dependency on system font configuration.
package typeset

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Options configures a Shaper.
type Options struct {
	// FontSize is the face size in points (default 13).
	FontSize float64

	// DPI is the rasterization density (default 96).
	DPI float64

	// Height is the fixed run height in pixels, normally the bar's content
	// height. Text is vertically centered within it.
	Height int

	// SegmentGap is the horizontal padding in pixels inserted between
	// adjacent segments of one widget (default 4).
	SegmentGap int

	// FontData overrides the embedded default face. Must be a valid
	// OpenType/TrueType font.
	FontData []byte
}

// Shaper measures and rasterizes text. It is safe for use from a single
// goroutine at a time; the engine shapes and paints on one logical thread,
// so no locking is done here.
type Shaper struct {
	face    font.Face
	height  int
	ascent  int
	descent int
	gap     int
}

// NewShaper parses the font and prepares a face at the configured size.
func NewShaper(opts Options) (*Shaper, error) {
	if opts.FontSize <= 0 {
		opts.FontSize = 13
	}
	if opts.DPI <= 0 {
		opts.DPI = 96
	}
	if opts.SegmentGap < 0 {
		opts.SegmentGap = 0
	} else if opts.SegmentGap == 0 {
		opts.SegmentGap = 4
	}
	data := opts.FontData
	if data == nil {
		data = goregular.TTF
	}

	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     opts.DPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	height := opts.Height
	if height <= 0 {
		height = ascent + descent
	}

	return &Shaper{
		face:    face,
		height:  height,
		ascent:  ascent,
		descent: descent,
		gap:     opts.SegmentGap,
	}, nil
}

// Height returns the fixed pixel height of shaped content.
func (s *Shaper) Height() int { return s.height }

// MeasureString returns the advance width of text in whole pixels.
func (s *Shaper) MeasureString(text string) int {
	return font.MeasureString(s.face, text).Ceil()
}

// baseline returns the Y offset of the text baseline that vertically
// centers the face's em box within the run height.
func (s *Shaper) baseline() int {
	return (s.height-s.ascent-s.descent)/2 + s.ascent
}

// Shape lays out the segments left to right and returns widget-local runs
// together with the total measured width. Segments with a set background
// color produce a fill run behind their text run. Empty segments are
// skipped; an all-empty segment list yields no runs and zero width.
func (s *Shaper) Shape(segments []render.Segment) ([]render.Run, int) {
	var (
		runs []render.Run
		x    int
	)
	baseline := s.baseline()
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		w := s.MeasureString(seg.Text)
		if w <= 0 {
			continue
		}
		if x > 0 {
			x += s.gap
		}
		bounds := render.Rect{X: x, Y: 0, W: w, H: s.height}
		if seg.Bg.IsSet() {
			runs = append(runs, render.Run{
				Kind:   render.RunFill,
				Fg:     seg.Bg,
				Bounds: bounds,
			})
		}
		runs = append(runs, render.Run{
			Kind:     render.RunText,
			Text:     seg.Text,
			Fg:       seg.Fg,
			Bounds:   bounds,
			Baseline: baseline,
		})
		x += w
	}
	return runs, x
}

// DrawRun rasterizes a single text run onto dst at the run's (absolute)
// bounds. Fill runs are not handled here; the painter fills rectangles
// itself. Runs with an unset foreground are drawn fully opaque white so a
// miswired theme is visible rather than invisible.
func (s *Shaper) DrawRun(dst draw.Image, run render.Run) {
	if run.Kind != render.RunText || run.Text == "" {
		return
	}
	fg := run.Fg
	if !fg.IsSet() {
		fg = render.Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: s.face,
		Dot: fixed.Point26_6{
			X: fixed.I(run.Bounds.X),
			Y: fixed.I(run.Bounds.Y + run.Baseline),
		},
	}
	d.DrawString(run.Text)
}
