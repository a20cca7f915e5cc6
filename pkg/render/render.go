// Package render defines the shared drawing data model for ledgebar: pixel
// rectangles, colors, content segments, positioned runs, click regions, and
// the Frame type that describes everything currently on the bar. Values here
// are plain data; they are produced by the typeset and compose packages and
// consumed read-only by the surface painter and click router.
package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Rect is an axis-aligned rectangle in bar pixel coordinates. Width and
// Height may be zero; such rectangles are empty.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Right returns the X coordinate of the right edge (exclusive).
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the Y coordinate of the bottom edge (exclusive).
func (r Rect) Bottom() int { return r.Y + r.H }

// Area returns the number of pixels covered by the rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether the point (px, py) lies within the rectangle.
func (r Rect) Contains(px, py int) bool {
	return px >= r.X && px < r.Right() && py >= r.Y && py < r.Bottom()
}

// Intersects reports whether r and other share at least one pixel.
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersect(other).Empty()
}

// Intersect returns the overlapping region of two rectangles, or a zero
// Rect if they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x1 := maxInt(r.X, other.X)
	y1 := maxInt(r.Y, other.Y)
	x2 := minInt(r.Right(), other.Right())
	y2 := minInt(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Union returns the smallest rectangle containing both r and other. An
// empty rectangle is the identity.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x1 := minInt(r.X, other.X)
	y1 := minInt(r.Y, other.Y)
	x2 := maxInt(r.Right(), other.Right())
	y2 := maxInt(r.Bottom(), other.Bottom())
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Translate returns r shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// BoundingUnion returns the bounding box of all non-empty rectangles in
// rects, or a zero Rect if none are non-empty.
func BoundingUnion(rects []Rect) Rect {
	var u Rect
	for _, r := range rects {
		u = u.Union(r)
	}
	return u
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Color is a premultiplied-free 8-bit RGBA color. The zero value is fully
// transparent and is treated by consumers as "unset".
type Color struct {
	R, G, B, A uint8
}

// RGBA implements image/color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = uint32(c.A) * 0x101
	return
}

// IsSet reports whether the color carries any opacity. Unset colors fall
// back to theme defaults at shaping time.
func (c Color) IsSet() bool { return c.A != 0 }

// ParseColor parses a hex color string of the form "#RRGGBB", "RRGGBB",
// "#RRGGBBAA", or "RRGGBBAA". A missing alpha component defaults to 0xff.
func ParseColor(hex string) (Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid hex color %q: want RRGGBB or RRGGBBAA", hex)
	}
	var comps [4]uint8
	comps[3] = 0xff
	for i := 0; i*2 < len(hex); i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		comps[i] = uint8(v)
	}
	return Color{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}, nil
}

// MustColor is ParseColor for compile-time constants; it panics on malformed
// input and is intended only for literals in builtin themes.
func MustColor(hex string) Color {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Button identifies a pointer button using the X11 core button numbering.
type Button uint8

const (
	ButtonLeft       Button = 1
	ButtonMiddle     Button = 2
	ButtonRight      Button = 3
	ButtonScrollUp   Button = 4
	ButtonScrollDown Button = 5
)

// String returns a human-readable button name for logs.
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	case ButtonScrollUp:
		return "scroll-up"
	case ButtonScrollDown:
		return "scroll-down"
	default:
		return fmt.Sprintf("button-%d", uint8(b))
	}
}

// Segment is one piece of widget content as produced by a data source: a
// text (or icon glyph) string with optional foreground and background
// colors. Unset colors are filled in from the theme during shaping.
type Segment struct {
	Text string
	Fg   Color
	Bg   Color
}

// RunKind discriminates the closed set of run variants.
type RunKind int

const (
	// RunText is a glyph sequence drawn at a baseline.
	RunText RunKind = iota
	// RunFill is a solid rectangle (segment backgrounds, separators).
	RunFill
)

// Run is an atomic positioned piece of content. Bounds are widget-local
// when produced by the shaper and absolute once placed into a Frame. A Run
// is immutable after creation; widget updates replace runs wholesale.
type Run struct {
	Kind   RunKind
	Text   string // RunText only
	Fg     Color  // glyph color for RunText, fill color for RunFill
	Bounds Rect

	// Baseline is the Y offset of the text baseline relative to Bounds.Y.
	// Meaningless for RunFill.
	Baseline int
}

// TranslateRuns returns a copy of runs with every bounding box shifted by
// (dx, dy). Used when placing widget-local runs at their zone offset.
func TranslateRuns(runs []Run, dx, dy int) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, len(runs))
	for i, r := range runs {
		r.Bounds = r.Bounds.Translate(dx, dy)
		out[i] = r
	}
	return out
}

// ClickRegion maps a rectangle of the bar to the widget that owns it and
// the actions bound to each pointer button. Regions are regenerated with
// every Frame and never patched in place.
type ClickRegion struct {
	Bounds  Rect
	Widget  string
	Actions map[Button]string
}

// Frame is the complete paintable description of the bar: every placed run
// in draw order plus the click regions derived from the same layout. A
// Frame is read-only once handed off by the composer.
type Frame struct {
	Width  int
	Height int

	Runs    []Run
	Regions []ClickRegion
}

// RegionAt returns the click region containing (x, y), or false if the
// point lies outside every region.
func (f *Frame) RegionAt(x, y int) (ClickRegion, bool) {
	for _, reg := range f.Regions {
		if reg.Bounds.Contains(x, y) {
			return reg, true
		}
	}
	return ClickRegion{}, false
}

// Bounds returns the full bar rectangle.
func (f *Frame) Bounds() Rect {
	return Rect{W: f.Width, H: f.Height}
}
