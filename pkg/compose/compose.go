// Package compose maintains the bar's zone layout and produces render
// frames. The Composer is the exclusive owner of all layout state; it runs
// on the engine's single consuming goroutine, applies one widget update at
// a time, and hands out a fresh read-only Frame plus the dirty rectangles
// that changed since the previous frame.
package compose

import (
	"fmt"
	"log/slog"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Zone is an alignment region of the bar.
type Zone int

const (
	// ZoneStart packs widgets against the left edge.
	ZoneStart Zone = iota
	// ZoneCenter centers widgets in the band left between start and end.
	ZoneCenter
	// ZoneEnd right-justifies widgets against the right edge.
	ZoneEnd
)

// zoneCount is the number of alignment zones.
const zoneCount = 3

// String returns the configuration name of the zone.
func (z Zone) String() string {
	switch z {
	case ZoneStart:
		return "start"
	case ZoneCenter:
		return "center"
	case ZoneEnd:
		return "end"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// ParseZone parses a configuration zone name.
func ParseZone(s string) (Zone, error) {
	switch s {
	case "start", "left":
		return ZoneStart, nil
	case "center", "middle":
		return ZoneCenter, nil
	case "end", "right":
		return ZoneEnd, nil
	}
	return 0, fmt.Errorf("unknown zone %q (want start, center, or end)", s)
}

// WidgetSpec declares one configured widget: its stable identifier, its
// alignment zone, and its elision priority. Slice order is the configured
// order and fixes both drawing order and elision tie-breaking.
type WidgetSpec struct {
	ID       string
	Zone     Zone
	Priority int
}

// Options configures a Composer.
type Options struct {
	// Width and Height are the bar geometry in pixels.
	Width, Height int

	// Gap is the horizontal spacing between adjacent widgets in a zone
	// (default 8).
	Gap int

	// FullRepaintFraction is the changed-area share of the bar above which
	// a full repaint replaces a dirty-rect repaint (default 0.6).
	FullRepaintFraction float64

	Logger *slog.Logger
}

type widgetState struct {
	spec    WidgetSpec
	order   int // configured index, fixed at construction
	runs    []render.Run
	width   int
	actions map[render.Button]string
}

// Composer owns the zone layout and the authoritative render frame.
// Not safe for concurrent use; the engine serializes all calls.
type Composer struct {
	width  int
	height int
	gap    int
	frac   float64
	log    *slog.Logger

	widgets map[string]*widgetState
	zones   [zoneCount][]*widgetState

	frame      *render.Frame
	placements map[string]render.Rect
}

// New creates a composer for the configured widget set. Widget IDs must
// be unique.
func New(opts Options, specs []WidgetSpec) (*Composer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid bar geometry %dx%d", opts.Width, opts.Height)
	}
	if opts.Gap < 0 {
		opts.Gap = 0
	} else if opts.Gap == 0 {
		opts.Gap = 8
	}
	if opts.FullRepaintFraction <= 0 || opts.FullRepaintFraction > 1 {
		opts.FullRepaintFraction = 0.6
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Composer{
		width:      opts.Width,
		height:     opts.Height,
		gap:        opts.Gap,
		frac:       opts.FullRepaintFraction,
		log:        opts.Logger,
		widgets:    make(map[string]*widgetState, len(specs)),
		placements: make(map[string]render.Rect),
		frame:      &render.Frame{Width: opts.Width, Height: opts.Height},
	}
	for i, spec := range specs {
		if spec.Zone < 0 || spec.Zone >= zoneCount {
			return nil, fmt.Errorf("widget %q: invalid zone %d", spec.ID, spec.Zone)
		}
		if _, dup := c.widgets[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate widget id %q", spec.ID)
		}
		st := &widgetState{spec: spec, order: i}
		c.widgets[spec.ID] = st
		c.zones[spec.Zone] = append(c.zones[spec.Zone], st)
	}
	return c, nil
}

// Frame returns the current authoritative frame. Callers must treat it as
// read-only.
func (c *Composer) Frame() *render.Frame { return c.frame }

// Size returns the bar geometry the composer is laying out for.
func (c *Composer) Size() (w, h int) { return c.width, c.height }

// Apply replaces the stored runs and width for one widget, recomputes the
// layout, and returns the new frame together with the dirty rectangles to
// repaint. full reports that more of the bar changed than the configured
// fraction and a single full-bar repaint is cheaper.
func (c *Composer) Apply(id string, runs []render.Run, width int, actions map[render.Button]string) (frame *render.Frame, dirty []render.Rect, full bool) {
	st, ok := c.widgets[id]
	if !ok {
		c.log.Warn("update for unconfigured widget dropped", "widget", id)
		return c.frame, nil, false
	}
	if width < 0 {
		c.log.Warn("widget reported negative width, clamped", "widget", id, "width", width)
		width = 0
	}
	if width > c.width {
		c.log.Warn("widget wider than bar, clamped", "widget", id, "width", width, "bar", c.width)
		width = c.width
	}
	st.runs = runs
	st.width = width
	st.actions = actions

	return c.recompose(id)
}

// Resize adopts a new bar geometry and recomputes everything. The caller
// repaints the whole surface afterwards.
func (c *Composer) Resize(width, height int) (frame *render.Frame, dirty []render.Rect, full bool) {
	if width <= 0 || height <= 0 {
		c.log.Warn("ignoring invalid resize", "width", width, "height", height)
		return c.frame, nil, false
	}
	c.width = width
	c.height = height
	frame, _, _ = c.recompose("")
	return frame, []render.Rect{frame.Bounds()}, true
}

// recompose rebuilds placements, the frame, and the click regions, then
// diffs against the previous placements. changedID is the widget whose
// content was replaced, or "" for a structural recompute.
func (c *Composer) recompose(changedID string) (*render.Frame, []render.Rect, bool) {
	old := c.placements
	visible := c.layout()

	placements := make(map[string]render.Rect, len(visible))
	frame := &render.Frame{Width: c.width, Height: c.height}
	for _, pw := range visible {
		placements[pw.st.spec.ID] = pw.rect
		frame.Runs = append(frame.Runs, render.TranslateRuns(pw.st.runs, pw.rect.X, 0)...)
		if len(pw.st.actions) > 0 {
			frame.Regions = append(frame.Regions, render.ClickRegion{
				Bounds:  pw.rect,
				Widget:  pw.st.spec.ID,
				Actions: pw.st.actions,
			})
		}
	}

	dirty := diffPlacements(old, placements, changedID)
	dirty = c.coverRuns(dirty, visible)

	c.placements = placements
	c.frame = frame

	if len(dirty) == 0 {
		return frame, nil, false
	}
	area := 0
	for _, r := range dirty {
		area += r.Area()
	}
	barArea := c.width * c.height
	if area > barArea || float64(area) > c.frac*float64(barArea) {
		return frame, []render.Rect{frame.Bounds()}, true
	}
	return frame, dirty, false
}

// Cover expands an exposed area to whole-widget rectangles so the painter
// can redraw it from the current frame without splitting any run. Used for
// display-server exposure events, which arrive with arbitrary geometry.
func (c *Composer) Cover(area render.Rect) []render.Rect {
	area = area.Intersect(render.Rect{W: c.width, H: c.height})
	if area.Empty() {
		return nil
	}
	dirty := []render.Rect{area}
	for _, rect := range c.placements {
		if rect.Intersects(area) && area.Intersect(rect) != rect {
			dirty = append(dirty, rect)
		}
	}
	return dirty
}

// placed pairs a widget with its absolute bar rectangle.
type placed struct {
	st   *widgetState
	rect render.Rect
}

// layout computes the visible widget set and per-widget x-offsets. Zones
// that collectively exceed the bar width lose widgets deterministically:
// center zone first, then end, then start; within a zone the lowest
// priority goes first, ties broken by configured order with the
// last-configured widget elided first.
func (c *Composer) layout() []placed {
	elided := c.planElision()

	var out []placed
	offsets := c.zoneOffsets(elided)
	for z := ZoneStart; z <= ZoneEnd; z++ {
		x := offsets[z]
		first := true
		for _, st := range c.zones[z] {
			if st.width <= 0 || elided[st.spec.ID] {
				continue
			}
			if !first {
				x += c.gap
			}
			first = false
			out = append(out, placed{
				st:   st,
				rect: render.Rect{X: x, Y: 0, W: st.width, H: c.height},
			})
			x += st.width
		}
	}
	return out
}

// zoneWidth sums the visible widths in a zone including inner gaps.
func (c *Composer) zoneWidth(z Zone, elided map[string]bool) int {
	total, n := 0, 0
	for _, st := range c.zones[z] {
		if st.width <= 0 || elided[st.spec.ID] {
			continue
		}
		total += st.width
		n++
	}
	if n > 1 {
		total += (n - 1) * c.gap
	}
	return total
}

// zoneOffsets returns the starting x of each zone: start at 0, end
// right-justified, center centered in the band between them.
func (c *Composer) zoneOffsets(elided map[string]bool) [zoneCount]int {
	startW := c.zoneWidth(ZoneStart, elided)
	centerW := c.zoneWidth(ZoneCenter, elided)
	endW := c.zoneWidth(ZoneEnd, elided)

	var off [zoneCount]int
	off[ZoneStart] = 0
	off[ZoneEnd] = c.width - endW
	band := c.width - startW - endW
	off[ZoneCenter] = startW + (band-centerW)/2
	if off[ZoneCenter] < startW {
		off[ZoneCenter] = startW
	}
	return off
}

// planElision decides which widgets to drop so the remainder fits the bar
// width. The result is reproducible for identical widths.
func (c *Composer) planElision() map[string]bool {
	elided := make(map[string]bool)
	for {
		total := 0
		for z := ZoneStart; z <= ZoneEnd; z++ {
			total += c.zoneWidth(z, elided)
		}
		if total <= c.width {
			return elided
		}
		victim := c.pickVictim(elided)
		if victim == nil {
			return elided
		}
		c.log.Debug("bar overflow, eliding widget",
			"widget", victim.spec.ID, "zone", victim.spec.Zone.String())
		elided[victim.spec.ID] = true
	}
}

// pickVictim selects the next widget to elide: lowest-priority zone with
// anything left (center, then end, then start), lowest priority value
// within it, last-configured among equals.
func (c *Composer) pickVictim(elided map[string]bool) *widgetState {
	for _, z := range [...]Zone{ZoneCenter, ZoneEnd, ZoneStart} {
		var victim *widgetState
		for _, st := range c.zones[z] {
			if st.width <= 0 || elided[st.spec.ID] {
				continue
			}
			if victim == nil ||
				st.spec.Priority < victim.spec.Priority ||
				(st.spec.Priority == victim.spec.Priority && st.order > victim.order) {
				victim = st
			}
		}
		if victim != nil {
			return victim
		}
	}
	return nil
}

// diffPlacements returns the whole-widget rectangles that changed between
// two layouts: the updated widget itself plus anything that moved,
// resized, appeared, or disappeared.
func diffPlacements(old, new map[string]render.Rect, changedID string) []render.Rect {
	var dirty []render.Rect
	seen := make(map[string]bool, len(new))
	for id, nr := range new {
		seen[id] = true
		or, had := old[id]
		switch {
		case !had:
			dirty = append(dirty, nr)
		case or != nr:
			dirty = append(dirty, or, nr)
		case id == changedID:
			dirty = append(dirty, nr)
		}
	}
	for id, or := range old {
		if !seen[id] {
			dirty = append(dirty, or)
		}
	}
	return dirty
}

// coverRuns grows the dirty set until every visible widget it touches is
// fully contained. The painter clears dirty rectangles and then redraws
// whole runs, so a run may never straddle the dirty boundary.
func (c *Composer) coverRuns(dirty []render.Rect, visible []placed) []render.Rect {
	if len(dirty) == 0 {
		return nil
	}
	included := make(map[string]bool, len(visible))
	for changed := true; changed; {
		changed = false
		for _, pw := range visible {
			id := pw.st.spec.ID
			if included[id] {
				continue
			}
			contained, touched := false, false
			for _, r := range dirty {
				if r.Intersect(pw.rect) == pw.rect {
					contained = true
					break
				}
				if pw.rect.Intersects(r) {
					touched = true
				}
			}
			if contained {
				included[id] = true
			} else if touched {
				included[id] = true
				dirty = append(dirty, pw.rect)
				changed = true
			}
		}
	}
	return clampRects(dirty, render.Rect{W: c.width, H: c.height})
}

// clampRects intersects every rectangle with the bar bounds and drops
// empties.
func clampRects(rects []render.Rect, bounds render.Rect) []render.Rect {
	out := rects[:0]
	for _, r := range rects {
		r = r.Intersect(bounds)
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}
