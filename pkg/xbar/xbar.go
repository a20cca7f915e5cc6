// Package xbar owns the X11 side of the bar: the display connection, the
// docked window with its EWMH hints and struts, the off-screen BGRA
// buffer, and dirty-rectangle painting. No other package issues X calls.
//
// The surface translates native X events (expose, button press, configure
// notify) into bus events; the engine consumes them on its single loop and
// calls back into Paint. Losing the display connection is fatal: a bar
// without a display has no degraded mode worth running.
package xbar

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/ewmh"
	"github.com/jezek/xgbutil/icccm"
	"github.com/jezek/xgbutil/xgraphics"
	"github.com/jezek/xgbutil/xwindow"

	"gitlab.com/tinyland/lab/ledgebar/pkg/bus"
	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Position selects the screen edge the bar docks to.
type Position int

const (
	// Top docks the bar to the top edge.
	Top Position = iota
	// Bottom docks the bar to the bottom edge.
	Bottom
)

// ParsePosition parses a configuration position name.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "top":
		return Top, nil
	case "bottom":
		return Bottom, nil
	}
	return 0, fmt.Errorf("unknown bar position %q (want top or bottom)", s)
}

// Config describes the bar window geometry and appearance.
type Config struct {
	Position Position

	// Height is the bar height in pixels.
	Height int

	// Width is the bar width in pixels; 0 spans the screen from X.
	Width int

	// X is the left offset of the bar on the screen edge.
	X int

	// Background is the bar's base color.
	Background render.Color

	// Title is the window name advertised to the window manager.
	Title string

	Logger *slog.Logger
}

// Rasterizer draws a single text run onto the buffer. Implemented by
// typeset.Shaper; an interface here keeps font handling out of the X
// layer.
type Rasterizer interface {
	DrawRun(dst draw.Image, run render.Run)
}

// Surface is the docked X window plus its off-screen buffer. Paint,
// Resize, and Close must be called from the engine goroutine; the event
// pump runs on its own goroutine and only writes to the bus channel.
type Surface struct {
	xu  *xgbutil.XUtil
	win *xwindow.Window
	img *xgraphics.Image

	width  int
	height int
	bg     xgraphics.BGRA
	ras    Rasterizer

	events chan bus.Event
	log    *slog.Logger
}

// Open connects to the display server, creates and maps the dock window,
// and starts the native event pump. Any failure here is fatal to the
// caller; there is no retry.
func Open(cfg Config, ras Rasterizer, logger *slog.Logger) (*Surface, error) {
	if cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid bar height %d", cfg.Height)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Title == "" {
		cfg.Title = "ledgebar"
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to display server: %w", err)
	}

	screen := xu.Screen()
	screenW := int(screen.WidthInPixels)
	screenH := int(screen.HeightInPixels)

	width := cfg.Width
	if width <= 0 {
		width = screenW - cfg.X
	}
	if cfg.X+width > screenW {
		width = screenW - cfg.X
	}
	if width <= 0 {
		xu.Conn().Close()
		return nil, fmt.Errorf("bar geometry (x=%d width=%d) does not fit screen width %d", cfg.X, cfg.Width, screenW)
	}
	y := 0
	if cfg.Position == Bottom {
		y = screenH - cfg.Height
	}

	s := &Surface{
		xu:     xu,
		width:  width,
		height: cfg.Height,
		bg:     toBGRA(cfg.Background),
		ras:    ras,
		events: make(chan bus.Event, 8),
		log:    logger,
	}

	win, err := xwindow.Generate(xu)
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("allocate window id: %w", err)
	}
	err = win.CreateChecked(xu.RootWin(), cfg.X, y, width, cfg.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		uint32(screen.BlackPixel),
		xproto.EventMaskExposure|
			xproto.EventMaskButtonPress|
			xproto.EventMaskButtonRelease|
			xproto.EventMaskStructureNotify)
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("create bar window: %w", err)
	}
	s.win = win

	if err := s.dock(cfg, y, width, screenW, screenH); err != nil {
		win.Destroy()
		xu.Conn().Close()
		return nil, err
	}

	img := xgraphics.New(xu, image.Rect(0, 0, width, cfg.Height))
	if err := img.XSurfaceSet(win.Id); err != nil {
		win.Destroy()
		xu.Conn().Close()
		return nil, fmt.Errorf("attach pixel buffer: %w", err)
	}
	s.img = img
	s.clear(render.Rect{W: width, H: cfg.Height})
	img.XDraw()

	win.Map()
	img.XPaint(win.Id)

	go s.pump()
	return s, nil
}

// dock applies the window-manager metadata that makes the window a panel:
// dock type, above+sticky state, all desktops, reserved strut space, and
// a no-input hint so the bar never takes focus.
func (s *Surface) dock(cfg Config, y, width, screenW, screenH int) error {
	wid := s.win.Id
	if err := ewmh.WmWindowTypeSet(s.xu, wid, []string{"_NET_WM_WINDOW_TYPE_DOCK"}); err != nil {
		return fmt.Errorf("set dock window type: %w", err)
	}
	if err := ewmh.WmStateSet(s.xu, wid, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_STICKY"}); err != nil {
		return fmt.Errorf("set window state: %w", err)
	}
	if err := ewmh.WmDesktopSet(s.xu, wid, 0xFFFFFFFF); err != nil {
		s.log.Warn("pin to all desktops failed", "err", err)
	}
	if err := ewmh.WmNameSet(s.xu, wid, cfg.Title); err != nil {
		s.log.Warn("set window name failed", "err", err)
	}

	strut := &ewmh.WmStrutPartial{}
	if cfg.Position == Top {
		strut.Top = uint(cfg.Height)
		strut.TopStartX = uint(cfg.X)
		strut.TopEndX = uint(cfg.X + width - 1)
	} else {
		strut.Bottom = uint(cfg.Height)
		strut.BottomStartX = uint(cfg.X)
		strut.BottomEndX = uint(cfg.X + width - 1)
	}
	if err := ewmh.WmStrutPartialSet(s.xu, wid, strut); err != nil {
		return fmt.Errorf("reserve strut space: %w", err)
	}
	// Legacy strut for window managers predating _NET_WM_STRUT_PARTIAL.
	legacy := &ewmh.WmStrut{Top: strut.Top, Bottom: strut.Bottom}
	if err := ewmh.WmStrutSet(s.xu, wid, legacy); err != nil {
		s.log.Warn("set legacy strut failed", "err", err)
	}

	if err := icccm.WmHintsSet(s.xu, wid, &icccm.Hints{
		Flags: icccm.HintInput,
		Input: 0,
	}); err != nil {
		s.log.Warn("set no-input hint failed", "err", err)
	}
	if err := icccm.WmNormalHintsSet(s.xu, wid, &icccm.NormalHints{
		Flags:  icccm.SizeHintUSPosition | icccm.SizeHintUSSize,
		X:      cfg.X,
		Y:      y,
		Width:  uint(width),
		Height: uint(cfg.Height),
	}); err != nil {
		s.log.Warn("set normal hints failed", "err", err)
	}
	return nil
}

// Events returns the stream of native display events translated into bus
// events. The channel is never closed; a fatal connection loss is
// reported as a DisplayClosed event.
func (s *Surface) Events() <-chan bus.Event { return s.events }

// Size returns the current surface dimensions.
func (s *Surface) Size() (w, h int) { return s.width, s.height }

// pump reads native events off the X connection and forwards them. It
// exits when the connection dies.
func (s *Surface) pump() {
	for {
		ev, xerr := s.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			s.events <- bus.DisplayClosed{Err: errors.New("display connection closed")}
			return
		}
		if xerr != nil {
			// Protocol-level errors on a healthy connection are logged and
			// survived; only a dead connection is fatal.
			s.log.Warn("x protocol error", "err", xerr)
			continue
		}
		switch e := ev.(type) {
		case xproto.ExposeEvent:
			s.events <- bus.Expose{Area: render.Rect{
				X: int(e.X), Y: int(e.Y), W: int(e.Width), H: int(e.Height),
			}}
		case xproto.ButtonPressEvent:
			s.events <- bus.ButtonPress{
				X:      int(e.EventX),
				Y:      int(e.EventY),
				Button: render.Button(e.Detail),
				Time:   time.Now(),
			}
		case xproto.ConfigureNotifyEvent:
			s.events <- bus.Resize{Width: int(e.Width), Height: int(e.Height)}
		}
	}
}

// Paint renders a frame restricted to the given dirty rectangles: each
// rectangle is cleared to the background color, every run intersecting a
// dirty rectangle is drawn, and only the dirty rectangles are flushed to
// the window. The composer guarantees every run touching a dirty
// rectangle is fully covered by the dirty set, so runs are always drawn
// whole. Painting the same frame and rectangles twice is idempotent.
func (s *Surface) Paint(frame *render.Frame, dirty []render.Rect) error {
	bounds := render.Rect{W: s.width, H: s.height}
	rects := make([]render.Rect, 0, len(dirty))
	for _, r := range dirty {
		r = r.Intersect(bounds)
		if !r.Empty() {
			rects = append(rects, r)
		}
	}
	if len(rects) == 0 {
		return nil
	}

	for _, r := range rects {
		s.clear(r)
	}
	for _, run := range frame.Runs {
		if !intersectsAny(run.Bounds, rects) {
			continue
		}
		switch run.Kind {
		case render.RunFill:
			s.fill(run.Bounds.Intersect(bounds), run.Fg)
		case render.RunText:
			s.ras.DrawRun(s.img, run)
		}
	}

	for _, r := range rects {
		sub := s.img.SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom()))
		if sub == nil {
			continue
		}
		sub.(*xgraphics.Image).XDraw()
		if err := xproto.ClearAreaChecked(s.xu.Conn(), false, s.win.Id,
			int16(r.X), int16(r.Y), uint16(r.W), uint16(r.H)).Check(); err != nil {
			return fmt.Errorf("flush rect %+v: %w", r, err)
		}
	}
	return nil
}

// Resize reallocates the pixel buffer after a geometry change negotiated
// with the window manager. The caller follows up with a full repaint.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if width == s.width && height == s.height {
		return nil
	}
	s.img.Destroy()
	img := xgraphics.New(s.xu, image.Rect(0, 0, width, height))
	if err := img.XSurfaceSet(s.win.Id); err != nil {
		return fmt.Errorf("attach resized pixel buffer: %w", err)
	}
	s.img = img
	s.width = width
	s.height = height
	s.clear(render.Rect{W: width, H: height})
	img.XDraw()
	img.XPaint(s.win.Id)
	return nil
}

// clear fills a rectangle of the buffer with the background color.
func (s *Surface) clear(r render.Rect) {
	sub := s.img.SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom()))
	if sub == nil {
		return
	}
	bg := s.bg
	sub.(*xgraphics.Image).For(func(x, y int) xgraphics.BGRA {
		return bg
	})
}

// fill draws a solid rectangle, alpha-blending translucent colors over
// the bar background.
func (s *Surface) fill(r render.Rect, c render.Color) {
	if r.Empty() {
		return
	}
	sub := s.img.SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom()))
	if sub == nil {
		return
	}
	px := blendOver(toBGRA(c), s.bg)
	sub.(*xgraphics.Image).For(func(x, y int) xgraphics.BGRA {
		return px
	})
}

// Close tears the surface down cleanly: destroy the window, free the
// pixmap, drop the connection. Safe to call once after the event pump has
// reported a closed display, too.
func (s *Surface) Close() {
	s.win.Destroy()
	s.img.Destroy()
	s.xu.Conn().Close()
}

func toBGRA(c render.Color) xgraphics.BGRA {
	return xgraphics.BGRA{B: c.B, G: c.G, R: c.R, A: c.A}
}

// blendOver composites fg over an opaque bg using the source alpha.
func blendOver(fg, bg xgraphics.BGRA) xgraphics.BGRA {
	if fg.A == 0xff {
		return fg
	}
	if fg.A == 0 {
		return bg
	}
	a := uint16(fg.A)
	inv := 0xff - a
	return xgraphics.BGRA{
		B: uint8((uint16(fg.B)*a + uint16(bg.B)*inv) / 0xff),
		G: uint8((uint16(fg.G)*a + uint16(bg.G)*inv) / 0xff),
		R: uint8((uint16(fg.R)*a + uint16(bg.R)*inv) / 0xff),
		A: 0xff,
	}
}

func intersectsAny(r render.Rect, rects []render.Rect) bool {
	for _, d := range rects {
		if r.Intersects(d) {
			return true
		}
	}
	return false
}
