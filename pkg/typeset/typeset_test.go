package typeset

import (
	"image"
	"testing"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

func newTestShaper(t *testing.T) *Shaper {
	t.Helper()
	s, err := NewShaper(Options{Height: 28})
	if err != nil {
		t.Fatalf("NewShaper failed: %v", err)
	}
	return s
}

func TestShapeEmpty(t *testing.T) {
	s := newTestShaper(t)

	runs, width := s.Shape(nil)
	if len(runs) != 0 || width != 0 {
		t.Errorf("Shape(nil) = %d runs, width %d; want 0, 0", len(runs), width)
	}

	runs, width = s.Shape([]render.Segment{{Text: ""}})
	if len(runs) != 0 || width != 0 {
		t.Errorf("Shape(empty segment) = %d runs, width %d; want 0, 0", len(runs), width)
	}
}

func TestShapeSingleSegment(t *testing.T) {
	s := newTestShaper(t)
	fg := render.Color{R: 0xff, A: 0xff}

	runs, width := s.Shape([]render.Segment{{Text: "12:00", Fg: fg}})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Kind != render.RunText || run.Text != "12:00" {
		t.Errorf("run = %+v, want text run for 12:00", run)
	}
	if run.Fg != fg {
		t.Errorf("run fg = %+v, want %+v", run.Fg, fg)
	}
	if width <= 0 || run.Bounds.W != width {
		t.Errorf("width %d, run width %d; want equal and positive", width, run.Bounds.W)
	}
	if run.Bounds.H != 28 {
		t.Errorf("run height = %d, want 28", run.Bounds.H)
	}
	if run.Baseline <= 0 || run.Baseline > 28 {
		t.Errorf("baseline %d outside run height", run.Baseline)
	}
}

func TestShapeWidthGrowsWithText(t *testing.T) {
	s := newTestShaper(t)

	_, short := s.Shape([]render.Segment{{Text: "ab"}})
	_, long := s.Shape([]render.Segment{{Text: "abcdefgh"}})
	if long <= short {
		t.Errorf("longer text measured %d, shorter %d; want longer > shorter", long, short)
	}
}

func TestShapeGapBetweenSegments(t *testing.T) {
	s := newTestShaper(t)

	_, one := s.Shape([]render.Segment{{Text: "aa"}})
	_, two := s.Shape([]render.Segment{{Text: "aa"}, {Text: "aa"}})
	if want := one*2 + 4; two != want {
		t.Errorf("two segments measured %d, want %d (2x%d + default gap 4)", two, want, one)
	}
}

func TestShapeBackgroundProducesFillRun(t *testing.T) {
	s := newTestShaper(t)
	bg := render.Color{B: 0xff, A: 0xff}

	runs, _ := s.Shape([]render.Segment{{Text: "x", Bg: bg}})
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want fill + text", len(runs))
	}
	if runs[0].Kind != render.RunFill || runs[0].Fg != bg {
		t.Errorf("first run = %+v, want fill in bg color", runs[0])
	}
	if runs[1].Kind != render.RunText {
		t.Errorf("second run = %+v, want text", runs[1])
	}
	if runs[0].Bounds != runs[1].Bounds {
		t.Errorf("fill bounds %+v != text bounds %+v", runs[0].Bounds, runs[1].Bounds)
	}
}

func TestShapeDeterministic(t *testing.T) {
	s := newTestShaper(t)
	segs := []render.Segment{{Text: "cpu 42%"}, {Text: "mem 61%"}}

	_, w1 := s.Shape(segs)
	_, w2 := s.Shape(segs)
	if w1 != w2 {
		t.Errorf("repeated Shape measured %d then %d", w1, w2)
	}
}

func TestDrawRunPaintsPixels(t *testing.T) {
	s := newTestShaper(t)
	runs, width := s.Shape([]render.Segment{{Text: "W", Fg: render.Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width+4, 28))
	s.DrawRun(dst, runs[0])

	painted := false
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i-3] != 0 || dst.Pix[i-2] != 0 || dst.Pix[i-1] != 0 {
			painted = true
			break
		}
	}
	if !painted {
		t.Error("DrawRun left the destination blank")
	}
}

func TestDrawRunIgnoresFill(t *testing.T) {
	s := newTestShaper(t)
	dst := image.NewRGBA(image.Rect(0, 0, 10, 28))

	s.DrawRun(dst, render.Run{Kind: render.RunFill, Bounds: render.Rect{W: 10, H: 28}})
	for _, px := range dst.Pix {
		if px != 0 {
			t.Fatal("DrawRun painted a fill run; fills belong to the surface painter")
		}
	}
}
