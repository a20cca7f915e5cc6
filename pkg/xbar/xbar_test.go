package xbar

import (
	"testing"

	"github.com/jezek/xgbutil/xgraphics"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{"top", Top, false},
		{"bottom", Bottom, false},
		{"left", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePosition(%q) accepted", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestToBGRA(t *testing.T) {
	c := render.Color{R: 0x12, G: 0x34, B: 0x56, A: 0x78}
	got := toBGRA(c)
	want := xgraphics.BGRA{B: 0x56, G: 0x34, R: 0x12, A: 0x78}
	if got != want {
		t.Errorf("toBGRA = %+v, want %+v", got, want)
	}
}

func TestBlendOver(t *testing.T) {
	bg := xgraphics.BGRA{B: 0x20, G: 0x20, R: 0x20, A: 0xff}

	opaque := xgraphics.BGRA{B: 0x80, G: 0x40, R: 0xc0, A: 0xff}
	if got := blendOver(opaque, bg); got != opaque {
		t.Errorf("opaque blend = %+v, want fg unchanged", got)
	}

	clear := xgraphics.BGRA{B: 0xff, G: 0xff, R: 0xff, A: 0x00}
	if got := blendOver(clear, bg); got != bg {
		t.Errorf("transparent blend = %+v, want bg unchanged", got)
	}

	half := xgraphics.BGRA{B: 0xff, G: 0x00, R: 0xff, A: 0x80}
	got := blendOver(half, bg)
	if got.A != 0xff {
		t.Errorf("blended alpha = %#x, want opaque", got.A)
	}
	// Half white over dark gray lands near the midpoint.
	if got.B < 0x8a || got.B > 0x95 {
		t.Errorf("blended B = %#x, want roughly midway", got.B)
	}
	if got.G > 0x20 {
		t.Errorf("blended G = %#x, want pulled toward bg", got.G)
	}
}

func TestIntersectsAny(t *testing.T) {
	rects := []render.Rect{
		{X: 0, Y: 0, W: 100, H: 28},
		{X: 500, Y: 0, W: 50, H: 28},
	}
	tests := []struct {
		r    render.Rect
		want bool
	}{
		{render.Rect{X: 50, Y: 0, W: 10, H: 28}, true},
		{render.Rect{X: 90, Y: 0, W: 100, H: 28}, true},
		{render.Rect{X: 520, Y: 10, W: 5, H: 5}, true},
		{render.Rect{X: 200, Y: 0, W: 50, H: 28}, false},
		{render.Rect{X: 100, Y: 0, W: 10, H: 28}, false},
	}
	for _, tt := range tests {
		if got := intersectsAny(tt.r, rects); got != tt.want {
			t.Errorf("intersectsAny(%+v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
