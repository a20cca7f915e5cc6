package sysmetrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

func TestDefaults(t *testing.T) {
	s := New(Config{})
	if s.Name() != "sys" {
		t.Errorf("default name = %q, want sys", s.Name())
	}
	if s.cfg.Interval != 2*time.Second {
		t.Errorf("default interval = %s, want 2s", s.cfg.Interval)
	}
	if s.cfg.WarnAt != 90 {
		t.Errorf("default warn threshold = %g, want 90", s.cfg.WarnAt)
	}
	if caps := s.Capabilities(); len(caps.Buttons) != 0 {
		t.Errorf("meter advertises buttons: %+v", caps.Buttons)
	}
}

func TestSegmentWarnColoring(t *testing.T) {
	warn := render.Color{R: 0xe0, G: 0xaf, B: 0x68, A: 0xff}
	s := New(Config{WarnAt: 90, Warn: warn})

	if seg := s.segment("cpu 42%", 42); seg.Fg.IsSet() {
		t.Errorf("below threshold got color %+v", seg.Fg)
	}
	if seg := s.segment("cpu 95%", 95); seg.Fg != warn {
		t.Errorf("above threshold fg = %+v, want warn color", seg.Fg)
	}
	if seg := s.segment("cpu 90%", 90); seg.Fg != warn {
		t.Errorf("at threshold fg = %+v, want warn color", seg.Fg)
	}
}

func TestSegmentWithoutWarnColor(t *testing.T) {
	s := New(Config{WarnAt: 50})
	if seg := s.segment("mem 99%", 99); seg.Fg.IsSet() {
		t.Errorf("unset warn color still colored: %+v", seg.Fg)
	}
}

func TestStreamEmitsBothMetrics(t *testing.T) {
	s := New(Config{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan widget.Content, 1)
	go s.Stream(ctx, out)

	select {
	case c := <-out:
		if len(c.Segments) != 2 {
			t.Fatalf("got %d segments, want cpu and mem", len(c.Segments))
		}
		if !strings.HasPrefix(c.Segments[0].Text, "cpu ") {
			t.Errorf("first segment = %q, want cpu reading", c.Segments[0].Text)
		}
		if !strings.HasPrefix(c.Segments[1].Text, "mem ") {
			t.Errorf("second segment = %q, want mem reading", c.Segments[1].Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no sample emitted")
	}
}

func TestStreamStopsOnCancellation(t *testing.T) {
	s := New(Config{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan widget.Content)
	done := make(chan error, 1)
	go func() { done <- s.Stream(ctx, out) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Stream returned nil on cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stream did not stop")
	}
}
