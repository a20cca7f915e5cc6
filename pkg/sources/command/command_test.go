package command

import (
	"context"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

func collect(t *testing.T, s *Source) (<-chan widget.Content, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan widget.Content, 8)
	done := make(chan error, 1)
	go func() { done <- s.Stream(ctx, out) }()
	t.Cleanup(cancel)
	return out, cancel, done
}

func next(t *testing.T, out <-chan widget.Content) string {
	t.Helper()
	select {
	case c := <-out:
		if len(c.Segments) != 1 {
			t.Fatalf("got %d segments, want 1", len(c.Segments))
		}
		return c.Segments[0].Text
	case <-time.After(3 * time.Second):
		t.Fatal("no emission")
		return ""
	}
}

func TestStreamEmitsFirstLine(t *testing.T) {
	s := New(Config{Name: "host", Command: "printf 'first\\nsecond\\n'"})
	out, _, _ := collect(t, s)

	if got := next(t, out); got != "first" {
		t.Errorf("emitted %q, want first line only", got)
	}
}

func TestStreamOnceBlocksAfterEmission(t *testing.T) {
	s := New(Config{Name: "once", Command: "echo done"})
	out, cancel, done := collect(t, s)

	if got := next(t, out); got != "done" {
		t.Errorf("emitted %q, want done", got)
	}
	select {
	case c := <-out:
		t.Fatalf("one-shot command emitted again: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Stream returned nil on cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not stop")
	}
}

func TestStreamIntervalRepeats(t *testing.T) {
	s := New(Config{Name: "tick", Command: "echo hi", Interval: 20 * time.Millisecond})
	out, _, _ := collect(t, s)

	next(t, out)
	next(t, out)
}

func TestStreamFailureIsTransient(t *testing.T) {
	s := New(Config{Name: "bad", Command: "exit 3"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan widget.Content, 1)

	if err := s.Stream(ctx, out); err == nil {
		t.Fatal("nonzero exit should surface as a stream error")
	}
}

func TestCapabilities(t *testing.T) {
	plain := New(Config{Name: "p", Command: "true"})
	if caps := plain.Capabilities(); len(caps.Buttons) != 0 {
		t.Errorf("plain command advertises buttons: %+v", caps.Buttons)
	}

	clickable := New(Config{Name: "c", Command: "true", RefreshOnClick: true})
	caps := clickable.Capabilities()
	if caps.Buttons[render.ButtonLeft] != "refresh" {
		t.Errorf("capabilities = %+v, want left bound to refresh", caps.Buttons)
	}
}

func TestRefreshActionRerunsCommand(t *testing.T) {
	s := New(Config{Name: "r", Command: "echo ran", RefreshOnClick: true})
	out, _, _ := collect(t, s)

	next(t, out)
	action := widget.Action{Widget: "r", Button: render.ButtonLeft, Name: "refresh"}
	if err := s.Do(context.Background(), action); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	next(t, out)
}

func TestUnknownActionRejected(t *testing.T) {
	s := New(Config{Name: "r", Command: "true", RefreshOnClick: true})
	err := s.Do(context.Background(), widget.Action{Widget: "r", Name: "explode"})
	if err == nil {
		t.Fatal("unknown action should be rejected")
	}
}

func TestRefreshCoalesces(t *testing.T) {
	s := New(Config{Name: "r", Command: "true", RefreshOnClick: true})
	// Rapid clicks before the stream drains must not block Do.
	for i := 0; i < 5; i++ {
		if err := s.Do(context.Background(), widget.Action{Name: "refresh"}); err != nil {
			t.Fatalf("Do %d failed: %v", i, err)
		}
	}
}
