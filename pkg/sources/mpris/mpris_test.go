package mpris

import (
	"context"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

func TestDefaults(t *testing.T) {
	s := New(Config{})
	if s.Name() != "media" {
		t.Errorf("default name = %q, want media", s.Name())
	}
	if s.cfg.Interval != 2*time.Second {
		t.Errorf("default interval = %s, want 2s", s.cfg.Interval)
	}
	if s.service != "org.mpris.MediaPlayer2.playerctld" {
		t.Errorf("default service = %q, want playerctld", s.service)
	}
}

func TestPlayerSelectsService(t *testing.T) {
	s := New(Config{Player: "spotify"})
	if s.service != "org.mpris.MediaPlayer2.spotify" {
		t.Errorf("service = %q", s.service)
	}
}

func TestCapabilities(t *testing.T) {
	caps := New(Config{}).Capabilities()
	want := map[render.Button]string{
		render.ButtonLeft:       "play-pause",
		render.ButtonScrollUp:   "next",
		render.ButtonScrollDown: "previous",
	}
	for button, action := range want {
		if caps.Buttons[button] != action {
			t.Errorf("button %s bound to %q, want %q", button, caps.Buttons[button], action)
		}
	}
}

func TestDoRejectsUnknownAction(t *testing.T) {
	s := New(Config{})
	err := s.Do(context.Background(), widget.Action{Name: "eject"})
	if err == nil {
		t.Fatal("unknown action should be rejected")
	}
}
