// Package mpris provides a now-playing widget source speaking the MPRIS
// D-Bus interface. It polls the player's metadata and playback status and
// emits an update only when the displayed text changes, so an idle player
// causes no repaints. Left click toggles play/pause; scrolling skips.
package mpris

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

const (
	mprisPath      = "/org/mpris/MediaPlayer2"
	playerIface    = "org.mpris.MediaPlayer2.Player"
	defaultService = "org.mpris.MediaPlayer2.playerctld"
)

// Config configures an MPRIS source.
type Config struct {
	// Name is the widget identifier (default "media").
	Name string

	// Player is the MPRIS service suffix (e.g. "spotify"); empty targets
	// the playerctl daemon, which proxies the active player.
	Player string

	// Interval is the polling period (default 2s).
	Interval time.Duration

	// MaxLen truncates the title text (default 60 runes).
	MaxLen int
}

// Source polls one MPRIS player.
type Source struct {
	cfg     Config
	service string
}

// New creates an MPRIS source.
func New(cfg Config) *Source {
	if cfg.Name == "" {
		cfg.Name = "media"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 60
	}
	service := defaultService
	if cfg.Player != "" {
		service = "org.mpris.MediaPlayer2." + cfg.Player
	}
	return &Source{cfg: cfg, service: service}
}

// Name returns the widget identifier.
func (s *Source) Name() string { return s.cfg.Name }

// Capabilities advertises playback control actions.
func (s *Source) Capabilities() widget.Capabilities {
	return widget.Capabilities{Buttons: map[render.Button]string{
		render.ButtonLeft:       "play-pause",
		render.ButtonScrollUp:   "next",
		render.ButtonScrollDown: "previous",
	}}
}

// Stream polls the player until ctx is done. Connection and property
// errors are transient: the adapter backs off and calls Stream again,
// which reconnects from scratch.
func (s *Source) Stream(ctx context.Context, out chan<- widget.Content) error {
	conn, err := connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var last string
	for {
		text, err := s.nowPlaying(conn)
		if err != nil {
			return err
		}
		if text != last {
			last = text
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- widget.Text(text):
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Do performs a routed playback action.
func (s *Source) Do(ctx context.Context, action widget.Action) error {
	var method string
	switch action.Name {
	case "play-pause":
		method = "PlayPause"
	case "next":
		method = "Next"
	case "previous":
		method = "Previous"
	default:
		return fmt.Errorf("unknown action %q", action.Name)
	}

	conn, err := connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	call := conn.Object(s.service, mprisPath).CallWithContext(
		ctx, playerIface+"."+method, 0)
	if call.Err != nil {
		return fmt.Errorf("mpris %s: %w", method, call.Err)
	}
	return nil
}

// nowPlaying formats "icon artist - title" from the player's properties.
func (s *Source) nowPlaying(conn *dbus.Conn) (string, error) {
	obj := conn.Object(s.service, mprisPath)

	status := "Stopped"
	if v, err := obj.GetProperty(playerIface + ".PlaybackStatus"); err == nil {
		_ = v.Store(&status)
	}

	metaVar, err := obj.GetProperty(playerIface + ".Metadata")
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	var meta map[string]dbus.Variant
	if err := metaVar.Store(&meta); err != nil {
		return "", fmt.Errorf("decode metadata: %w", err)
	}

	var title string
	if v, ok := meta["xesam:title"]; ok {
		_ = v.Store(&title)
	}
	var artists []string
	if v, ok := meta["xesam:artist"]; ok {
		_ = v.Store(&artists)
	}

	icon := "■"
	switch status {
	case "Playing":
		icon = "▶"
	case "Paused":
		icon = "⏸"
	}
	text := title
	if len(artists) > 0 && title != "" {
		text = artists[0] + " - " + title
	}
	if text == "" {
		text = "nothing playing"
	}
	if runes := []rune(text); len(runes) > s.cfg.MaxLen {
		text = strings.TrimSpace(string(runes[:s.cfg.MaxLen-1])) + "…"
	}
	return icon + " " + text, nil
}

// connect opens a private session-bus connection owned by the caller, so
// closing it on stream teardown cannot disturb other components.
func connect() (*dbus.Conn, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("authenticate session bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register on session bus: %w", err)
	}
	return conn, nil
}
