// Package config provides TOML-based configuration for ledgebar: bar
// geometry, the ordered widget list per alignment zone, and engine pacing
// knobs. The engine core never reads files itself; it receives the
// validated in-memory Config produced here.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration document.
type Config struct {
	Bar     BarConfig      `toml:"bar"`
	Widgets []WidgetConfig `toml:"widget"`
}

// BarConfig describes the bar window and engine pacing.
type BarConfig struct {
	// Position is the docked screen edge: "top" or "bottom".
	Position string `toml:"position"`

	// Height is the bar height in pixels.
	Height int `toml:"height"`

	// Width is the bar width in pixels; 0 spans the screen edge from X.
	Width int `toml:"width"`

	// X is the bar's left offset on the screen edge.
	X int `toml:"x"`

	// Theme names the color palette.
	Theme string `toml:"theme"`

	// ThemeFile optionally registers extra palettes before Theme is
	// resolved.
	ThemeFile string `toml:"theme_file"`

	// FontSize is the face size in points.
	FontSize float64 `toml:"font_size"`

	// Gap is the pixel spacing between widgets within a zone.
	Gap int `toml:"gap"`

	// Tick is the bus tick period.
	Tick Duration `toml:"tick"`

	// RepaintFraction is the changed-area share above which a full
	// repaint replaces dirty-rect painting.
	RepaintFraction float64 `toml:"repaint_fraction"`

	// ShutdownGrace bounds how long widget sources get to release their
	// resources on shutdown.
	ShutdownGrace Duration `toml:"shutdown_grace"`
}

// WidgetConfig describes one configured widget instance. Type selects the
// source implementation; the remaining fields are source-specific and
// ignored by types that do not use them.
type WidgetConfig struct {
	// Name is the stable widget identifier, unique across the bar.
	Name string `toml:"name"`

	// Type selects the source: "clock", "command", "sysmetrics",
	// "mpris", or "fswatch".
	Type string `toml:"type"`

	// Zone is the alignment zone: "start", "center", or "end".
	Zone string `toml:"zone"`

	// Priority orders elision under overflow; higher survives longer.
	Priority int `toml:"priority"`

	// Interval is the source's refresh period, where applicable.
	Interval Duration `toml:"interval"`

	// Format is a type-specific format string (clock layout, sysmetrics
	// template).
	Format string `toml:"format"`

	// Precision selects clock alignment: "seconds", "minutes", "hours".
	Precision string `toml:"precision"`

	// Command is the shell command for "command" widgets.
	Command string `toml:"command"`

	// RefreshOnClick re-runs a "command" widget on left click.
	RefreshOnClick bool `toml:"refresh_on_click"`

	// Path is the watched file for "fswatch" widgets.
	Path string `toml:"path"`

	// Player is the MPRIS bus suffix for "mpris" widgets (e.g. "spotify";
	// empty means the playerctl daemon).
	Player string `toml:"player"`
}

// widgetTypes is the closed set of source types the builder understands.
var widgetTypes = map[string]bool{
	"clock":      true,
	"command":    true,
	"sysmetrics": true,
	"mpris":      true,
	"fswatch":    true,
}

// zoneNames is the accepted zone vocabulary, including aliases.
var zoneNames = map[string]bool{
	"start": true, "left": true,
	"center": true, "middle": true,
	"end": true, "right": true,
}

// Load reads configuration from the standard config path. Search order:
//
//  1. $XDG_CONFIG_HOME/ledgebar/config.toml
//  2. ~/.config/ledgebar/config.toml
//
// If no file exists, the default configuration is returned.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes configuration from r on top of the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeTOML(r, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a bar with a clock and a sysmetrics widget;
// enough to show something useful with no config file at all.
func DefaultConfig() *Config {
	return &Config{
		Bar: BarConfig{
			Position:        "top",
			Height:          28,
			Theme:           "default",
			FontSize:        13,
			Gap:             8,
			Tick:            Duration{time.Second},
			RepaintFraction: 0.6,
			ShutdownGrace:   Duration{3 * time.Second},
		},
		Widgets: []WidgetConfig{
			{Name: "clock", Type: "clock", Zone: "center", Priority: 10, Precision: "minutes"},
			{Name: "sys", Type: "sysmetrics", Zone: "end", Priority: 5, Interval: Duration{2 * time.Second}},
		},
	}
}

// Validate rejects malformed configuration before the engine starts.
// Geometry and widget errors are configuration errors in the error
// taxonomy: they never reach the running core.
func (c *Config) Validate() error {
	switch c.Bar.Position {
	case "top", "bottom":
	default:
		return fmt.Errorf("bar.position: unknown position %q (want top or bottom)", c.Bar.Position)
	}
	if c.Bar.Height <= 0 {
		return fmt.Errorf("bar.height: must be positive, got %d", c.Bar.Height)
	}
	if c.Bar.Width < 0 || c.Bar.X < 0 {
		return fmt.Errorf("bar geometry: width and x must be non-negative")
	}
	if c.Bar.RepaintFraction <= 0 || c.Bar.RepaintFraction > 1 {
		return fmt.Errorf("bar.repaint_fraction: must be in (0, 1], got %g", c.Bar.RepaintFraction)
	}
	if len(c.Widgets) == 0 {
		return fmt.Errorf("no widgets configured")
	}

	seen := make(map[string]bool, len(c.Widgets))
	for i, w := range c.Widgets {
		if w.Name == "" {
			return fmt.Errorf("widget[%d]: missing name", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("widget %q: duplicate name", w.Name)
		}
		seen[w.Name] = true
		if !widgetTypes[w.Type] {
			return fmt.Errorf("widget %q: unknown type %q", w.Name, w.Type)
		}
		if !zoneNames[w.Zone] {
			return fmt.Errorf("widget %q: unknown zone %q", w.Name, w.Zone)
		}
		if w.Interval.Duration != 0 && w.Interval.Duration < 100*time.Millisecond {
			return fmt.Errorf("widget %q: interval %s too small (minimum 100ms)", w.Name, w.Interval)
		}
		switch w.Type {
		case "command":
			if w.Command == "" {
				return fmt.Errorf("widget %q: command type requires command", w.Name)
			}
		case "fswatch":
			if w.Path == "" {
				return fmt.Errorf("widget %q: fswatch type requires path", w.Name)
			}
		}
	}
	return nil
}

func configSearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "ledgebar", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ledgebar", "config.toml"))
	}
	return paths
}
