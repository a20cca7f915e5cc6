// Package theme provides named color palettes for the bar. Built-in
// palettes cover the common cases; a TOML file can register additional
// ones. Palette colors are hex strings resolved to render.Color at
// startup by the caller.
package theme

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Theme defines the bar's color palette. All fields are hex color strings
// ("#RRGGBB" or "#RRGGBBAA").
type Theme struct {
	Name string `toml:"name"`

	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Dim        string `toml:"dim"`
	Accent     string `toml:"accent"`

	StatusOK    string `toml:"status_ok"`
	StatusWarn  string `toml:"status_warn"`
	StatusError string `toml:"status_error"`
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	for _, t := range builtins() {
		registry[strings.ToLower(t.Name)] = t
	}
}

// Get returns a named theme, falling back to the default palette if the
// name is unknown.
func Get(name string) Theme {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := registry[strings.ToLower(name)]; ok {
		return t
	}
	return registry["default"]
}

// Names returns all registered theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a theme under its lowercase name.
func Register(t Theme) error {
	if t.Name == "" {
		return fmt.Errorf("theme has no name")
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
	return nil
}

// LoadFile registers every theme defined in a TOML file of the form:
//
//	[[theme]]
//	name = "mytheme"
//	background = "#101014"
//	...
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read theme file: %w", err)
	}
	var doc struct {
		Themes []Theme `toml:"theme"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse theme file %s: %w", path, err)
	}
	for _, t := range doc.Themes {
		if err := Register(t); err != nil {
			return fmt.Errorf("theme file %s: %w", path, err)
		}
	}
	return nil
}

// builtins returns the palettes compiled into the binary.
func builtins() []Theme {
	return []Theme{
		{
			Name:        "default",
			Background:  "#1a1b26",
			Foreground:  "#c0caf5",
			Dim:         "#565f89",
			Accent:      "#7aa2f7",
			StatusOK:    "#9ece6a",
			StatusWarn:  "#e0af68",
			StatusError: "#f7768e",
		},
		{
			Name:        "gruvbox",
			Background:  "#282828",
			Foreground:  "#ebdbb2",
			Dim:         "#928374",
			Accent:      "#83a598",
			StatusOK:    "#b8bb26",
			StatusWarn:  "#fabd2f",
			StatusError: "#fb4934",
		},
		{
			Name:        "light",
			Background:  "#fafafa",
			Foreground:  "#383a42",
			Dim:         "#a0a1a7",
			Accent:      "#4078f2",
			StatusOK:    "#50a14f",
			StatusWarn:  "#c18401",
			StatusError: "#e45649",
		},
	}
}
