// ledgebar is a lightweight status bar that docks to a screen edge and
// renders live system and desktop information.
//
// Every widget is an independently updating stream; the engine multiplexes
// them with the display server's events, recomputes only the affected part
// of the layout, and paints dirty rectangles onto a docked X11 surface.
//
// Usage:
//
//	ledgebar [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/ledgebar/config.toml)
//	-bottom         Dock to the bottom edge, overriding the config
//	-verbose        Enable verbose logging
//	-version        Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/tinyland/lab/ledgebar/pkg/compose"
	"gitlab.com/tinyland/lab/ledgebar/pkg/config"
	"gitlab.com/tinyland/lab/ledgebar/pkg/engine"
	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/sources/clock"
	"gitlab.com/tinyland/lab/ledgebar/pkg/sources/command"
	"gitlab.com/tinyland/lab/ledgebar/pkg/sources/fswatch"
	"gitlab.com/tinyland/lab/ledgebar/pkg/sources/mpris"
	"gitlab.com/tinyland/lab/ledgebar/pkg/sources/sysmetrics"
	"gitlab.com/tinyland/lab/ledgebar/pkg/theme"
	"gitlab.com/tinyland/lab/ledgebar/pkg/typeset"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
	"gitlab.com/tinyland/lab/ledgebar/pkg/xbar"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		dockBottom  = flag.Bool("bottom", false, "Dock to the bottom edge")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ledgebar %s (%s)\n", version, commit)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *dockBottom, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, dockBottom bool, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dockBottom {
		cfg.Bar.Position = "bottom"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Bar.ThemeFile != "" {
		if err := theme.LoadFile(cfg.Bar.ThemeFile); err != nil {
			return err
		}
	}
	pal, err := resolvePalette(theme.Get(cfg.Bar.Theme))
	if err != nil {
		return err
	}

	shaper, err := typeset.NewShaper(typeset.Options{
		FontSize: cfg.Bar.FontSize,
		Height:   cfg.Bar.Height,
	})
	if err != nil {
		return err
	}

	surf, err := xbar.Open(xbar.Config{
		Position:   position(cfg.Bar.Position),
		Height:     cfg.Bar.Height,
		Width:      cfg.Bar.Width,
		X:          cfg.Bar.X,
		Background: pal.background,
		Logger:     logger,
	}, shaper, logger)
	if err != nil {
		return err
	}

	barW, barH := surf.Size()
	specs, srcs, err := buildWidgets(cfg, pal)
	if err != nil {
		return err
	}
	composer, err := compose.New(compose.Options{
		Width:               barW,
		Height:              barH,
		Gap:                 cfg.Bar.Gap,
		FullRepaintFraction: cfg.Bar.RepaintFraction,
		Logger:              logger,
	}, specs)
	if err != nil {
		return err
	}

	eng, err := engine.New(composer, surf, shaper, srcs, engine.Options{
		TickEvery:     cfg.Bar.Tick.Duration,
		ShutdownGrace: cfg.Bar.ShutdownGrace.Duration,
		Adapter: widget.AdapterOptions{
			Foreground: pal.foreground,
			Dim:        pal.dim,
			Warn:       pal.warn,
			Logger:     logger,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("ledgebar starting",
		"version", version, "width", barW, "height", barH,
		"position", cfg.Bar.Position, "widgets", len(srcs))
	return eng.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func position(name string) xbar.Position {
	if name == "bottom" {
		return xbar.Bottom
	}
	return xbar.Top
}

// palette is the theme resolved to concrete colors.
type palette struct {
	background render.Color
	foreground render.Color
	dim        render.Color
	accent     render.Color
	warn       render.Color
}

func resolvePalette(t theme.Theme) (palette, error) {
	var (
		p   palette
		err error
	)
	for _, c := range []struct {
		dst *render.Color
		hex string
		key string
	}{
		{&p.background, t.Background, "background"},
		{&p.foreground, t.Foreground, "foreground"},
		{&p.dim, t.Dim, "dim"},
		{&p.accent, t.Accent, "accent"},
		{&p.warn, t.StatusWarn, "status_warn"},
	} {
		if *c.dst, err = render.ParseColor(c.hex); err != nil {
			return palette{}, fmt.Errorf("theme %s: %s: %w", t.Name, c.key, err)
		}
	}
	return p, nil
}

// buildWidgets turns the validated widget list into composer specs and
// source instances, preserving configured order.
func buildWidgets(cfg *config.Config, pal palette) ([]compose.WidgetSpec, []widget.Source, error) {
	specs := make([]compose.WidgetSpec, 0, len(cfg.Widgets))
	srcs := make([]widget.Source, 0, len(cfg.Widgets))
	for _, w := range cfg.Widgets {
		zone, err := compose.ParseZone(w.Zone)
		if err != nil {
			return nil, nil, fmt.Errorf("widget %q: %w", w.Name, err)
		}
		specs = append(specs, compose.WidgetSpec{
			ID:       w.Name,
			Zone:     zone,
			Priority: w.Priority,
		})

		var src widget.Source
		switch w.Type {
		case "clock":
			src = clock.New(clock.Config{
				Name:      w.Name,
				Format:    w.Format,
				Precision: clock.ParsePrecision(w.Precision),
			})
		case "command":
			src = command.New(command.Config{
				Name:           w.Name,
				Command:        w.Command,
				Interval:       w.Interval.Duration,
				RefreshOnClick: w.RefreshOnClick,
			})
		case "sysmetrics":
			src = sysmetrics.New(sysmetrics.Config{
				Name:     w.Name,
				Interval: w.Interval.Duration,
				Warn:     pal.warn,
			})
		case "mpris":
			src = mpris.New(mpris.Config{
				Name:     w.Name,
				Player:   w.Player,
				Interval: w.Interval.Duration,
			})
		case "fswatch":
			src = fswatch.New(fswatch.Config{
				Name: w.Name,
				Path: w.Path,
			})
		default:
			return nil, nil, fmt.Errorf("widget %q: unknown type %q", w.Name, w.Type)
		}
		srcs = append(srcs, src)
	}
	return specs, srcs, nil
}
