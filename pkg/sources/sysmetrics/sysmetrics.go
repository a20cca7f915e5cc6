// Package sysmetrics provides a CPU and memory widget source built on
// gopsutil, so the same widget works on Linux and Darwin without reading
// /proc directly.
package sysmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Config configures a sysmetrics source.
type Config struct {
	// Name is the widget identifier (default "sys").
	Name string

	// Interval is the sampling period (default 2s).
	Interval time.Duration

	// WarnAt is the utilisation percentage at which a metric switches to
	// the warning color (default 90).
	WarnAt float64

	// Warn is the color applied above WarnAt. Unset disables coloring.
	Warn render.Color
}

// Source samples CPU and memory utilisation.
type Source struct {
	cfg Config
}

// New creates a sysmetrics source.
func New(cfg Config) *Source {
	if cfg.Name == "" {
		cfg.Name = "sys"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.WarnAt <= 0 {
		cfg.WarnAt = 90
	}
	return &Source{cfg: cfg}
}

// Name returns the widget identifier.
func (s *Source) Name() string { return s.cfg.Name }

// Capabilities returns an empty descriptor; the meter is not clickable.
func (s *Source) Capabilities() widget.Capabilities {
	return widget.Capabilities{}
}

// Stream samples on the configured interval. A sampling failure is
// returned as a transient error for the adapter's backoff to absorb.
func (s *Source) Stream(ctx context.Context, out chan<- widget.Content) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		content, err := s.sample(ctx)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- content:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Source) sample(ctx context.Context) (widget.Content, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return widget.Content{}, fmt.Errorf("sample cpu: %w", err)
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return widget.Content{}, fmt.Errorf("sample memory: %w", err)
	}

	return widget.Content{Segments: []render.Segment{
		s.segment(fmt.Sprintf("cpu %2.0f%%", cpuPct), cpuPct),
		s.segment(fmt.Sprintf("mem %2.0f%%", vm.UsedPercent), vm.UsedPercent),
	}}, nil
}

// segment colors a metric with the warning color once it crosses the
// threshold; otherwise the theme default applies.
func (s *Source) segment(text string, pct float64) render.Segment {
	seg := render.Segment{Text: text}
	if pct >= s.cfg.WarnAt && s.cfg.Warn.IsSet() {
		seg.Fg = s.cfg.Warn
	}
	return seg
}
