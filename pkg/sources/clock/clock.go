// Package clock provides a wall-clock widget source. Instead of polling
// on a fixed period, it sleeps until the next boundary of its configured
// precision (second, minute, or hour), so a minutes clock wakes exactly
// sixty times an hour and the displayed time is never stale.
package clock

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Precision selects the clock's tick alignment.
type Precision int

const (
	// Seconds updates on every second boundary.
	Seconds Precision = iota
	// Minutes updates on every minute boundary.
	Minutes
	// Hours updates on every hour boundary.
	Hours
)

// ParsePrecision parses a configuration precision name. Unknown names
// default to Minutes.
func ParsePrecision(s string) Precision {
	switch s {
	case "seconds":
		return Seconds
	case "hours":
		return Hours
	default:
		return Minutes
	}
}

// unit returns the truncation unit for the precision.
func (p Precision) unit() time.Duration {
	switch p {
	case Seconds:
		return time.Second
	case Hours:
		return time.Hour
	default:
		return time.Minute
	}
}

// defaultFormat returns the time layout used when none is configured.
func (p Precision) defaultFormat() string {
	switch p {
	case Seconds:
		return "15:04:05"
	case Hours:
		return "Mon Jan 2, 15:00"
	default:
		return "Mon Jan 2 15:04"
	}
}

// Config configures a clock source.
type Config struct {
	// Name is the widget identifier (default "clock").
	Name string

	// Format is a Go reference-time layout; empty selects a default for
	// the precision.
	Format string

	// Precision selects the update alignment.
	Precision Precision

	// Now overrides the time source for tests.
	Now func() time.Time
}

// Source emits the formatted current time on precision boundaries.
type Source struct {
	cfg Config
}

// New creates a clock source.
func New(cfg Config) *Source {
	if cfg.Name == "" {
		cfg.Name = "clock"
	}
	if cfg.Format == "" {
		cfg.Format = cfg.Precision.defaultFormat()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Source{cfg: cfg}
}

// Name returns the widget identifier.
func (s *Source) Name() string { return s.cfg.Name }

// Capabilities returns an empty descriptor; the clock is not clickable.
func (s *Source) Capabilities() widget.Capabilities {
	return widget.Capabilities{}
}

// Stream emits the current time immediately and then once per precision
// boundary until ctx is done.
func (s *Source) Stream(ctx context.Context, out chan<- widget.Content) error {
	unit := s.cfg.Precision.unit()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		now := s.cfg.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- widget.Text(now.Format(s.cfg.Format)):
		}
		// Sleep to the next boundary rather than a fixed interval; this
		// self-corrects after suspend/resume.
		next := now.Truncate(unit).Add(unit)
		timer.Reset(time.Until(next))
	}
}
