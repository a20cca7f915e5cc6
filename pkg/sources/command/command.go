// Package command provides a widget source that displays the first line
// of output from a shell command, run once or on an interval. A nonzero
// exit status is a transient source error: the adapter shows the error
// placeholder and retries with backoff.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Config configures a command source.
type Config struct {
	// Name is the widget identifier.
	Name string

	// Command is passed to `sh -c`.
	Command string

	// Interval re-runs the command periodically; 0 runs it exactly once
	// and then leaves the output on screen.
	Interval time.Duration

	// RefreshOnClick binds a left-click "refresh" action that re-runs
	// the command immediately.
	RefreshOnClick bool
}

// Source runs the configured command and emits its first output line.
type Source struct {
	cfg     Config
	refresh chan struct{}
}

// New creates a command source.
func New(cfg Config) *Source {
	s := &Source{cfg: cfg, refresh: make(chan struct{}, 1)}
	return s
}

// Name returns the widget identifier.
func (s *Source) Name() string { return s.cfg.Name }

// Capabilities advertises the refresh action when configured.
func (s *Source) Capabilities() widget.Capabilities {
	if !s.cfg.RefreshOnClick {
		return widget.Capabilities{}
	}
	return widget.Capabilities{Buttons: map[render.Button]string{
		render.ButtonLeft: "refresh",
	}}
}

// Do handles the routed refresh action by scheduling an immediate re-run.
// The signal is coalesced; rapid clicks trigger one run.
func (s *Source) Do(_ context.Context, action widget.Action) error {
	if action.Name != "refresh" {
		return fmt.Errorf("unknown action %q", action.Name)
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
	return nil
}

// Stream runs the command once per interval (or once total), emitting its
// first output line. Click-triggered refreshes run between intervals.
func (s *Source) Stream(ctx context.Context, out chan<- widget.Content) error {
	var tickC <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		line, err := s.run(ctx)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- widget.Text(line):
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tickC:
		case <-s.refresh:
		}
	}
}

// run executes the command and returns the first line of its stdout.
func (s *Source) run(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", s.cfg.Command)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %q: %w", s.cfg.Command, err)
	}
	line, _, _ := strings.Cut(strings.TrimRight(string(output), "\n"), "\n")
	return line, nil
}
