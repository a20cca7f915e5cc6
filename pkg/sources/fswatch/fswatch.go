// Package fswatch provides a widget source that displays the first line
// of a file and refreshes it on filesystem change notifications instead
// of polling. The parent directory is watched rather than the file
// itself, so editors that replace the file via rename keep working.
package fswatch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Config configures an fswatch source.
type Config struct {
	// Name is the widget identifier.
	Name string

	// Path is the watched file.
	Path string

	// Debounce coalesces change bursts into one re-read (default 100ms).
	Debounce time.Duration

	// Missing is displayed while the file does not exist (default "—").
	Missing string
}

// Source watches one file.
type Source struct {
	cfg Config
}

// New creates an fswatch source.
func New(cfg Config) *Source {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	if cfg.Missing == "" {
		cfg.Missing = "—"
	}
	return &Source{cfg: cfg}
}

// Name returns the widget identifier.
func (s *Source) Name() string { return s.cfg.Name }

// Capabilities returns an empty descriptor.
func (s *Source) Capabilities() widget.Capabilities {
	return widget.Capabilities{}
}

// Stream emits the file's first line, then again after every relevant
// change notification. Watcher failures are transient errors; the adapter
// restarts the stream, which re-creates the watch descriptor.
func (s *Source) Stream(ctx context.Context, out chan<- widget.Content) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.cfg.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	emit := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- widget.Text(s.readLine()):
			return nil
		}
	}
	if err := emit(); err != nil {
		return err
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch on %s closed", dir)
			}
			if ev.Name != s.cfg.Path {
				continue
			}
			if !pending {
				pending = true
				debounce.Reset(s.cfg.Debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch on %s closed", dir)
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		case <-debounce.C:
			pending = false
			if err := emit(); err != nil {
				return err
			}
		}
	}
}

// readLine returns the file's first line, or the missing placeholder.
func (s *Source) readLine() string {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return s.cfg.Missing
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return scanner.Text()
	}
	return s.cfg.Missing
}
