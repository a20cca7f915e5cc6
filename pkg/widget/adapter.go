package widget

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/tinyland/lab/ledgebar/pkg/bus"
	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Shaper is the slice of the layout engine the adapter needs: content
// segments in, measured widget-local runs out.
type Shaper interface {
	Shape(segments []render.Segment) ([]render.Run, int)
}

// AdapterOptions configures placeholder styling and retry pacing.
type AdapterOptions struct {
	// Foreground fills segment colors the source left unset.
	Foreground render.Color

	// Dim styles the "unavailable" placeholder shown when a source's
	// stream terminates.
	Dim render.Color

	// Warn styles the error placeholder shown while a failed source is
	// backing off.
	Warn render.Color

	// InitialBackoff is the first retry delay after a stream failure
	// (default 500ms).
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential retry delay (default 30s).
	MaxBackoff time.Duration

	// ActionTimeout bounds a single routed click action (default 5s).
	ActionTimeout time.Duration

	Logger *slog.Logger
}

// Adapter wraps one Source: it consumes the source's content stream,
// shapes each item, and publishes WidgetUpdated events onto the bus. A
// failed source is retried with bounded exponential backoff; a terminated
// source freezes the widget on a placeholder. The adapter never
// propagates a source error upward.
type Adapter struct {
	src     Source
	bus     *bus.Bus
	shaper  Shaper
	actions map[render.Button]string
	opts    AdapterOptions
	log     *slog.Logger
}

// unavailableText marks a widget whose stream ended for good.
const unavailableText = "n/a"

// errorText marks a widget whose source is failing and being retried.
const errorText = "!"

// NewAdapter wires a source to the bus. The source's capability
// descriptor is captured once here and attached to every update.
func NewAdapter(src Source, b *bus.Bus, shaper Shaper, opts AdapterOptions) *Adapter {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{
		src:     src,
		bus:     b,
		shaper:  shaper,
		actions: src.Capabilities().Buttons,
		opts:    opts,
		log:     opts.Logger.With("widget", src.Name()),
	}
}

// Name returns the wrapped source's widget identifier.
func (a *Adapter) Name() string { return a.src.Name() }

// Run drives the source until ctx is done. It blocks and is intended to
// be spawned as one goroutine per widget by the engine.
func (a *Adapter) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.opts.InitialBackoff
	bo.MaxInterval = a.opts.MaxBackoff
	bo.MaxElapsedTime = 0 // retry forever; the widget degrades, not the bar

	for {
		delivered, err := a.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Stream exhausted: freeze visually, keep the widget in layout.
			a.publishPlaceholder(unavailableText, a.opts.Dim)
			a.log.Info("source stream ended, widget frozen")
			return
		}
		if delivered {
			bo.Reset()
		}
		a.publishPlaceholder(errorText, a.opts.Warn)
		wait := bo.NextBackOff()
		a.log.Warn("source stream failed, retrying", "err", err, "backoff", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// stream runs one incarnation of the source. It reports whether at least
// one item was delivered, which resets the backoff schedule.
func (a *Adapter) stream(ctx context.Context) (delivered bool, err error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan Content, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.src.Stream(sctx, out)
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			// Give the source its chance to release resources; the engine
			// bounds the overall grace period and abandons stragglers.
			<-done
			return delivered, ctx.Err()
		case c := <-out:
			a.publishContent(c)
			delivered = true
		case err := <-done:
			// Drain a final item the source emitted just before returning.
			select {
			case c := <-out:
				a.publishContent(c)
				delivered = true
			default:
			}
			return delivered, err
		}
	}
}

func (a *Adapter) publishContent(c Content) {
	segs := make([]render.Segment, len(c.Segments))
	for i, seg := range c.Segments {
		if !seg.Fg.IsSet() {
			seg.Fg = a.opts.Foreground
		}
		segs[i] = seg
	}
	runs, width := a.shaper.Shape(segs)
	a.publish(runs, width)
}

func (a *Adapter) publishPlaceholder(text string, fg render.Color) {
	if !fg.IsSet() {
		fg = a.opts.Foreground
	}
	runs, width := a.shaper.Shape([]render.Segment{{Text: text, Fg: fg}})
	a.publish(runs, width)
}

func (a *Adapter) publish(runs []render.Run, width int) {
	err := a.bus.Publish(bus.WidgetUpdated{
		ID:      a.src.Name(),
		Runs:    runs,
		Width:   width,
		Actions: a.actions,
		Time:    time.Now(),
	})
	if err != nil {
		a.log.Error("publish rejected", "err", err)
	}
}

// Deliver hands a routed click action to the source, off the engine loop.
// Sources that are not Actionable silently ignore clicks; capability
// descriptors normally prevent such actions from being routed at all.
func (a *Adapter) Deliver(ctx context.Context, action Action) {
	act, ok := a.src.(Actionable)
	if !ok {
		return
	}
	go func() {
		actx, cancel := context.WithTimeout(ctx, a.opts.ActionTimeout)
		defer cancel()
		if err := act.Do(actx, action); err != nil {
			a.log.Warn("click action failed", "action", action.Name, "err", err)
		}
	}()
}
