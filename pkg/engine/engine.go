// Package engine wires the bus, composer, surface, and widget adapters
// into the bar's single consuming loop. All layout mutation and painting
// happen here, on one goroutine, so a widget update can never race a
// repaint. Widget sources run as their own goroutines and only ever talk
// to the loop through the bus.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/bus"
	"gitlab.com/tinyland/lab/ledgebar/pkg/compose"
	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Painter is the slice of the surface manager the engine drives. xbar's
// Surface implements it; tests substitute an in-memory fake.
type Painter interface {
	Paint(frame *render.Frame, dirty []render.Rect) error
	Resize(width, height int) error
	Events() <-chan bus.Event
	Size() (w, h int)
	Close()
}

// Options configures engine pacing and shutdown behavior.
type Options struct {
	// TickEvery is the bus tick period (default 1s).
	TickEvery time.Duration

	// ShutdownGrace bounds how long the engine waits for widget sources
	// to release their resources after cancellation (default 3s).
	ShutdownGrace time.Duration

	// Adapter configures placeholder styling and retry pacing for every
	// widget adapter.
	Adapter widget.AdapterOptions

	Logger *slog.Logger
}

// maxBatch bounds how many immediately available events are folded into
// one repaint when updates arrive in a burst.
const maxBatch = 32

// Engine owns the consuming loop.
type Engine struct {
	bus      *bus.Bus
	comp     *compose.Composer
	surf     Painter
	adapters map[string]*widget.Adapter
	router   *Router
	opts     Options
	log      *slog.Logger
}

// New builds the bus and one adapter per source. The composer must be
// configured with a spec for every source's widget name.
func New(comp *compose.Composer, surf Painter, shaper widget.Shaper, sources []widget.Source, opts Options) (*Engine, error) {
	if opts.TickEvery <= 0 {
		opts.TickEvery = time.Second
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Adapter.Logger == nil {
		opts.Adapter.Logger = opts.Logger
	}

	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = src.Name()
	}
	b, err := bus.New(ids, opts.TickEvery)
	if err != nil {
		return nil, err
	}

	adapters := make(map[string]*widget.Adapter, len(sources))
	for _, src := range sources {
		adapters[src.Name()] = widget.NewAdapter(src, b, shaper, opts.Adapter)
	}

	return &Engine{
		bus:      b,
		comp:     comp,
		surf:     surf,
		adapters: adapters,
		router:   NewRouter(adapters, opts.Logger),
		opts:     opts,
		log:      opts.Logger,
	}, nil
}

// Run executes the engine loop until ctx is canceled or the display
// connection dies. On return the surface has been torn down and every
// widget source has either released its resources or been abandoned after
// the grace period.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, a := range e.adapters {
		wg.Add(1)
		go func(a *widget.Adapter) {
			defer wg.Done()
			a.Run(ctx)
		}(a)
	}
	go e.forward(ctx)

	defer e.bus.Close()
	defer e.surf.Close()

	// Paint the empty bar immediately so the dock appears before the
	// first widget reports in.
	if err := e.surf.Paint(e.comp.Frame(), []render.Rect{e.comp.Frame().Bounds()}); err != nil {
		e.log.Error("initial paint failed", "err", err)
		return err
	}

	var fatal error
loop:
	for {
		ev, err := e.bus.Next(ctx)
		if err != nil {
			break
		}
		if fatal = e.handle(ctx, ev); fatal != nil {
			break loop
		}
	}

	cancel()
	e.waitAdapters(&wg)
	return fatal
}

// forward pumps the surface's native event stream into the bus.
func (e *Engine) forward(ctx context.Context) {
	events := e.surf.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			e.bus.Inject(ev)
		}
	}
}

// handle processes one bus event atomically. A non-nil return is fatal.
func (e *Engine) handle(ctx context.Context, ev bus.Event) error {
	switch ev := ev.(type) {
	case bus.WidgetUpdated:
		return e.applyBatch(ctx, ev)
	case bus.Tick:
		// Ticks only exist to bound burst coalescing latency; wall-clock
		// widgets schedule their own updates.
	case bus.Expose:
		frame := e.comp.Frame()
		if err := e.surf.Paint(frame, e.comp.Cover(ev.Area)); err != nil {
			e.log.Error("expose repaint failed", "err", err)
		}
	case bus.ButtonPress:
		e.router.Route(ctx, e.comp.Frame(), ev)
	case bus.Resize:
		e.resize(ev)
	case bus.DisplayClosed:
		e.log.Error("display connection lost", "err", ev.Err)
		return ev.Err
	}
	return nil
}

// applyBatch applies one widget update plus any updates already waiting,
// then paints once with the merged dirty set. Non-update events pulled out
// of the bus while draining are handled after the paint, preserving their
// order relative to the painted state.
func (e *Engine) applyBatch(ctx context.Context, first bus.WidgetUpdated) error {
	var (
		dirty   []render.Rect
		full    bool
		pending []bus.Event
	)
	apply := func(u bus.WidgetUpdated) {
		_, d, f := e.comp.Apply(u.ID, u.Runs, u.Width, u.Actions)
		dirty = append(dirty, d...)
		full = full || f
	}
	apply(first)

	for n := 1; n < maxBatch; n++ {
		ev, ok := e.bus.TryNext()
		if !ok {
			break
		}
		u, isUpdate := ev.(bus.WidgetUpdated)
		if !isUpdate {
			pending = append(pending, ev)
			break
		}
		apply(u)
	}

	frame := e.comp.Frame()
	if full {
		dirty = []render.Rect{frame.Bounds()}
	}
	if len(dirty) > 0 {
		if err := e.surf.Paint(frame, dirty); err != nil {
			e.log.Error("repaint failed", "err", err)
		}
	}
	for _, ev := range pending {
		if err := e.handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) resize(ev bus.Resize) {
	w, h := e.comp.Size()
	if ev.Width == w && ev.Height == h {
		return
	}
	e.log.Info("bar geometry changed", "width", ev.Width, "height", ev.Height)
	if err := e.surf.Resize(ev.Width, ev.Height); err != nil {
		e.log.Error("surface resize failed", "err", err)
		return
	}
	frame, dirty, _ := e.comp.Resize(ev.Width, ev.Height)
	if err := e.surf.Paint(frame, dirty); err != nil {
		e.log.Error("post-resize repaint failed", "err", err)
	}
}

// waitAdapters blocks until every adapter goroutine finishes or the grace
// period elapses. Stragglers are abandoned; the process is about to exit
// and the kernel reclaims whatever they held.
func (e *Engine) waitAdapters(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.log.Debug("all widget sources released")
	case <-time.After(e.opts.ShutdownGrace):
		e.log.Warn("widget sources still busy after grace period, abandoning",
			"grace", e.opts.ShutdownGrace)
	}
}
